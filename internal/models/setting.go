package models

// Setting is a global key/value switch.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:255"`
}
