package models

import "time"

// Version is one immutable artifact snapshot within an editing session.
// Only PreviewArtifact and the two description fields are ever written
// after creation. RootOf carries a unique index so a session can never
// hold two roots.
type Version struct {
	ID                    string    `gorm:"primaryKey;size:36"`
	SessionID             string    `gorm:"size:36;not null;index"`
	ParentID              *string   `gorm:"size:36;index"`
	RootOf                *string   `gorm:"size:36;uniqueIndex"` // SessionID on the root, nil elsewhere
	UserRequest           string    `gorm:"type:text"`
	RawModelOutput        string    `gorm:"type:mediumtext"`
	Content               string    `gorm:"type:mediumtext;not null"`
	PreviewArtifact       *string   `gorm:"type:mediumtext"`
	FunctionalDescription string    `gorm:"type:text"`
	OperatingInstructions string    `gorm:"type:text"`
	CreatedAt             time.Time `gorm:"index"`
}
