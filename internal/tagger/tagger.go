// Package tagger links risk and category labels from analysis reports to
// versions.
package tagger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Feature types.
const (
	TypeCriticalRisk = "critical_risk"
	TypeMediumRisk   = "medium_risk"
	TypeLowRisk      = "low_risk"
	TypeCategory     = "category"
)

// Types lists every feature type in severity order.
var Types = []string{TypeCriticalRisk, TypeMediumRisk, TypeLowRisk, TypeCategory}

// DefaultLang is the fallback language for feature lookups.
const DefaultLang = "en"

// labels returns the names of one type from a language bucket.
func labels(b generate.LangReport, typ string) []string {
	switch typ {
	case TypeCriticalRisk:
		return b.CriticalRisks
	case TypeMediumRisk:
		return b.MediumRisks
	case TypeLowRisk:
		return b.LowRisks
	case TypeCategory:
		return b.Categories
	}
	return nil
}

// TagVersion resolves every label in report to a Feature and links it to the
// version. Repeated labels and repeated runs are no-ops. The description
// fields are taken from the primaryLang bucket only.
func TagVersion(db *gorm.DB, versionID string, report generate.Report, primaryLang string) error {
	langs := make([]string, 0, len(report))
	for lang := range report {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return db.Transaction(func(tx *gorm.DB) error {
		var v models.Version
		if err := tx.Select("id").Where("id = ?", versionID).First(&v).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("tagger: version %s not found", versionID)
			}
			return fmt.Errorf("tagger: load version %s: %w", versionID, err)
		}

		for _, lang := range langs {
			bucket := report[lang]
			for _, typ := range Types {
				for _, name := range labels(bucket, typ) {
					name = strings.TrimSpace(name)
					if name == "" {
						continue
					}
					id, err := ResolveFeature(tx, typ, name, lang)
					if err != nil {
						return err
					}
					if err := link(tx, versionID, id); err != nil {
						return err
					}
				}
			}
		}

		if primary, ok := report[primaryLang]; ok {
			if err := tx.Model(&models.Version{}).Where("id = ?", versionID).Updates(map[string]interface{}{
				"functional_description": strings.TrimSpace(primary.FunctionalDescription),
				"operating_instructions": strings.TrimSpace(primary.OperatingInstructions),
			}).Error; err != nil {
				return fmt.Errorf("tagger: write details for %s: %w", versionID, err)
			}
		}
		return nil
	})
}

// ResolveFeature returns the id of the (typ, name, lang) feature, creating
// it if absent. Concurrent callers converge on the same row.
func ResolveFeature(db *gorm.DB, typ, name, lang string) (uint, error) {
	if lang == "" {
		lang = DefaultLang
	}
	var f models.Feature
	err := db.Where("type = ? AND name = ? AND lang = ?", typ, name, lang).First(&f).Error
	if err == nil {
		return f.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("tagger: find feature %s/%s: %w", typ, name, err)
	}

	f = models.Feature{Type: typ, Name: name, Lang: lang}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&f).Error; err != nil {
		return 0, fmt.Errorf("tagger: create feature %s/%s: %w", typ, name, err)
	}

	var stored models.Feature
	if err := db.Where("type = ? AND name = ? AND lang = ?", typ, name, lang).First(&stored).Error; err != nil {
		return 0, fmt.Errorf("tagger: reload feature %s/%s: %w", typ, name, err)
	}
	return stored.ID, nil
}

func link(db *gorm.DB, versionID string, featureID uint) error {
	vf := models.VersionFeature{VersionID: versionID, FeatureID: featureID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&vf).Error; err != nil {
		return fmt.Errorf("tagger: link feature %d to %s: %w", featureID, versionID, err)
	}
	return nil
}

// NamesByType returns the distinct feature names of one type across all
// languages, sorted.
func NamesByType(db *gorm.DB, typ string) ([]string, error) {
	var names []string
	if err := db.Model(&models.Feature{}).
		Where("type = ?", typ).
		Distinct("name").
		Order("name ASC").
		Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("tagger: names for %s: %w", typ, err)
	}
	return names, nil
}

// Vocabulary collects existing names of every type for prompting.
func Vocabulary(db *gorm.DB) (generate.Vocabulary, error) {
	var v generate.Vocabulary
	targets := map[string]*[]string{
		TypeCriticalRisk: &v.CriticalRisks,
		TypeMediumRisk:   &v.MediumRisks,
		TypeLowRisk:      &v.LowRisks,
		TypeCategory:     &v.Categories,
	}
	for typ, dst := range targets {
		names, err := NamesByType(db, typ)
		if err != nil {
			return v, err
		}
		*dst = names
	}
	return v, nil
}

// ForVersion returns the version's feature names grouped by type in lang.
// A type with no names in lang falls back to DefaultLang.
func ForVersion(db *gorm.DB, versionID, lang string) (map[string][]string, error) {
	var feats []models.Feature
	if err := db.Table("features").
		Select("features.*").
		Joins("JOIN version_features ON version_features.feature_id = features.id").
		Where("version_features.version_id = ?", versionID).
		Order("features.name ASC").
		Find(&feats).Error; err != nil {
		return nil, fmt.Errorf("tagger: features for %s: %w", versionID, err)
	}

	byLang := map[string]map[string][]string{}
	for _, f := range feats {
		if byLang[f.Lang] == nil {
			byLang[f.Lang] = map[string][]string{}
		}
		byLang[f.Lang][f.Type] = append(byLang[f.Lang][f.Type], f.Name)
	}

	out := make(map[string][]string, len(Types))
	for _, typ := range Types {
		if names := byLang[lang][typ]; len(names) > 0 {
			out[typ] = names
		} else if names := byLang[DefaultLang][typ]; len(names) > 0 {
			out[typ] = names
		}
	}
	return out, nil
}

// HasFeatures reports whether any feature is linked to the version.
func HasFeatures(db *gorm.DB, versionID string) (bool, error) {
	var n int64
	if err := db.Model(&models.VersionFeature{}).Where("version_id = ?", versionID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("tagger: count features for %s: %w", versionID, err)
	}
	return n > 0, nil
}
