package catalog

import (
	"time"

	"gorm.io/datatypes"
)

// Asset is one remote object tracked in the local catalog.
//
// ID is issued locally and never changes or gets reused; evaluations reference it.
// RemoteID is the natural key used by reconciliation.
type Asset struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RemoteID string `gorm:"column:remote_id;type:varchar(1024);not null;uniqueIndex:idx_assets_remote_id" json:"remote_id"`
	Folder   string `gorm:"column:folder;type:varchar(255);not null;index" json:"folder"`

	GroupID   string `gorm:"column:group_id;type:varchar(512);not null;index" json:"group_id"`
	Ordinal   int    `gorm:"column:ordinal;not null;default:1" json:"ordinal"`
	SourceTag string `gorm:"column:source_tag;type:varchar(255);not null;index" json:"source_tag"`

	DescriptiveText string `gorm:"column:descriptive_text;type:text;not null;default:''" json:"descriptive_text"`
	Category        string `gorm:"column:category;type:varchar(255);not null;default:'';index" json:"category"`
	Variant         string `gorm:"column:variant;type:varchar(255);not null;default:''" json:"variant"`
	QualityTier     string `gorm:"column:quality_tier;type:varchar(64);not null;default:''" json:"quality_tier"`

	RemoteMetadata datatypes.JSON `gorm:"column:remote_metadata" json:"remote_metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (Asset) TableName() string { return "assets" }

// DescriptiveFields are the optional metadata columns that backfill may fill in.
type DescriptiveFields struct {
	DescriptiveText string `json:"descriptive_text" yaml:"descriptive_text"`
	Category        string `json:"category" yaml:"category"`
	Variant         string `json:"variant" yaml:"variant"`
	QualityTier     string `json:"quality_tier" yaml:"quality_tier"`
}

func (f DescriptiveFields) IsZero() bool {
	return f.DescriptiveText == "" && f.Category == "" && f.Variant == "" && f.QualityTier == ""
}

// BlankUpdates returns the column updates that would fill blank columns of a
// from f. Non-blank columns are never overwritten.
func (f DescriptiveFields) BlankUpdates(a *Asset) map[string]interface{} {
	updates := map[string]interface{}{}
	if a == nil {
		return updates
	}
	if a.DescriptiveText == "" && f.DescriptiveText != "" {
		updates["descriptive_text"] = f.DescriptiveText
	}
	if a.Category == "" && f.Category != "" {
		updates["category"] = f.Category
	}
	if a.Variant == "" && f.Variant != "" {
		updates["variant"] = f.Variant
	}
	if a.QualityTier == "" && f.QualityTier != "" {
		updates["quality_tier"] = f.QualityTier
	}
	return updates
}

// Metadata keys recognised on remote objects. The legacy sidecar files used
// prompt/type/style; the newer uploads use the column names directly.
var metadataAliases = map[string][]string{
	"descriptive_text": {"descriptive_text", "prompt", "prompt_text"},
	"category":         {"category", "type"},
	"variant":          {"variant", "style"},
	"quality_tier":     {"quality_tier", "tier"},
}

// DescriptiveFromMetadata extracts descriptive fields from remote custom metadata.
func DescriptiveFromMetadata(md map[string]string) DescriptiveFields {
	pick := func(field string) string {
		for _, k := range metadataAliases[field] {
			if v, ok := md[k]; ok && v != "" {
				return v
			}
		}
		return ""
	}
	return DescriptiveFields{
		DescriptiveText: pick("descriptive_text"),
		Category:        pick("category"),
		Variant:         pick("variant"),
		QualityTier:     pick("quality_tier"),
	}
}
