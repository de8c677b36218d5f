package ratings

import (
	"time"

	"github.com/yungbote/imagerate-backend/internal/domain/catalog"
)

// Evaluation is one rater's score for one asset. (AssetID, EvaluatorID) is unique.
type Evaluation struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AssetID     int64          `gorm:"column:asset_id;not null;uniqueIndex:idx_evaluations_asset_evaluator,priority:1" json:"asset_id"`
	Asset       *catalog.Asset `gorm:"constraint:OnDelete:RESTRICT;foreignKey:AssetID;references:ID" json:"asset,omitempty"`
	EvaluatorID string         `gorm:"column:evaluator_id;type:varchar(255);not null;uniqueIndex:idx_evaluations_asset_evaluator,priority:2;index" json:"evaluator_id"`

	Fields

	SubmittedAt time.Time `gorm:"column:submitted_at;not null" json:"submitted_at"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (Evaluation) TableName() string { return "evaluations" }

// Fields is everything a rater submits. Scores are domain values (usually 1-5);
// range checks belong to the caller.
type Fields struct {
	EvaluatorName string `gorm:"column:evaluator_name;type:varchar(255);not null;default:''" json:"evaluator_name"`

	// technical quality
	Clarity         int `gorm:"column:clarity;not null;default:0" json:"clarity"`
	DetailRichness  int `gorm:"column:detail_richness;not null;default:0" json:"detail_richness"`
	ColorAccuracy   int `gorm:"column:color_accuracy;not null;default:0" json:"color_accuracy"`
	LightingQuality int `gorm:"column:lighting_quality;not null;default:0" json:"lighting_quality"`
	Composition     int `gorm:"column:composition;not null;default:0" json:"composition"`

	// content accuracy
	PromptMatch         int `gorm:"column:prompt_match;not null;default:0" json:"prompt_match"`
	StyleConsistency    int `gorm:"column:style_consistency;not null;default:0" json:"style_consistency"`
	SubjectCompleteness int `gorm:"column:subject_completeness;not null;default:0" json:"subject_completeness"`

	// game usability
	GameUsability int  `gorm:"column:game_usability;not null;default:0" json:"game_usability"`
	NeedsFix      bool `gorm:"column:needs_fix;not null;default:false" json:"needs_fix"`
	DirectUse     bool `gorm:"column:direct_use;not null;default:false" json:"direct_use"`

	MajorDefects string `gorm:"column:major_defects;type:text;not null;default:''" json:"major_defects"`
	MinorIssues  string `gorm:"column:minor_issues;type:text;not null;default:''" json:"minor_issues"`

	OverallQuality int    `gorm:"column:overall_quality;not null;default:0" json:"overall_quality"`
	Grade          string `gorm:"column:grade;type:varchar(8);not null;default:''" json:"grade"`
	Notes          string `gorm:"column:notes;type:text;not null;default:''" json:"notes"`
}

// UpdateColumns are the columns a repeat submission overwrites in place.
var UpdateColumns = []string{
	"evaluator_name",
	"clarity", "detail_richness", "color_accuracy", "lighting_quality", "composition",
	"prompt_match", "style_consistency", "subject_completeness",
	"game_usability", "needs_fix", "direct_use",
	"major_defects", "minor_issues",
	"overall_quality", "grade", "notes",
	"submitted_at", "updated_at",
}

type Progress struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Remaining int64 `json:"remaining"`
}

// ExportRow is one evaluation joined with its asset, flattened for offline analysis.
type ExportRow struct {
	AssetID         int64     `gorm:"column:asset_id" json:"asset_id"`
	RemoteID        string    `gorm:"column:remote_id" json:"remote_id"`
	GroupID         string    `gorm:"column:group_id" json:"group_id"`
	Ordinal         int       `gorm:"column:ordinal" json:"ordinal"`
	SourceTag       string    `gorm:"column:source_tag" json:"source_tag"`
	DescriptiveText string    `gorm:"column:descriptive_text" json:"descriptive_text"`
	Category        string    `gorm:"column:category" json:"category"`
	Variant         string    `gorm:"column:variant" json:"variant"`
	QualityTier     string    `gorm:"column:quality_tier" json:"quality_tier"`
	EvaluationID    int64     `gorm:"column:evaluation_id" json:"evaluation_id"`
	EvaluatorID     string    `gorm:"column:evaluator_id" json:"evaluator_id"`
	SubmittedAt     time.Time `gorm:"column:submitted_at" json:"submitted_at"`
	Fields
}
