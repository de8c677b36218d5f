package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	types "github.com/yungbote/imagerate-backend/internal/domain"
)

// ExportColumns is the CSV header, in column order.
var ExportColumns = []string{
	"asset_id", "remote_id", "group_id", "ordinal", "source_tag",
	"descriptive_text", "category", "variant", "quality_tier",
	"evaluation_id", "evaluator_id", "evaluator_name", "submitted_at",
	"clarity", "detail_richness", "color_accuracy", "lighting_quality", "composition",
	"prompt_match", "style_consistency", "subject_completeness",
	"game_usability", "needs_fix", "direct_use",
	"major_defects", "minor_issues",
	"overall_quality", "grade", "notes",
}

func exportRecord(r *types.ExportRow) []string {
	itoa := strconv.Itoa
	return []string{
		strconv.FormatInt(r.AssetID, 10), r.RemoteID, r.GroupID, itoa(r.Ordinal), r.SourceTag,
		r.DescriptiveText, r.Category, r.Variant, r.QualityTier,
		strconv.FormatInt(r.EvaluationID, 10), r.EvaluatorID, r.EvaluatorName, r.SubmittedAt.UTC().Format(time.RFC3339),
		itoa(r.Clarity), itoa(r.DetailRichness), itoa(r.ColorAccuracy), itoa(r.LightingQuality), itoa(r.Composition),
		itoa(r.PromptMatch), itoa(r.StyleConsistency), itoa(r.SubjectCompleteness),
		itoa(r.GameUsability), strconv.FormatBool(r.NeedsFix), strconv.FormatBool(r.DirectUse),
		r.MajorDefects, r.MinorIssues,
		itoa(r.OverallQuality), r.Grade, r.Notes,
	}
}

// WriteExportCSV streams every evaluation joined with its asset as CSV.
func WriteExportCSV(ctx context.Context, svc CatalogService, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	err := svc.StreamEvaluations(ctx, func(row *types.ExportRow) error {
		return cw.Write(exportRecord(row))
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
