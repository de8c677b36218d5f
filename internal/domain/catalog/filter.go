package catalog

type EvaluationStatus string

const (
	StatusAll       EvaluationStatus = "all"
	StatusEvaluated EvaluationStatus = "evaluated"
	StatusPending   EvaluationStatus = "pending"
)

// AssetFilter narrows ListAssets. Empty fields match everything. Status is
// relative to EvaluatorID and ignored when EvaluatorID is blank.
type AssetFilter struct {
	Group       string
	SourceTag   string
	Category    string
	Variant     string
	EvaluatorID string
	Status      EvaluationStatus
	Limit       int
	Offset      int
}

type Facets struct {
	SourceTags []string `json:"source_tags"`
	Categories []string `json:"categories"`
	Variants   []string `json:"variants"`
}
