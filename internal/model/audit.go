package model

import "time"

// AuditStatus is the per-document disposition inside an audit run. It is a
// superset of MatchStatus: extraction and infrastructure failures are
// recorded here rather than dropped.
type AuditStatus string

// Audit statuses.
const (
	AuditExact            AuditStatus = "exact"
	AuditFuzzy            AuditStatus = "fuzzy"
	AuditPending          AuditStatus = "pending"
	AuditMismatch         AuditStatus = "mismatch"
	AuditExtractionFailed AuditStatus = "extraction_failed"
	AuditError            AuditStatus = "error"
)

// DocumentAudit is one document's row in the audit report.
type DocumentAudit struct {
	DocumentID        string      `json:"document_id"`
	Filename          string      `json:"filename,omitempty"`
	ExtractedName     string      `json:"extracted_name,omitempty"`
	Status            AuditStatus `json:"status"`
	Confidence        float64     `json:"confidence"`
	MatchedPropertyID *int64      `json:"matched_property_id,omitempty"`
	NeedsReview       bool        `json:"needs_review"`
	Error             string      `json:"error,omitempty"`
}

// AuditStats aggregates outcome counts over an audit run.
type AuditStats struct {
	Exact              int `json:"exact"`
	Fuzzy              int `json:"fuzzy"`
	Pending            int `json:"pending"`
	Mismatch           int `json:"mismatch"`
	ExtractionFailures int `json:"extraction_failures"`
	Errors             int `json:"errors"`
	NeedsReview        int `json:"needs_review"`
}

// MismatchGroup clusters mismatched documents by the name they extracted.
type MismatchGroup struct {
	ExtractedName string   `json:"extracted_name"`
	DocumentIDs   []string `json:"document_ids"`
}

// RecommendationType classifies a remediation recommendation.
type RecommendationType string

// Recommendation types.
const (
	RecommendBulkAlias             RecommendationType = "bulk_alias"
	RecommendManualReview          RecommendationType = "manual_review"
	RecommendExtractionImprovement RecommendationType = "extraction_improvement"
)

// Recommendation is a remediation suggestion produced by the batch auditor.
type Recommendation struct {
	Type              RecommendationType `json:"type"`
	Priority          string             `json:"priority"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Action            string             `json:"action"`
	AffectedDocuments int                `json:"affected_documents"`
}

// AuditReport is the structured artifact of a batch audit run.
type AuditReport struct {
	TotalDocuments     int              `json:"total_documents"`
	TotalProperties    int              `json:"total_properties"`
	Stats              AuditStats       `json:"statistics"`
	Documents          []DocumentAudit  `json:"documents_audited"`
	PropertyMismatches []MismatchGroup  `json:"property_mismatches"`
	Recommendations    []Recommendation `json:"recommendations"`
	GeneratedAt        time.Time        `json:"generated_at"`
}
