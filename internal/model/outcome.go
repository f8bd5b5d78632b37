package model

import "time"

// ExtractionMethod identifies where a candidate name came from.
type ExtractionMethod string

// Extraction methods.
const (
	ExtractHeader   ExtractionMethod = "header"
	ExtractFilename ExtractionMethod = "filename"
	ExtractContent  ExtractionMethod = "content"
)

// ExtractionCandidate is a possible property name pulled from a document.
// Transient: candidates are never persisted on their own.
type ExtractionCandidate struct {
	Name       string           `json:"name"`
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"method"`
	Page       int              `json:"page,omitempty"`
	Line       int              `json:"line,omitempty"`
}

// MatchStatus is the validation status derived from confidence.
type MatchStatus string

// Match statuses, in descending order of confidence.
const (
	StatusExact    MatchStatus = "exact"
	StatusFuzzy    MatchStatus = "fuzzy"
	StatusPending  MatchStatus = "pending"
	StatusMismatch MatchStatus = "mismatch"
)

// NeedsReview reports whether a status requires human adjudication.
func (s MatchStatus) NeedsReview() bool {
	return s == StatusPending || s == StatusMismatch
}

// MatchType records which mechanism produced the match.
type MatchType string

// Match types.
const (
	MatchExact        MatchType = "exact"
	MatchFuzzy        MatchType = "fuzzy"
	MatchAlias        MatchType = "alias"
	MatchAbbreviation MatchType = "abbreviation"
	MatchNone         MatchType = "none"
)

// ResolutionAction tracks what a reviewer did with an outcome.
type ResolutionAction string

// Resolution actions.
const (
	ResolutionPending    ResolutionAction = "pending"
	ResolutionApproved   ResolutionAction = "approved"
	ResolutionCorrected  ResolutionAction = "corrected"
	ResolutionAliasAdded ResolutionAction = "alias_added"
)

// ValidationOutcome is the persisted result of one document-validation
// event. Created exactly once per (document, extraction attempt); reviewer
// actions only update the resolution fields, never replace the record.
type ValidationOutcome struct {
	ID                string           `json:"id" db:"id"`
	DocumentID        string           `json:"document_id" db:"document_id"`
	ExtractedName     string           `json:"extracted_name" db:"extracted_name"`
	MatchedPropertyID *int64           `json:"matched_property_id,omitempty" db:"matched_property_id"`
	DatabaseName      string           `json:"database_name,omitempty" db:"database_name"`
	Confidence        float64          `json:"confidence" db:"confidence"`
	Status            MatchStatus      `json:"status" db:"status"`
	MatchType         MatchType        `json:"match_type" db:"match_type"`
	Suggestions       []string         `json:"suggestions,omitempty" db:"suggestions"`
	NeedsReview       bool             `json:"needs_review" db:"needs_review"`
	Message           string           `json:"message,omitempty" db:"message"`
	Resolution        ResolutionAction `json:"resolution_action" db:"resolution_action"`
	Reviewer          string           `json:"reviewer,omitempty" db:"reviewer"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	ReviewedAt        *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// IsValid reports whether the outcome cleared the fuzzy threshold and can
// be trusted by downstream attribution without review.
func (o ValidationOutcome) IsValid() bool {
	return o.Status == StatusExact || o.Status == StatusFuzzy
}

// Resolved reports whether a reviewer has already acted on the outcome.
func (o ValidationOutcome) Resolved() bool {
	return o.Resolution != ResolutionPending
}

// RecommendedAction is what the orchestrator suggests for an outcome.
type RecommendedAction string

// Recommended actions.
const (
	ActionAutoApprove  RecommendedAction = "auto_approve"
	ActionManualReview RecommendedAction = "manual_review"
)
