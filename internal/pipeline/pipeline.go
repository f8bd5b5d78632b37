// Package pipeline sequences extraction, validation and persistence for
// a single document, and exposes the reviewer operations.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/extract"
	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/resolve"
	"github.com/sells-group/propmatch-cli/internal/store"
	"github.com/sells-group/propmatch-cli/internal/validate"
)

// Disposition is the internal classification the orchestrator maps to a
// recommended action. It extends MatchStatus with the two terminal
// failure modes that never reach the validator.
type Disposition string

// Dispositions.
const (
	DispositionExact        Disposition = "exact"
	DispositionFuzzy        Disposition = "fuzzy"
	DispositionPending      Disposition = "pending"
	DispositionMismatch     Disposition = "mismatch"
	DispositionNoExtraction Disposition = "no_extraction"
	DispositionError        Disposition = "internal_error"
)

// Action maps a disposition to the recommended action: confident matches
// auto-approve, everything else goes to a human.
func (d Disposition) Action() model.RecommendedAction {
	switch d {
	case DispositionExact, DispositionFuzzy:
		return model.ActionAutoApprove
	default:
		return model.ActionManualReview
	}
}

// Result is what a single document validation produces.
type Result struct {
	Outcome     model.ValidationOutcome     `json:"outcome"`
	Disposition Disposition                 `json:"disposition"`
	Action      model.RecommendedAction     `json:"recommended_action"`
	Candidates  []model.ExtractionCandidate `json:"candidates,omitempty"`
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ListProperties(ctx context.Context) ([]model.Property, error)
	InsertOutcome(ctx context.Context, outcome *model.ValidationOutcome) error
	GetOutcomeByDocument(ctx context.Context, documentID string) (*model.ValidationOutcome, error)
	UpdateOutcomeResolution(ctx context.Context, documentID string, res store.ResolutionUpdate) error
}

// Orchestrator runs the extract -> validate -> persist sequence.
type Orchestrator struct {
	extractor     *extract.Extractor
	validator     *validate.Validator
	resolver      *resolve.Resolver
	store         Store
	maxCandidates int
}

// New creates an Orchestrator. maxCandidates <= 0 uses the extractor
// default.
func New(extractor *extract.Extractor, validator *validate.Validator, resolver *resolve.Resolver, st Store, maxCandidates int) *Orchestrator {
	return &Orchestrator{
		extractor:     extractor,
		validator:     validator,
		resolver:      resolver,
		store:         st,
		maxCandidates: maxCandidates,
	}
}

// ValidateDocument runs the full sequence for one document and persists
// the outcome. Validation-level failures (no extraction, format errors,
// registry unreachable) are encoded in the outcome, not returned; the
// error return is reserved for persistence failures.
func (o *Orchestrator) ValidateDocument(ctx context.Context, doc model.Document) (Result, error) {
	res := o.validateOnly(ctx, doc)

	res.Outcome.DocumentID = doc.ID
	if err := o.store.InsertOutcome(ctx, &res.Outcome); err != nil {
		return res, eris.Wrapf(err, "pipeline: persist outcome for document %s", doc.ID)
	}

	zap.L().Info("pipeline: document validated",
		zap.String("document_id", doc.ID),
		zap.String("extracted_name", res.Outcome.ExtractedName),
		zap.String("status", string(res.Outcome.Status)),
		zap.Float64("confidence", res.Outcome.Confidence),
		zap.String("action", string(res.Action)),
	)
	return res, nil
}

// DryRun runs extraction and validation without persisting anything.
// The batch auditor uses this for read-only re-validation.
func (o *Orchestrator) DryRun(ctx context.Context, doc model.Document) Result {
	return o.validateOnly(ctx, doc)
}

func (o *Orchestrator) validateOnly(ctx context.Context, doc model.Document) Result {
	candidates := o.extractor.FromText(doc.Content, o.maxCandidates)
	if len(candidates) == 0 && doc.Filename != "" {
		candidates = o.extractor.FromFilename(doc.Filename, o.maxCandidates)
	}

	if len(candidates) == 0 {
		out := model.ValidationOutcome{
			DocumentID:  doc.ID,
			Status:      model.StatusMismatch,
			MatchType:   model.MatchNone,
			NeedsReview: true,
			Message:     "no property name could be extracted",
			Resolution:  model.ResolutionPending,
		}
		return Result{Outcome: out, Disposition: DispositionNoExtraction, Action: DispositionNoExtraction.Action()}
	}

	properties, err := o.store.ListProperties(ctx)
	if err != nil {
		zap.L().Error("pipeline: property registry unavailable",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		out := model.ValidationOutcome{
			DocumentID:    doc.ID,
			ExtractedName: candidates[0].Name,
			Status:        model.StatusMismatch,
			MatchType:     model.MatchNone,
			NeedsReview:   true,
			Message:       "property registry unavailable: " + err.Error(),
			Resolution:    model.ResolutionPending,
		}
		return Result{Outcome: out, Disposition: DispositionError, Action: DispositionError.Action(), Candidates: candidates}
	}

	outcome := o.validator.Validate(ctx, candidates[0].Name, properties, doc.TargetPropertyID)
	outcome.DocumentID = doc.ID

	disposition := Disposition(outcome.Status)
	return Result{
		Outcome:     outcome,
		Disposition: disposition,
		Action:      disposition.Action(),
		Candidates:  candidates,
	}
}
