// Package audit re-runs the validation pipeline over the stored document
// corpus and aggregates statistics and remediation recommendations.
package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/pipeline"
	"github.com/sells-group/propmatch-cli/internal/store"
)

// lowConfidenceThreshold marks outcomes that drag a corpus toward the
// manual_review recommendation.
const lowConfidenceThreshold = 0.8

// lowConfidenceFraction is the share of non-failed documents below the
// threshold that triggers the manual_review recommendation.
const lowConfidenceFraction = 0.2

// Options configures an audit run.
type Options struct {
	// Limit caps the number of documents audited; <= 0 audits everything.
	Limit int
	// Concurrency bounds the worker pool; <= 0 defaults to 4.
	Concurrency int
	// RatePerSec throttles document processing; <= 0 disables throttling.
	RatePerSec float64
	// Persist writes a ValidationOutcome per document instead of running
	// read-only.
	Persist bool
}

// Store is the persistence surface the auditor reads.
type Store interface {
	ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error)
	ListProperties(ctx context.Context) ([]model.Property, error)
	InsertOutcome(ctx context.Context, outcome *model.ValidationOutcome) error
}

// Auditor runs batch audits over the document corpus.
type Auditor struct {
	orch  *pipeline.Orchestrator
	store Store
}

// New creates an Auditor.
func New(orch *pipeline.Orchestrator, st Store) *Auditor {
	return &Auditor{orch: orch, store: st}
}

// Run audits the corpus. Documents are processed independently: a
// failing document is recorded with status=error and never aborts the
// batch. The returned error is reserved for being unable to list the
// corpus at all.
func (a *Auditor) Run(ctx context.Context, opts Options) (*model.AuditReport, error) {
	docs, err := a.store.ListDocuments(ctx, store.DocumentFilter{Limit: opts.Limit})
	if err != nil {
		return nil, eris.Wrap(err, "audit: list documents")
	}

	properties, err := a.store.ListProperties(ctx)
	if err != nil {
		zap.L().Warn("audit: property registry unavailable, counting all documents as errors", zap.Error(err))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	zap.L().Info("audit: starting batch audit",
		zap.Int("documents", len(docs)),
		zap.Int("concurrency", concurrency),
		zap.Bool("persist", opts.Persist),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	entries := make([]model.DocumentAudit, len(docs))

	for i, doc := range docs {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					mu.Lock()
					entries[i] = errorEntry(doc, err)
					mu.Unlock()
					return nil
				}
			}

			entry := a.auditOne(gctx, doc, opts.Persist)
			mu.Lock()
			entries[i] = entry
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := buildReport(entries, len(properties))
	zap.L().Info("audit: batch audit complete",
		zap.Int("documents", report.TotalDocuments),
		zap.Int("exact", report.Stats.Exact),
		zap.Int("fuzzy", report.Stats.Fuzzy),
		zap.Int("mismatch", report.Stats.Mismatch),
		zap.Int("extraction_failures", report.Stats.ExtractionFailures),
		zap.Int("needs_review", report.Stats.NeedsReview),
	)
	return report, nil
}

// auditOne validates a single document, containing panics and errors so
// one bad document cannot take down the batch.
func (a *Auditor) auditOne(ctx context.Context, doc model.Document, persist bool) (entry model.DocumentAudit) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("audit: panic while auditing document",
				zap.String("document_id", doc.ID),
				zap.Any("panic", r),
			)
			entry = errorEntry(doc, fmt.Errorf("panic: %v", r))
		}
	}()

	var res pipeline.Result
	if persist {
		var err error
		res, err = a.orch.ValidateDocument(ctx, doc)
		if err != nil {
			return errorEntry(doc, err)
		}
	} else {
		res = a.orch.DryRun(ctx, doc)
	}

	entry = model.DocumentAudit{
		DocumentID:        doc.ID,
		Filename:          doc.Filename,
		ExtractedName:     res.Outcome.ExtractedName,
		Confidence:        res.Outcome.Confidence,
		MatchedPropertyID: res.Outcome.MatchedPropertyID,
		NeedsReview:       res.Outcome.NeedsReview,
	}
	switch res.Disposition {
	case pipeline.DispositionNoExtraction:
		entry.Status = model.AuditExtractionFailed
	case pipeline.DispositionError:
		entry.Status = model.AuditError
		entry.Error = res.Outcome.Message
	default:
		entry.Status = model.AuditStatus(res.Outcome.Status)
	}
	return entry
}

func errorEntry(doc model.Document, err error) model.DocumentAudit {
	return model.DocumentAudit{
		DocumentID:  doc.ID,
		Filename:    doc.Filename,
		Status:      model.AuditError,
		NeedsReview: true,
		Error:       err.Error(),
	}
}

// buildReport aggregates per-document entries into the audit artifact.
func buildReport(entries []model.DocumentAudit, totalProperties int) *model.AuditReport {
	report := &model.AuditReport{
		TotalDocuments:  len(entries),
		TotalProperties: totalProperties,
		Documents:       entries,
		GeneratedAt:     time.Now().UTC(),
	}

	mismatchGroups := make(map[string][]string)
	for _, e := range entries {
		switch e.Status {
		case model.AuditExact:
			report.Stats.Exact++
		case model.AuditFuzzy:
			report.Stats.Fuzzy++
		case model.AuditPending:
			report.Stats.Pending++
		case model.AuditMismatch:
			report.Stats.Mismatch++
			if e.ExtractedName != "" {
				mismatchGroups[e.ExtractedName] = append(mismatchGroups[e.ExtractedName], e.DocumentID)
			}
		case model.AuditExtractionFailed:
			report.Stats.ExtractionFailures++
		case model.AuditError:
			report.Stats.Errors++
		}
		if e.NeedsReview {
			report.Stats.NeedsReview++
		}
	}

	names := make([]string, 0, len(mismatchGroups))
	for name := range mismatchGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.PropertyMismatches = append(report.PropertyMismatches, model.MismatchGroup{
			ExtractedName: name,
			DocumentIDs:   mismatchGroups[name],
		})
	}

	report.Recommendations = recommend(report)
	return report
}

// recommend derives remediation recommendations from the aggregated
// report.
func recommend(report *model.AuditReport) []model.Recommendation {
	var recs []model.Recommendation

	// Repeated unresolved names are alias gaps: one alias fixes every
	// document in the group.
	for _, g := range report.PropertyMismatches {
		if len(g.DocumentIDs) <= 1 {
			continue
		}
		recs = append(recs, model.Recommendation{
			Type:              model.RecommendBulkAlias,
			Priority:          "high",
			Title:             fmt.Sprintf("Add alias for %q", g.ExtractedName),
			Description:       fmt.Sprintf("%d documents extract the unresolved name %q.", len(g.DocumentIDs), g.ExtractedName),
			Action:            fmt.Sprintf("Register %q as an alias of the correct property.", g.ExtractedName),
			AffectedDocuments: len(g.DocumentIDs),
		})
	}

	validated := report.TotalDocuments - report.Stats.ExtractionFailures - report.Stats.Errors
	if validated > 0 {
		lowConfidence := 0
		for _, e := range report.Documents {
			if e.Status != model.AuditExtractionFailed && e.Status != model.AuditError &&
				e.Confidence < lowConfidenceThreshold {
				lowConfidence++
			}
		}
		if float64(lowConfidence)/float64(validated) >= lowConfidenceFraction {
			recs = append(recs, model.Recommendation{
				Type:              model.RecommendManualReview,
				Priority:          "medium",
				Title:             "Review low-confidence matches",
				Description:       fmt.Sprintf("%d of %d validated documents matched below %.2f confidence.", lowConfidence, validated, lowConfidenceThreshold),
				Action:            "Review the flagged documents and approve or correct their property attribution.",
				AffectedDocuments: lowConfidence,
			})
		}
	}

	if report.Stats.ExtractionFailures > 0 {
		recs = append(recs, model.Recommendation{
			Type:              model.RecommendExtractionImprovement,
			Priority:          "medium",
			Title:             "Improve name extraction coverage",
			Description:       fmt.Sprintf("%d documents yielded no property name candidate.", report.Stats.ExtractionFailures),
			Action:            "Inspect the failing documents and extend the pattern library.",
			AffectedDocuments: report.Stats.ExtractionFailures,
		})
	}

	return recs
}
