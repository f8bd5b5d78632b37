package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/store"
)

// Reviewer operations. Each is idempotent at the storage layer and
// returns an error value rather than panicking; on failure the outcome
// row is left unchanged. They set terminal resolution sub-states and may
// overwrite one terminal sub-state with another, but never reopen an
// outcome for review.

// Approve marks a document's outcome as reviewed-and-approved.
func (o *Orchestrator) Approve(ctx context.Context, documentID, reviewer string) error {
	if err := o.requireOutcome(ctx, documentID); err != nil {
		return err
	}
	err := o.store.UpdateOutcomeResolution(ctx, documentID, store.ResolutionUpdate{
		Action:   model.ResolutionApproved,
		Reviewer: reviewer,
	})
	if err != nil {
		return eris.Wrapf(err, "pipeline: approve document %s", documentID)
	}

	zap.L().Info("pipeline: outcome approved",
		zap.String("document_id", documentID),
		zap.String("reviewer", reviewer),
	)
	return nil
}

// Correct attaches the reviewer's corrected property attribution.
func (o *Orchestrator) Correct(ctx context.Context, documentID string, propertyID int64, correctedName, reviewer string) error {
	if err := o.requireOutcome(ctx, documentID); err != nil {
		return err
	}
	err := o.store.UpdateOutcomeResolution(ctx, documentID, store.ResolutionUpdate{
		Action:            model.ResolutionCorrected,
		Reviewer:          reviewer,
		MatchedPropertyID: &propertyID,
		CorrectedName:     correctedName,
	})
	if err != nil {
		return eris.Wrapf(err, "pipeline: correct document %s", documentID)
	}

	zap.L().Info("pipeline: outcome corrected",
		zap.String("document_id", documentID),
		zap.Int64("property_id", propertyID),
		zap.String("corrected_name", correctedName),
		zap.String("reviewer", reviewer),
	)
	return nil
}

// AddAliasForDocument registers the extracted name as an alias of the
// given property, then marks the outcome resolved. The alias insert is
// insert-or-ignore, so repeating the action is safe.
func (o *Orchestrator) AddAliasForDocument(ctx context.Context, documentID string, propertyID int64, aliasName, reviewer string) error {
	if err := o.requireOutcome(ctx, documentID); err != nil {
		return err
	}
	if err := o.resolver.AddAlias(ctx, propertyID, aliasName, model.AliasCommonName, false); err != nil {
		return eris.Wrapf(err, "pipeline: add alias for document %s", documentID)
	}

	err := o.store.UpdateOutcomeResolution(ctx, documentID, store.ResolutionUpdate{
		Action:            model.ResolutionAliasAdded,
		Reviewer:          reviewer,
		MatchedPropertyID: &propertyID,
	})
	if err != nil {
		return eris.Wrapf(err, "pipeline: mark alias added for document %s", documentID)
	}

	zap.L().Info("pipeline: alias added from review",
		zap.String("document_id", documentID),
		zap.Int64("property_id", propertyID),
		zap.String("alias", aliasName),
		zap.String("reviewer", reviewer),
	)
	return nil
}

// requireOutcome verifies the document has an outcome to act on.
func (o *Orchestrator) requireOutcome(ctx context.Context, documentID string) error {
	outcome, err := o.store.GetOutcomeByDocument(ctx, documentID)
	if err != nil {
		return eris.Wrapf(err, "pipeline: load outcome for document %s", documentID)
	}
	if outcome == nil {
		return eris.Errorf("pipeline: no outcome recorded for document %s", documentID)
	}
	return nil
}
