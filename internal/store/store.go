// Package store provides persistence for properties, aliases, documents
// and validation outcomes, with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/sells-group/propmatch-cli/internal/model"
)

// DocumentFilter specifies criteria for listing the document corpus.
// Limit <= 0 returns the whole corpus.
type DocumentFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for the resolution engine.
//
// Property writes exist for operator seeding and imports only; the
// engine itself treats canonical properties as read-only.
type Store interface {
	// Properties
	ListProperties(ctx context.Context) ([]model.Property, error)
	GetProperty(ctx context.Context, id int64) (*model.Property, error)
	UpsertProperty(ctx context.Context, p *model.Property) error

	// Aliases. InsertAlias is insert-or-ignore on (property_id, alias_name).
	InsertAlias(ctx context.Context, alias model.Alias) error
	DeleteAlias(ctx context.Context, propertyID int64, aliasName string) error
	ListAliases(ctx context.Context) ([]model.Alias, error)
	ListAliasesForProperty(ctx context.Context, propertyID int64) ([]model.Alias, error)
	SearchAliases(ctx context.Context, term string) ([]model.Alias, error)

	// Documents
	UpsertDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Validation outcomes. InsertOutcome assigns the id and created_at;
	// UpdateOutcomeResolution only touches the resolution fields.
	InsertOutcome(ctx context.Context, outcome *model.ValidationOutcome) error
	GetOutcomeByDocument(ctx context.Context, documentID string) (*model.ValidationOutcome, error)
	ListOutcomesNeedingReview(ctx context.Context, limit int) ([]model.ValidationOutcome, error)
	UpdateOutcomeResolution(ctx context.Context, documentID string, res ResolutionUpdate) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ResolutionUpdate carries a reviewer action to the outcome row.
type ResolutionUpdate struct {
	Action            model.ResolutionAction `json:"resolution_action"`
	Reviewer          string                 `json:"reviewer"`
	MatchedPropertyID *int64                 `json:"matched_property_id,omitempty"`
	CorrectedName     string                 `json:"corrected_name,omitempty"`
}
