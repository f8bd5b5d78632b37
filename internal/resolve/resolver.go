// Package resolve maps extracted names to canonical properties through
// the alias table: exact, fuzzy, then abbreviation lookups, in that
// order. It also owns alias CRUD, delegating persistence to the store.
package resolve

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/patterns"
)

// Match confidences per resolution pass. Fuzzy matches carry their
// computed similarity instead.
const (
	exactConfidence        = 1.0
	abbreviationConfidence = 0.9
	fuzzyThreshold         = 0.8
)

// AliasStore is the persistence surface the resolver needs.
type AliasStore interface {
	ListAliases(ctx context.Context) ([]model.Alias, error)
	ListAliasesForProperty(ctx context.Context, propertyID int64) ([]model.Alias, error)
	SearchAliases(ctx context.Context, term string) ([]model.Alias, error)
	// InsertAlias is insert-or-ignore on (property_id, alias_name):
	// duplicate adds are a no-op, not an error.
	InsertAlias(ctx context.Context, alias model.Alias) error
	DeleteAlias(ctx context.Context, propertyID int64, aliasName string) error
}

// Resolver resolves names against the alias table.
type Resolver struct {
	store AliasStore
	lib   *patterns.Library
}

// New creates a Resolver.
func New(store AliasStore, lib *patterns.Library) *Resolver {
	return &Resolver{store: store, lib: lib}
}

// Resolve tries each pass in order until one matches:
//  1. exact case-insensitive match against all aliases (confidence 1.0)
//  2. fuzzy match, accepted when the best similarity >= 0.8
//  3. abbreviation lookup: exact match among abbreviation-type aliases,
//     or a pattern-library expansion that exactly matches an alias
//     (confidence 0.9)
//
// Returns (nil, nil) when nothing matches; an error only when the alias
// store is unreachable.
func (r *Resolver) Resolve(ctx context.Context, name string) (*model.AliasMatch, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	aliases, err := r.store.ListAliases(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: list aliases")
	}

	// Pass 1: exact.
	for _, a := range aliases {
		if strings.EqualFold(a.Name, name) {
			return &model.AliasMatch{
				PropertyID:   a.PropertyID,
				PropertyName: a.PropertyName,
				Alias:        a.Name,
				Method:       model.MethodExact,
				Confidence:   exactConfidence,
			}, nil
		}
	}

	// Pass 2: fuzzy — best similarity across all aliases.
	var bestAlias *model.Alias
	var bestScore float64
	for i := range aliases {
		s := Similarity(name, aliases[i].Name)
		if s > bestScore {
			bestScore = s
			bestAlias = &aliases[i]
		}
	}
	if bestAlias != nil && bestScore >= fuzzyThreshold {
		zap.L().Debug("resolve: fuzzy alias match",
			zap.String("name", name),
			zap.String("alias", bestAlias.Name),
			zap.Float64("similarity", bestScore),
		)
		return &model.AliasMatch{
			PropertyID:   bestAlias.PropertyID,
			PropertyName: bestAlias.PropertyName,
			Alias:        bestAlias.Name,
			Method:       model.MethodFuzzy,
			Confidence:   bestScore,
		}, nil
	}

	// Pass 3: abbreviation. Either the name is an abbreviation-type
	// alias, or the pattern library expands it to a known alias name.
	expansion := r.lib.Expand(name)
	for _, a := range aliases {
		if a.Type == model.AliasAbbreviation && strings.EqualFold(a.Name, name) ||
			expansion != "" && strings.EqualFold(a.Name, expansion) {
			return &model.AliasMatch{
				PropertyID:   a.PropertyID,
				PropertyName: a.PropertyName,
				Alias:        a.Name,
				Method:       model.MethodAbbreviation,
				Confidence:   abbreviationConfidence,
			}, nil
		}
	}

	return nil, nil
}

// AddAlias registers an alias for a property. Calling it twice with the
// same property and name leaves exactly one row.
func (r *Resolver) AddAlias(ctx context.Context, propertyID int64, name string, aliasType model.AliasType, isPrimary bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return eris.New("resolve: alias name is required")
	}
	if aliasType == "" {
		aliasType = model.AliasCommonName
	}

	err := r.store.InsertAlias(ctx, model.Alias{
		PropertyID: propertyID,
		Name:       name,
		Type:       aliasType,
		IsPrimary:  isPrimary,
	})
	if err != nil {
		return eris.Wrap(err, "resolve: add alias")
	}

	zap.L().Info("resolve: alias added",
		zap.Int64("property_id", propertyID),
		zap.String("alias", name),
		zap.String("type", string(aliasType)),
	)
	return nil
}

// RemoveAlias deletes an alias row.
func (r *Resolver) RemoveAlias(ctx context.Context, propertyID int64, name string) error {
	if err := r.store.DeleteAlias(ctx, propertyID, strings.TrimSpace(name)); err != nil {
		return eris.Wrap(err, "resolve: remove alias")
	}
	return nil
}

// ListForProperty returns all aliases registered for one property.
func (r *Resolver) ListForProperty(ctx context.Context, propertyID int64) ([]model.Alias, error) {
	aliases, err := r.store.ListAliasesForProperty(ctx, propertyID)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: list aliases for property")
	}
	return aliases, nil
}

// ListAll returns every alias.
func (r *Resolver) ListAll(ctx context.Context) ([]model.Alias, error) {
	aliases, err := r.store.ListAliases(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: list aliases")
	}
	return aliases, nil
}

// Search returns aliases whose name contains the term.
func (r *Resolver) Search(ctx context.Context, term string) ([]model.Alias, error) {
	aliases, err := r.store.SearchAliases(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, eris.Wrap(err, "resolve: search aliases")
	}
	return aliases, nil
}
