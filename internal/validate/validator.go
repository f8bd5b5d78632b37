// Package validate scores an extracted name against canonical
// properties and produces validation outcomes.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/patterns"
	"github.com/sells-group/propmatch-cli/internal/resolve"
)

// maxSuggestions bounds the suggestion list attached to mismatches.
const maxSuggestions = 5

// aliasBoost is the similarity floor applied when the candidate resolves
// to a property through the alias table.
const aliasBoost = 0.9

// Validator scores candidates against the property snapshot. Pure over
// its inputs: failures reaching the alias store are folded into the
// outcome, never returned.
type Validator struct {
	lib      *patterns.Library
	resolver *resolve.Resolver
}

// New creates a Validator.
func New(lib *patterns.Library, resolver *resolve.Resolver) *Validator {
	return &Validator{lib: lib, resolver: resolver}
}

// Validate scores extractedName against the supplied property snapshot.
// When targetID is non-nil only that property is considered; otherwise
// every property is scanned and the best match wins, ties broken by the
// lowest property id. The returned outcome always has confidence in
// [0,1] and a status derived from the library thresholds; it is the
// caller's job to attach the document id and persist it.
func (v *Validator) Validate(ctx context.Context, extractedName string, properties []model.Property, targetID *int64) model.ValidationOutcome {
	cleaned := v.lib.Clean(extractedName)
	if reason := v.lib.CheckName(cleaned); reason != "" {
		return mismatch(extractedName, fmt.Sprintf("extracted name failed format validation: %s", reason))
	}

	// The alias lookup is shared by both paths. An unreachable alias
	// store is a lookup failure: fold it into a mismatch outcome.
	aliasMatch, err := v.resolver.Resolve(ctx, cleaned)
	if err != nil {
		zap.L().Warn("validate: alias lookup failed",
			zap.String("name", cleaned),
			zap.Error(err),
		)
		return mismatch(cleaned, fmt.Sprintf("alias lookup failed: %s", err))
	}

	if targetID != nil {
		return v.validateTarget(cleaned, properties, *targetID, aliasMatch)
	}
	return v.validateScan(cleaned, properties, aliasMatch)
}

// validateTarget compares the candidate against a single property.
func (v *Validator) validateTarget(name string, properties []model.Property, targetID int64, aliasMatch *model.AliasMatch) model.ValidationOutcome {
	var target *model.Property
	for i := range properties {
		if properties[i].ID == targetID {
			target = &properties[i]
			break
		}
	}
	if target == nil {
		return mismatch(name, fmt.Sprintf("property %d not found in registry snapshot", targetID))
	}

	conf, matchType := v.scoreAgainst(name, *target, aliasMatch)
	return v.outcome(name, target, conf, matchType, nil)
}

// validateScan scores the candidate against every property and keeps the
// single best. Equal scores resolve to the lowest property id so the
// result does not depend on snapshot ordering.
func (v *Validator) validateScan(name string, properties []model.Property, aliasMatch *model.AliasMatch) model.ValidationOutcome {
	if len(properties) == 0 {
		return mismatch(name, "property registry snapshot is empty")
	}

	type scored struct {
		prop      model.Property
		conf      float64
		matchType model.MatchType
	}
	all := make([]scored, 0, len(properties))

	var best *scored
	for _, p := range properties {
		conf, matchType := v.scoreAgainst(name, p, aliasMatch)
		s := scored{prop: p, conf: conf, matchType: matchType}
		all = append(all, s)
		if best == nil || s.conf > best.conf ||
			s.conf == best.conf && s.prop.ID < best.prop.ID {
			last := s
			best = &last
		}
	}

	if best.conf < v.lib.Thresholds.Partial {
		// Nothing cleared the floor: suggest the closest canonical names.
		sort.Slice(all, func(i, j int) bool {
			if all[i].conf != all[j].conf {
				return all[i].conf > all[j].conf
			}
			return all[i].prop.ID < all[j].prop.ID
		})
		suggestions := make([]string, 0, maxSuggestions)
		for _, s := range all {
			if len(suggestions) == maxSuggestions {
				break
			}
			suggestions = append(suggestions, s.prop.Name)
		}
		out := mismatch(name, "no property matched above the partial threshold")
		out.Suggestions = suggestions
		return out
	}

	return v.outcome(name, &best.prop, best.conf, best.matchType, nil)
}

// scoreAgainst computes the confidence for one candidate/property pair:
// exact equality short-circuits at 1.0, otherwise sequence similarity,
// raised to the fixed 0.9 floor when the alias table maps the candidate
// to this property. Alias-backed matches never reach 1.0: only the
// canonical name itself is an exact match.
func (v *Validator) scoreAgainst(name string, p model.Property, aliasMatch *model.AliasMatch) (float64, model.MatchType) {
	if strings.EqualFold(name, p.Name) {
		return 1.0, model.MatchExact
	}

	conf := resolve.Similarity(name, p.Name)
	matchType := model.MatchFuzzy

	if aliasMatch != nil && aliasMatch.PropertyID == p.ID && aliasBoost > conf {
		conf = aliasBoost
		matchType = model.MatchAlias
		if aliasMatch.Method == model.MethodAbbreviation {
			matchType = model.MatchAbbreviation
		}
	}

	return conf, matchType
}

// outcome assembles a ValidationOutcome from a scored property.
func (v *Validator) outcome(name string, p *model.Property, conf float64, matchType model.MatchType, suggestions []string) model.ValidationOutcome {
	status := v.lib.StatusFor(conf)
	out := model.ValidationOutcome{
		ExtractedName: name,
		Confidence:    conf,
		Status:        status,
		MatchType:     matchType,
		Suggestions:   suggestions,
		NeedsReview:   status.NeedsReview(),
		Resolution:    model.ResolutionPending,
	}
	if status != model.StatusMismatch {
		id := p.ID
		out.MatchedPropertyID = &id
		out.DatabaseName = p.Name
	} else {
		out.MatchType = model.MatchNone
	}
	return out
}

// mismatch builds the short-circuit outcome for format errors, lookup
// failures and below-threshold scans.
func mismatch(name, message string) model.ValidationOutcome {
	return model.ValidationOutcome{
		ExtractedName: name,
		Confidence:    0,
		Status:        model.StatusMismatch,
		MatchType:     model.MatchNone,
		NeedsReview:   true,
		Message:       message,
		Resolution:    model.ResolutionPending,
	}
}
