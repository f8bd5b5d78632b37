// Package extract turns raw document text or filenames into ranked
// property-name candidates using the pattern library.
package extract

import (
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/patterns"
)

// DefaultMaxCandidates bounds the candidate list when the caller passes
// max <= 0.
const DefaultMaxCandidates = 5

// Confidence adjustments applied on top of a pattern's base score.
const (
	abbreviationBoost = 0.2
	longNameBoost     = 0.1
	shortNamePenalty  = 0.2
	longNameLen       = 10
	shortNameLen      = 5
)

// Extractor extracts candidate property names. Stateless over its
// library; safe for concurrent use.
type Extractor struct {
	lib *patterns.Library
}

// New creates an Extractor backed by the given pattern library.
func New(lib *patterns.Library) *Extractor {
	return &Extractor{lib: lib}
}

// FromText scans every non-empty line of text against the header
// patterns and returns up to max candidates, ranked by confidence
// descending and deduplicated case-insensitively (keeping the highest
// confidence per name). Unmatched or empty input yields an empty list;
// extraction never fails.
func (e *Extractor) FromText(text string, max int) []model.ExtractionCandidate {
	var found []model.ExtractionCandidate
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, p := range e.lib.HeaderPatterns() {
			raw, ok := p.Match(line)
			if !ok {
				continue
			}
			if c, ok := e.candidate(raw, p.Confidence, model.ExtractHeader, i+1); ok {
				found = append(found, c)
			}
		}
	}
	return rank(found, max)
}

// FromFilename applies only the filename patterns to the base name of
// the given path.
func (e *Extractor) FromFilename(name string, max int) []model.ExtractionCandidate {
	base := strings.TrimSpace(filepath.Base(name))
	if base == "" || base == "." {
		return nil
	}

	var found []model.ExtractionCandidate
	for _, p := range e.lib.FilenamePatterns() {
		raw, ok := p.Match(base)
		if !ok {
			continue
		}
		// Filename candidates often use separators instead of spaces.
		raw = strings.NewReplacer("_", " ", "-", " ").Replace(raw)
		if c, ok := e.candidate(raw, p.Confidence, model.ExtractFilename, 0); ok {
			found = append(found, c)
		}
	}
	return rank(found, max)
}

// candidate cleans and validates a raw match, then scores it.
func (e *Extractor) candidate(raw string, base float64, method model.ExtractionMethod, line int) (model.ExtractionCandidate, bool) {
	name := e.lib.Clean(raw)
	if reason := e.lib.CheckName(name); reason != "" {
		zap.L().Debug("extract: candidate rejected",
			zap.String("raw", raw),
			zap.String("reason", reason),
		)
		return model.ExtractionCandidate{}, false
	}

	conf := base
	if e.lib.ContainsAbbreviation(name) {
		conf += abbreviationBoost
	}
	if len(name) > longNameLen {
		conf += longNameBoost
	}
	if len(name) < shortNameLen {
		conf -= shortNamePenalty
	}
	conf = clamp(conf)

	return model.ExtractionCandidate{
		Name:       name,
		Confidence: conf,
		Method:     method,
		Line:       line,
	}, true
}

// rank deduplicates case-insensitively keeping the max-confidence
// instance per name, sorts by confidence descending (name ascending on
// ties, for stable output), and truncates to max.
func rank(cands []model.ExtractionCandidate, max int) []model.ExtractionCandidate {
	if len(cands) == 0 {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxCandidates
	}

	best := make(map[string]model.ExtractionCandidate, len(cands))
	for _, c := range cands {
		key := strings.ToLower(c.Name)
		if cur, ok := best[key]; !ok || c.Confidence > cur.Confidence {
			best[key] = c
		}
	}

	out := make([]model.ExtractionCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})

	if len(out) > max {
		out = out[:max]
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
