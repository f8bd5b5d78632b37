// Package patterns holds the configuration data that drives name
// extraction and validation: regex patterns with base confidences, the
// abbreviation table, stopwords, cleaning rules and confidence thresholds.
// It contains no matching logic beyond applying its own rules; new
// document layouts are configuration changes, not code changes.
package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/propmatch-cli/internal/model"
)

// Pattern is a named extraction regex with a base confidence. The first
// capture group is the candidate name.
type Pattern struct {
	Name       string
	Confidence float64
	re         *regexp.Regexp
}

// Match applies the pattern to a line and returns the captured name.
func (p Pattern) Match(line string) (string, bool) {
	m := p.re.FindStringSubmatch(line)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// Thresholds are the fixed confidence bands. Lower bounds are inclusive.
type Thresholds struct {
	Exact   float64 `yaml:"exact"`
	Fuzzy   float64 `yaml:"fuzzy"`
	Partial float64 `yaml:"partial"`
}

// Library is the full pattern configuration. Construct via Default or
// Load; a Library is read-only after construction and safe for
// concurrent use.
type Library struct {
	headerPatterns   []Pattern
	filenamePatterns []Pattern

	abbreviations map[string]string // abbreviation -> expansion, upper-cased keys
	expansions    map[string]string // expansion -> abbreviation
	stopwords     map[string]struct{}

	MinNameLen int
	MaxNameLen int
	Thresholds Thresholds
}

// Cleaning rules.
var (
	labelPrefixRe  = regexp.MustCompile(`(?i)^\s*(?:property|building|asset|site|project)\s*(?:name)?\s*[:\-–]\s*`)
	trailingAbbrRe = regexp.MustCompile(`\s*\([A-Z0-9]{2,6}\)\s*$`)
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	alnumRe        = regexp.MustCompile(`[a-zA-Z0-9]`)
	digitsOnlyRe   = regexp.MustCompile(`^[\d\s.,\-/#]+$`)
)

// Reasons returned by CheckName. Empty string means the name is usable.
const (
	ReasonTooShort       = "too_short"
	ReasonTooLong        = "too_long"
	ReasonNumericOnly    = "numeric_only"
	ReasonNoAlphanumeric = "no_alphanumeric"
	ReasonStopword       = "stopword"
)

// HeaderPatterns returns the ordered patterns applied to document text.
func (l *Library) HeaderPatterns() []Pattern { return l.headerPatterns }

// FilenamePatterns returns the ordered patterns applied to filenames.
func (l *Library) FilenamePatterns() []Pattern { return l.filenamePatterns }

// Clean applies the cleaning rules to a raw candidate: strips label
// prefixes ("Property: ..."), a trailing parenthetical abbreviation,
// stray edge punctuation, and collapses whitespace.
func (l *Library) Clean(name string) string {
	n := strings.TrimSpace(name)
	n = labelPrefixRe.ReplaceAllString(n, "")
	n = trailingAbbrRe.ReplaceAllString(n, "")
	n = strings.Trim(n, " \t\"'`,;:._-")
	n = multiSpaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// CheckName applies the validation rules to a cleaned name and returns a
// rejection reason, or "" when the name is acceptable.
func (l *Library) CheckName(name string) string {
	// Length bounds count runes, not bytes.
	length := utf8.RuneCountInString(name)
	switch {
	case length < l.MinNameLen:
		return ReasonTooShort
	case length > l.MaxNameLen:
		return ReasonTooLong
	case !alnumRe.MatchString(name):
		return ReasonNoAlphanumeric
	case digitsOnlyRe.MatchString(name):
		return ReasonNumericOnly
	}
	if _, ok := l.stopwords[strings.ToLower(name)]; ok {
		return ReasonStopword
	}
	return ""
}

// Expand returns the full name for a known abbreviation, or "".
func (l *Library) Expand(abbr string) string {
	return l.abbreviations[strings.ToUpper(strings.TrimSpace(abbr))]
}

// Abbreviate returns the abbreviation for a known full name, or "".
func (l *Library) Abbreviate(full string) string {
	return l.expansions[strings.ToUpper(strings.TrimSpace(full))]
}

// ContainsAbbreviation reports whether any known abbreviation or its
// expansion appears in the candidate text. Used by the extractor's
// confidence boost.
func (l *Library) ContainsAbbreviation(text string) bool {
	upper := strings.ToUpper(text)
	for abbr, full := range l.abbreviations {
		if containsWord(upper, abbr) || strings.Contains(upper, strings.ToUpper(full)) {
			return true
		}
	}
	return false
}

// containsWord reports whether w appears in s on word boundaries, so the
// abbreviation "SQ" does not fire inside "SQUIRE".
func containsWord(s, w string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// StatusFor maps a confidence score to its match status. Total and
// deterministic: lower bounds are inclusive.
func (l *Library) StatusFor(confidence float64) model.MatchStatus {
	switch {
	case confidence >= l.Thresholds.Exact:
		return model.StatusExact
	case confidence >= l.Thresholds.Fuzzy:
		return model.StatusFuzzy
	case confidence >= l.Thresholds.Partial:
		return model.StatusPending
	default:
		return model.StatusMismatch
	}
}

// Default returns the built-in library.
func Default() *Library {
	l := &Library{
		MinNameLen: 3,
		MaxNameLen: 100,
		Thresholds: Thresholds{Exact: 0.95, Fuzzy: 0.80, Partial: 0.50},
		abbreviations: map[string]string{
			"BLDG": "Building",
			"CTR":  "Center",
			"PLZ":  "Plaza",
			"APTS": "Apartments",
			"SQ":   "Square",
			"PK":   "Park",
			"TWR":  "Tower",
			"XING": "Crossing",
		},
		stopwords: toSet([]string{
			"property", "building", "statement", "report", "rent roll",
			"financials", "budget", "document", "unknown", "draft",
			"untitled", "test", "none", "n/a", "tbd",
		}),
	}
	l.expansions = invert(l.abbreviations)

	l.headerPatterns = compileAll([]rawPattern{
		{"property_label", `(?i)^\s*property\s*(?:name)?\s*[:\-–]\s*(.+?)\s*$`, 0.90},
		{"building_label", `(?i)^\s*(?:building|asset|site|project)\s*(?:name)?\s*[:\-–]\s*(.+?)\s*$`, 0.85},
		{"statement_for", `(?i)^\s*(?:financial\s+statement|income\s+statement|rent\s+roll|operating\s+statement|budget|trial\s+balance)\s+(?:for|[:\-–])\s*(.+?)\s*$`, 0.80},
		{"titled_property_line", `^\s*([A-Z][A-Za-z0-9&'.\- ]{1,80}\s(?:Plaza|Center|Centre|Tower|Park|Square|Place|Building|Apartments|Commons|Crossing|Village|Point|Landing|Station|Heights|Ridge|Gardens))\s*$`, 0.75},
	})
	l.filenamePatterns = compileAll([]rawPattern{
		{"filename_prefix", `(?i)^(.+?)[ _\-]+(?:financials?|rent[ _\-]?roll|statements?|operating|budget|t12|trailing[ _\-]?12|p&l|pnl|balance[ _\-]?sheet)`, 0.80},
		{"filename_base", `^([A-Za-z][A-Za-z0-9&' \-]{1,80}?)(?:[ _\-]*\d{4}(?:[ _\-]\d{2})?)?\.[A-Za-z0-9]{2,5}$`, 0.50},
	})

	return l
}

type rawPattern struct {
	name       string
	regex      string
	confidence float64
}

func compileAll(raw []rawPattern) []Pattern {
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		out = append(out, Pattern{Name: r.name, Confidence: r.confidence, re: regexp.MustCompile(r.regex)})
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(v)] = k
	}
	return out
}
