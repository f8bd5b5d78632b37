package patterns

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propmatch-cli/internal/model"
)

func TestClean_StripLabelPrefix(t *testing.T) {
	lib := Default()

	assert.Equal(t, "Lakeview Center", lib.Clean("Property: Lakeview Center"))
	assert.Equal(t, "Lakeview Center", lib.Clean("Property Name - Lakeview Center"))
	assert.Equal(t, "Lakeview Center", lib.Clean("  building:   Lakeview Center  "))
}

func TestClean_StripTrailingAbbreviation(t *testing.T) {
	lib := Default()

	assert.Equal(t, "Eastern Shore Plaza", lib.Clean("Eastern Shore Plaza (ESP)"))
	assert.Equal(t, "Harbor Tower", lib.Clean("Harbor Tower (HT2)"))
	// Single-letter parentheticals are left alone.
	assert.Equal(t, "Pier (A)", lib.Clean("Pier (A)"))
}

func TestClean_EdgePunctuationAndWhitespace(t *testing.T) {
	lib := Default()

	assert.Equal(t, "Lakeview Center", lib.Clean(`"Lakeview   Center,"`))
	assert.Equal(t, "Lakeview Center", lib.Clean("- Lakeview Center -"))
	assert.Equal(t, "", lib.Clean("   "))
}

func TestCheckName_Rules(t *testing.T) {
	lib := Default()

	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"acceptable", "Lakeview Center", ""},
		{"minimum length ok", "ESP", ""},
		{"too short", "ab", ReasonTooShort},
		{"too long", string(make([]byte, 101)), ReasonTooLong},
		{"multibyte too short", "Éé", ReasonTooShort},
		{"multibyte length counts runes", "Café " + strings.Repeat("é", 95), ""},
		{"numeric only", "2023-04", ReasonNumericOnly},
		{"no alphanumeric", "!!!", ReasonNoAlphanumeric},
		{"stopword", "Rent Roll", ReasonStopword},
		{"stopword case insensitive", "UNKNOWN", ReasonStopword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, lib.CheckName(tt.input))
		})
	}
}

func TestStatusFor_Boundaries(t *testing.T) {
	lib := Default()

	tests := []struct {
		confidence float64
		want       model.MatchStatus
	}{
		{1.0, model.StatusExact},
		{0.95, model.StatusExact},
		{0.9499, model.StatusFuzzy},
		{0.80, model.StatusFuzzy},
		{0.7999, model.StatusPending},
		{0.50, model.StatusPending},
		{0.4999, model.StatusMismatch},
		{0, model.StatusMismatch},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lib.StatusFor(tt.confidence), "confidence %.4f", tt.confidence)
	}
}

func TestExpandAbbreviate_RoundTrip(t *testing.T) {
	lib := Default()

	assert.Equal(t, "Plaza", lib.Expand("PLZ"))
	assert.Equal(t, "Plaza", lib.Expand(" plz "))
	assert.Equal(t, "", lib.Expand("ZZZ"))

	assert.Equal(t, "PLZ", lib.Abbreviate("Plaza"))
	assert.Equal(t, "PLZ", lib.Abbreviate("plaza"))
	assert.Equal(t, "", lib.Abbreviate("Atrium"))
}

func TestContainsAbbreviation(t *testing.T) {
	lib := Default()

	assert.True(t, lib.ContainsAbbreviation("Westside SQ"))
	assert.True(t, lib.ContainsAbbreviation("Harbor Park"))
	// "SQ" must match on word boundaries only.
	assert.False(t, lib.ContainsAbbreviation("Esquire House"))
	assert.False(t, lib.ContainsAbbreviation("Lakeside"))
}

func TestHeaderPatterns_PropertyLabel(t *testing.T) {
	lib := Default()

	var matched string
	for _, p := range lib.HeaderPatterns() {
		if p.Name != "property_label" {
			continue
		}
		name, ok := p.Match("Property Name: Lakeview Center")
		require.True(t, ok)
		matched = name
	}
	assert.Equal(t, "Lakeview Center", matched)
}

func TestHeaderPatterns_StatementFor(t *testing.T) {
	lib := Default()

	for _, p := range lib.HeaderPatterns() {
		if p.Name != "statement_for" {
			continue
		}
		name, ok := p.Match("Rent Roll for Eastern Shore Plaza")
		require.True(t, ok)
		assert.Equal(t, "Eastern Shore Plaza", name)

		_, ok = p.Match("just some body text")
		assert.False(t, ok)
	}
}

func TestHeaderPatterns_TitledPropertyLine(t *testing.T) {
	lib := Default()

	for _, p := range lib.HeaderPatterns() {
		if p.Name != "titled_property_line" {
			continue
		}
		name, ok := p.Match("Riverside Commons")
		require.True(t, ok)
		assert.Equal(t, "Riverside Commons", name)

		_, ok = p.Match("lowercase commons")
		assert.False(t, ok)
	}
}
