package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propmatch-cli/internal/model"
	"github.com/sells-group/propmatch-cli/internal/patterns"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	lib, err := patterns.Load("")
	require.NoError(t, err)
	return New(lib)
}

func TestFromText_PropertyLabel(t *testing.T) {
	e := newTestExtractor(t)

	text := "Property: Rosewood\nTotal Income: $120,000\n"
	cands := e.FromText(text, 5)
	require.Len(t, cands, 1)

	assert.Equal(t, "Rosewood", cands[0].Name)
	assert.Equal(t, model.ExtractHeader, cands[0].Method)
	assert.Equal(t, 1, cands[0].Line)
	assert.InDelta(t, 0.90, cands[0].Confidence, 0.001)
}

func TestFromText_EmptyInput(t *testing.T) {
	e := newTestExtractor(t)

	assert.Empty(t, e.FromText("", 5))
	assert.Empty(t, e.FromText("\n\n  \n", 5))
	assert.Empty(t, e.FromText("nothing matches here", 5))
}

func TestFromText_AbbreviationBoost(t *testing.T) {
	e := newTestExtractor(t)

	// "Rosewood PLZ" carries a known abbreviation: 0.90 + 0.2 + 0.1, clamped.
	cands := e.FromText("Property: Rosewood Plz North", 5)
	require.Len(t, cands, 1)
	assert.InDelta(t, 1.0, cands[0].Confidence, 0.001)
}

func TestFromText_ShortNamePenalty(t *testing.T) {
	e := newTestExtractor(t)

	cands := e.FromText("Property: Apex", 5)
	require.Len(t, cands, 1)
	assert.Equal(t, "Apex", cands[0].Name)
	assert.InDelta(t, 0.70, cands[0].Confidence, 0.001)
}

func TestFromText_LongNameBoost(t *testing.T) {
	e := newTestExtractor(t)

	cands := e.FromText("Property: Maplewood Estates", 5)
	require.Len(t, cands, 1)
	assert.InDelta(t, 1.0, cands[0].Confidence, 0.001)
}

func TestFromText_RejectsInvalidCandidates(t *testing.T) {
	e := newTestExtractor(t)

	// Numeric-only and stopword captures are dropped.
	text := "Property: 2023-04\nBuilding: Rent Roll\n"
	assert.Empty(t, e.FromText(text, 5))
}

func TestFromText_DedupKeepsHighestConfidence(t *testing.T) {
	e := newTestExtractor(t)

	// Same name via property_label (0.90) and building_label (0.85).
	text := "Property: Rosewood\nBuilding: rosewood\n"
	cands := e.FromText(text, 5)
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.90, cands[0].Confidence, 0.001)
}

func TestFromText_RankedAndTruncated(t *testing.T) {
	e := newTestExtractor(t)

	text := "Building: Oakmont\nProperty: Rosewood\n"
	cands := e.FromText(text, 1)
	require.Len(t, cands, 1)
	// property_label outranks building_label.
	assert.Equal(t, "Rosewood", cands[0].Name)
}

func TestFromText_TieBreaksByName(t *testing.T) {
	e := newTestExtractor(t)

	// Both match building_label at the same confidence.
	text := "Building: Oakmont\nBuilding: Belmont\n"
	cands := e.FromText(text, 5)
	require.Len(t, cands, 2)
	assert.Equal(t, "Belmont", cands[0].Name)
	assert.Equal(t, "Oakmont", cands[1].Name)
}

func TestFromFilename_PrefixPattern(t *testing.T) {
	e := newTestExtractor(t)

	cands := e.FromFilename("/uploads/lakeview_center_rent_roll_2023.pdf", 5)
	require.NotEmpty(t, cands)
	assert.Equal(t, "lakeview center", cands[0].Name)
	assert.Equal(t, model.ExtractFilename, cands[0].Method)
}

func TestFromFilename_BasePattern(t *testing.T) {
	e := newTestExtractor(t)

	cands := e.FromFilename("Rosewood 2023.pdf", 5)
	require.NotEmpty(t, cands)
	assert.Equal(t, "Rosewood", cands[0].Name)
}

func TestFromFilename_Empty(t *testing.T) {
	e := newTestExtractor(t)

	assert.Empty(t, e.FromFilename("", 5))
	assert.Empty(t, e.FromFilename(".", 5))
}

func TestCandidates_ConfidenceAlwaysInRange(t *testing.T) {
	e := newTestExtractor(t)

	text := "Property: Apx\nProperty: Grand Central Apartments Plaza Tower\n"
	for _, c := range e.FromText(text, 10) {
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
	}
}
