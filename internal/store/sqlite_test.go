package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/propmatch-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedProperty(t *testing.T, st *SQLiteStore, id int64, name string) {
	t.Helper()
	require.NoError(t, st.UpsertProperty(context.Background(), &model.Property{
		ID: id, Name: name, City: "Mobile", State: "AL",
	}))
}

// --- Properties ---

func TestSQLite_Property_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Lakeview Center")

	p, err := st.GetProperty(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Lakeview Center", p.Name)
	assert.Equal(t, "Mobile", p.City)
}

func TestSQLite_Property_UpsertOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Lakeview Center")
	seedProperty(t, st, 1, "Lakeview Centre")

	p, err := st.GetProperty(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Lakeview Centre", p.Name)

	props, err := st.ListProperties(ctx)
	require.NoError(t, err)
	assert.Len(t, props, 1)
}

func TestSQLite_Property_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	p, err := st.GetProperty(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSQLite_Property_ListOrderedByID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 2, "Harbor Tower")
	seedProperty(t, st, 1, "Lakeview Center")

	props, err := st.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, int64(1), props[0].ID)
	assert.Equal(t, int64(2), props[1].ID)
}

// --- Aliases ---

func TestSQLite_Alias_InsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	require.NoError(t, st.InsertAlias(ctx, model.Alias{
		PropertyID: 1, Name: "ESP", Type: model.AliasAbbreviation, IsPrimary: false,
	}))

	aliases, err := st.ListAliases(ctx)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "ESP", aliases[0].Name)
	assert.Equal(t, model.AliasAbbreviation, aliases[0].Type)
	assert.Equal(t, "Eastern Shore Plaza", aliases[0].PropertyName)
	assert.False(t, aliases[0].CreatedAt.IsZero())
}

func TestSQLite_Alias_DuplicateInsertIgnored(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	alias := model.Alias{PropertyID: 1, Name: "ESP", Type: model.AliasAbbreviation}
	require.NoError(t, st.InsertAlias(ctx, alias))
	require.NoError(t, st.InsertAlias(ctx, alias))

	aliases, err := st.ListAliases(ctx)
	require.NoError(t, err)
	assert.Len(t, aliases, 1)
}

func TestSQLite_Alias_SameNameDifferentProperty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	seedProperty(t, st, 2, "Eastside Plaza")
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 1, Name: "The Plaza"}))
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 2, Name: "The Plaza"}))

	aliases, err := st.ListAliases(ctx)
	require.NoError(t, err)
	assert.Len(t, aliases, 2)
}

func TestSQLite_Alias_DeleteCaseInsensitive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 1, Name: "ESP"}))
	require.NoError(t, st.DeleteAlias(ctx, 1, "esp"))

	aliases, err := st.ListAliases(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestSQLite_Alias_ListForProperty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	seedProperty(t, st, 2, "Harbor Tower")
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 1, Name: "ESP"}))
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 2, Name: "HT"}))

	aliases, err := st.ListAliasesForProperty(ctx, 1)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "ESP", aliases[0].Name)
}

func TestSQLite_Alias_Search(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 1, "Eastern Shore Plaza")
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 1, Name: "Eastern Shore"}))
	require.NoError(t, st.InsertAlias(ctx, model.Alias{PropertyID: 1, Name: "ESP"}))

	aliases, err := st.SearchAliases(ctx, "Shore")
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "Eastern Shore", aliases[0].Name)
}

// --- Documents ---

func TestSQLite_Document_UpsertAssignsID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	doc := model.Document{Filename: "lakeview_rent_roll.pdf", Content: "Property: Lakeview Center"}
	require.NoError(t, st.UpsertDocument(ctx, &doc))
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.UploadedAt.IsZero())

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lakeview_rent_roll.pdf", got.Filename)
	assert.Nil(t, got.TargetPropertyID)
}

func TestSQLite_Document_TargetPropertyRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedProperty(t, st, 7, "Lakeview Center")
	target := int64(7)
	doc := model.Document{ID: "doc-1", Filename: "a.pdf", TargetPropertyID: &target}
	require.NoError(t, st.UpsertDocument(ctx, &doc))

	got, err := st.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.TargetPropertyID)
	assert.Equal(t, int64(7), *got.TargetPropertyID)
}

func TestSQLite_Document_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetDocument(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Document_ListLimitOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"d1", "d2", "d3"} {
		doc := model.Document{ID: id, Filename: id + ".pdf", UploadedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, st.UpsertDocument(ctx, &doc))
	}

	docs, err := st.ListDocuments(ctx, DocumentFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)

	docs, err = st.ListDocuments(ctx, DocumentFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d3", docs[0].ID)
}

func TestSQLite_Document_ListZeroLimitReturnsAll(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		doc := model.Document{
			ID:         fmt.Sprintf("d%03d", i),
			Filename:   fmt.Sprintf("d%03d.pdf", i),
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, st.UpsertDocument(ctx, &doc))
	}

	docs, err := st.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 25)

	docs, err = st.ListDocuments(ctx, DocumentFilter{Offset: 20})
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

// --- Outcomes ---

func testOutcome(documentID string) model.ValidationOutcome {
	id := int64(1)
	return model.ValidationOutcome{
		DocumentID:        documentID,
		ExtractedName:     "Lakeview Center",
		MatchedPropertyID: &id,
		DatabaseName:      "Lakeview Center",
		Confidence:        1.0,
		Status:            model.StatusExact,
		MatchType:         model.MatchExact,
		Resolution:        model.ResolutionPending,
	}
}

func TestSQLite_Outcome_InsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out := testOutcome("doc-1")
	require.NoError(t, st.InsertOutcome(ctx, &out))
	assert.NotEmpty(t, out.ID)
	assert.False(t, out.CreatedAt.IsZero())

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lakeview Center", got.ExtractedName)
	assert.Equal(t, model.StatusExact, got.Status)
	assert.Equal(t, model.MatchExact, got.MatchType)
	require.NotNil(t, got.MatchedPropertyID)
	assert.Equal(t, int64(1), *got.MatchedPropertyID)
	assert.Nil(t, got.ReviewedAt)
}

func TestSQLite_Outcome_GetMissingIsNil(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetOutcomeByDocument(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Outcome_SuggestionsRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out := model.ValidationOutcome{
		DocumentID:    "doc-1",
		ExtractedName: "Zzz Qqq",
		Status:        model.StatusMismatch,
		MatchType:     model.MatchNone,
		NeedsReview:   true,
		Suggestions:   []string{"Lakeview Center", "Harbor Tower"},
		Resolution:    model.ResolutionPending,
	}
	require.NoError(t, st.InsertOutcome(ctx, &out))

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Lakeview Center", "Harbor Tower"}, got.Suggestions)
}

func TestSQLite_Outcome_ListNeedingReview(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	exact := testOutcome("doc-exact")
	require.NoError(t, st.InsertOutcome(ctx, &exact))

	pending := model.ValidationOutcome{
		DocumentID:    "doc-pending",
		ExtractedName: "Lakevew",
		Confidence:    0.6,
		Status:        model.StatusPending,
		MatchType:     model.MatchFuzzy,
		NeedsReview:   true,
		Resolution:    model.ResolutionPending,
	}
	require.NoError(t, st.InsertOutcome(ctx, &pending))

	outcomes, err := st.ListOutcomesNeedingReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "doc-pending", outcomes[0].DocumentID)
}

func TestSQLite_Outcome_ResolvedDropsOffReviewList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	pending := model.ValidationOutcome{
		DocumentID:  "doc-1",
		Status:      model.StatusPending,
		MatchType:   model.MatchFuzzy,
		NeedsReview: true,
		Resolution:  model.ResolutionPending,
	}
	require.NoError(t, st.InsertOutcome(ctx, &pending))

	require.NoError(t, st.UpdateOutcomeResolution(ctx, "doc-1", ResolutionUpdate{
		Action: model.ResolutionApproved, Reviewer: "kt",
	}))

	outcomes, err := st.ListOutcomesNeedingReview(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, outcomes)

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ResolutionApproved, got.Resolution)
	assert.Equal(t, "kt", got.Reviewer)
	assert.NotNil(t, got.ReviewedAt)
}

func TestSQLite_Outcome_CorrectionSetsProperty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out := model.ValidationOutcome{
		DocumentID:  "doc-1",
		Status:      model.StatusMismatch,
		MatchType:   model.MatchNone,
		NeedsReview: true,
		Resolution:  model.ResolutionPending,
	}
	require.NoError(t, st.InsertOutcome(ctx, &out))

	corrected := int64(4)
	require.NoError(t, st.UpdateOutcomeResolution(ctx, "doc-1", ResolutionUpdate{
		Action:            model.ResolutionCorrected,
		Reviewer:          "kt",
		MatchedPropertyID: &corrected,
		CorrectedName:     "Harbor Tower",
	}))

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ResolutionCorrected, got.Resolution)
	require.NotNil(t, got.MatchedPropertyID)
	assert.Equal(t, int64(4), *got.MatchedPropertyID)
}

func TestSQLite_Outcome_ApproveKeepsMatchedProperty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out := testOutcome("doc-1")
	require.NoError(t, st.InsertOutcome(ctx, &out))

	// Approval passes no property id; COALESCE keeps the original.
	require.NoError(t, st.UpdateOutcomeResolution(ctx, "doc-1", ResolutionUpdate{
		Action: model.ResolutionApproved, Reviewer: "kt",
	}))

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got.MatchedPropertyID)
	assert.Equal(t, int64(1), *got.MatchedPropertyID)
}

func TestSQLite_Outcome_UpdateMissingDocument(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateOutcomeResolution(context.Background(), "nope", ResolutionUpdate{
		Action: model.ResolutionApproved,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_Outcome_GetReturnsLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	older := testOutcome("doc-1")
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older.ExtractedName = "old"
	require.NoError(t, st.InsertOutcome(ctx, &older))

	newer := testOutcome("doc-1")
	newer.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newer.ExtractedName = "new"
	require.NoError(t, st.InsertOutcome(ctx, &newer))

	got, err := st.GetOutcomeByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.ExtractedName)
}
