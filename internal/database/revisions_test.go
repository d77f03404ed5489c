package database_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/intake-service/internal/database"
	"github.com/kosarica/intake-service/internal/database/dbtest"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func seedSubmission(ctx context.Context, t *testing.T, store *database.Store) *database.Submission {
	t.Helper()
	sub, err := store.CreateSubmission(ctx, database.NewSubmission{
		Requester: strPtr("pm@example.com"),
		Note:      strPtr("spring launch"),
		Products: []database.NewProduct{{
			Sku: "12345",
			ProductFields: database.ProductFields{
				ProductName:           "Test Widget",
				Stamp:                 strPtr("NEW"),
				OffSaleDate:           strPtr("2024-06-30T00:00:00Z"),
				SavingsUS:             strPtr("Save $5"),
				IncludeTranslations:   true,
				RequestedCulturesJSON: json.RawMessage(`["US","CAN"]`),
			},
			Accessories:     []database.Accessory{{AccessorySku: strPtr("10885H")}, {AccessoryLabel: strPtr("Charger")}},
			Recommendations: []database.Recommendation{{Sku: "34038"}},
			Cultures:        []database.Culture{{CultureCode: "en-US", TranslatedName: strPtr("Test Widget")}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, sub.Products, 1)
	return sub
}

func TestCreateSubmissionStoresVersionOne(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))

	sub := seedSubmission(ctx, t, store)
	p := sub.Products[0]

	assert.Equal(t, 1, p.Version)
	assert.True(t, p.IsCurrent)
	assert.Equal(t, "Test Widget", p.ProductName)
	assert.JSONEq(t, `["US","CAN"]`, string(p.RequestedCulturesJSON))
	assert.Len(t, p.Accessories, 2)
	assert.Len(t, p.Recommendations, 1)
	assert.Len(t, p.Cultures, 1)

	loaded, err := store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "pm@example.com", *loaded.Requester)
	require.Len(t, loaded.Products, 1)
	assert.Equal(t, p.Accessories, loaded.Products[0].Accessories)
}

func TestCreateSubmissionAppliesGates(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))

	sub, err := store.CreateSubmission(ctx, database.NewSubmission{
		Products: []database.NewProduct{{
			Sku: "777",
			ProductFields: database.ProductFields{
				ProductName:         "Gated",
				OffSaleDate:         strPtr("7/1/2024"),
				NoEndDate:           true,
				SavingsUS:           strPtr("Save $5"),
				SavingsCA:           strPtr("Save $6"),
				NoSavings:           true,
				PdpWorkRequest:      strPtr("PDP-1"),
				IncludeTranslations: false,
			},
			Cultures: []database.Culture{{CultureCode: "fr-CA"}},
		}},
	})
	require.NoError(t, err)

	p := sub.Products[0]
	assert.Nil(t, p.OffSaleDate)
	assert.Nil(t, p.SavingsUS)
	assert.Nil(t, p.SavingsCA)
	assert.Nil(t, p.PdpWorkRequest)
	assert.Empty(t, p.Cultures)
}

func TestCreateSubmissionUnknownRequest(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))

	requestID := int64(999)
	_, err := store.CreateSubmission(ctx, database.NewSubmission{
		RequestID: &requestID,
		Products:  []database.NewProduct{{Sku: "1", ProductFields: database.ProductFields{ProductName: "x"}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrNotFound)

	subs, err := store.ListSubmissions(ctx, database.SubmissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestCreateRevisionCarriesForward(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))
	sub := seedSubmission(ctx, t, store)
	base := sub.Products[0]

	rev, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{
		ProductName: strPtr("Renamed Widget"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, rev.Version)
	assert.True(t, rev.IsCurrent)
	assert.Equal(t, "Renamed Widget", rev.ProductName)
	assert.Equal(t, "NEW", *rev.Stamp)
	assert.Equal(t, "2024-06-30T00:00:00Z", *rev.OffSaleDate)
	assert.JSONEq(t, `["US","CAN"]`, string(rev.RequestedCulturesJSON))

	require.Len(t, rev.Accessories, 2)
	assert.Equal(t, "10885H", *rev.Accessories[0].AccessorySku)
	assert.Equal(t, "Charger", *rev.Accessories[1].AccessoryLabel)
	assert.NotEqual(t, base.Accessories[0].ID, rev.Accessories[0].ID)
	require.Len(t, rev.Recommendations, 1)
	require.Len(t, rev.Cultures, 1)

	revisions, err := store.ListRevisions(ctx, sub.ID, base.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.False(t, revisions[0].IsCurrent)
	assert.True(t, revisions[1].IsCurrent)
	assert.Equal(t, "Test Widget", revisions[0].ProductName)
}

func TestCreateRevisionGates(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))
	sub := seedSubmission(ctx, t, store)
	base := sub.Products[0]

	rev, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{
		OffSaleDate:    strPtr("2025-01-01T00:00:00Z"),
		NoEndDate:      boolPtr(true),
		NoSavings:      boolPtr(true),
		PdpWorkRequest: strPtr("PDP-9"),
	})
	require.NoError(t, err)

	assert.True(t, rev.NoEndDate)
	assert.Nil(t, rev.OffSaleDate)
	assert.Nil(t, rev.SavingsUS)
	assert.False(t, rev.IsPdpRequested)
	assert.Nil(t, rev.PdpWorkRequest)

	rev, err = store.CreateRevision(ctx, sub.ID, rev.ID, database.RevisionPatch{
		IncludeTranslations: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rev.Version)
	assert.Empty(t, rev.Cultures)
}

func TestCreateRevisionCollections(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))
	sub := seedSubmission(ctx, t, store)
	base := sub.Products[0]

	t.Run("replaces when supplied", func(t *testing.T) {
		recs := []database.Recommendation{{Sku: "7904"}, {Sku: "2654"}}
		rev, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{Recommendations: &recs})
		require.NoError(t, err)
		require.Len(t, rev.Recommendations, 2)
		assert.Equal(t, "7904", rev.Recommendations[0].Sku)
		assert.Len(t, rev.Accessories, 2)
	})

	t.Run("explicit empty clears", func(t *testing.T) {
		empty := []database.Accessory{}
		rev, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{Accessories: &empty})
		require.NoError(t, err)
		assert.Empty(t, rev.Accessories)
		assert.Len(t, rev.Recommendations, 1)
	})

	t.Run("blank scalar clears", func(t *testing.T) {
		rev, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{Stamp: strPtr("  ")})
		require.NoError(t, err)
		assert.Nil(t, rev.Stamp)
	})
}

func TestCreateRevisionNotFound(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))
	sub := seedSubmission(ctx, t, store)
	other := seedSubmission(ctx, t, store)

	tests := []struct {
		name         string
		submissionID int64
		productID    int64
	}{
		{"Unknown product", sub.ID, 424242},
		{"Product of another submission", sub.ID, other.Products[0].ID},
		{"Unknown submission", 424242, sub.Products[0].ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateRevision(ctx, tt.submissionID, tt.productID, database.RevisionPatch{Stamp: strPtr("X")})
			require.Error(t, err)
			assert.ErrorIs(t, err, database.ErrNotFound)
			assert.NotErrorIs(t, err, database.ErrPersistence)
		})
	}

	// nothing was flipped
	revisions, err := store.ListRevisions(ctx, sub.ID, sub.Products[0].ID)
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.True(t, revisions[0].IsCurrent)
}

func TestCreateRevisionConcurrent(t *testing.T) {
	ctx := context.Background()
	store := database.NewStore(dbtest.NewPool(t))
	sub := seedSubmission(ctx, t, store)
	base := sub.Products[0]

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateRevision(ctx, sub.ID, base.ID, database.RevisionPatch{Stamp: strPtr("concurrent")})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	revisions, err := store.ListRevisions(ctx, sub.ID, base.ID)
	require.NoError(t, err)
	require.Len(t, revisions, n+1)

	var versions []int
	current := 0
	for _, r := range revisions {
		versions = append(versions, r.Version)
		if r.IsCurrent {
			current++
		}
	}
	sort.Ints(versions)
	for i, v := range versions {
		assert.Equal(t, i+1, v)
	}
	assert.Equal(t, 1, current)
}
