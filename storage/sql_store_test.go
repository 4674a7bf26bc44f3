package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenbridge/models"
	"greenbridge/utils"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(context.Background(), DriverSQLite, ":memory:", utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(f float64) *float64 { return &f }

func seedSeller(t *testing.T, s *SQLStore, mobile string, lat, lon *float64) *models.Party {
	t.Helper()
	p := &models.Party{FullName: "Ravi " + mobile, Mobile: mobile, Location: "Guntur", Latitude: lat, Longitude: lon, UserType: models.PartySeller}
	require.NoError(t, s.CreateParty(context.Background(), p))
	return p
}

func seedListing(t *testing.T, s *SQLStore, sellerID int64, riceType string, qty, price float64) *models.Listing {
	t.Helper()
	l := &models.Listing{SellerID: sellerID, RiceType: riceType, QuantityKg: qty, PricePerKg: price, QualityGrade: models.GradeA, IsAvailable: true}
	require.NoError(t, s.CreateListing(context.Background(), l))
	return l
}

func TestNewSQLStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLStore(context.Background(), "mysql", "", utils.NewNopLogger())
	assert.Error(t, err)
}

func TestParties(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := seedSeller(t, s, "9000000001", nil, nil)
	assert.NotZero(t, p.ID)

	got, err := s.GetParty(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.FullName, got.FullName)
	assert.False(t, got.HasCoordinates())

	missing, err := s.PartiesMissingCoordinates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)

	require.NoError(t, s.UpdatePartyCoordinates(ctx, p.ID, 16.3, 80.45))
	got, err = s.GetParty(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 16.3, *got.Latitude, 1e-9)

	missing, err = s.PartiesMissingCoordinates(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = s.GetParty(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.UpdatePartyCoordinates(ctx, 999, 1, 1), models.ErrNotFound)
}

func TestListings_OwnershipScopedMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	owner := seedSeller(t, s, "9000000001", nil, nil)
	other := seedSeller(t, s, "9000000002", nil, nil)

	harvest := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l := &models.Listing{SellerID: owner.ID, RiceType: "Basmati", QuantityKg: 500, PricePerKg: 64, QualityGrade: models.GradeA, IsAvailable: true, HarvestDate: &harvest}
	require.NoError(t, s.CreateListing(ctx, l))

	got, err := s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HarvestDate)
	assert.True(t, got.HarvestDate.Equal(harvest))

	foreign := *l
	foreign.SellerID = other.ID
	foreign.PricePerKg = 1
	assert.ErrorIs(t, s.UpdateListing(ctx, &foreign), models.ErrNotFound)
	assert.ErrorIs(t, s.SetListingAvailability(ctx, l.ID, other.ID, false), models.ErrNotFound)
	assert.ErrorIs(t, s.DeleteListing(ctx, l.ID, other.ID), models.ErrNotFound)

	l.PricePerKg = 66
	require.NoError(t, s.UpdateListing(ctx, l))
	got, err = s.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.0, got.PricePerKg)

	require.NoError(t, s.SetListingAvailability(ctx, l.ID, owner.ID, false))
	available, err := s.AvailableListings(ctx, models.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, available)

	require.NoError(t, s.DeleteListing(ctx, l.ID, owner.ID))
	_, err = s.GetListing(ctx, l.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAvailableListings_Filters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := seedSeller(t, s, "9000000001", ptr(17.38), ptr(78.48))
	b := seedSeller(t, s, "9000000002", nil, nil)

	seedListing(t, s, a.ID, "Basmati", 100, 60)
	seedListing(t, s, a.ID, "Ponni", 2000, 40)
	seedListing(t, s, b.ID, "Basmati", 1500, 62)

	all, err := s.AvailableListings(ctx, models.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	basmati, err := s.AvailableListings(ctx, models.ListingFilter{RiceType: "Basmati", MinQuantityKg: 1000})
	require.NoError(t, err)
	require.Len(t, basmati, 1)
	assert.Equal(t, b.ID, basmati[0].SellerID)

	limited, err := s.AvailableListings(ctx, models.ListingFilter{SellerID: a.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	joined, err := s.AvailableSellerListings(ctx, models.ListingFilter{RiceType: "Basmati"})
	require.NoError(t, err)
	require.Len(t, joined, 2)
	assert.Equal(t, a.FullName, joined[0].Seller.FullName)
	assert.True(t, joined[0].Seller.HasCoordinates())
	assert.False(t, joined[1].Seller.HasCoordinates())
}

func TestChatExchanges_RecentOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedSeller(t, s, "9000000001", nil, nil)

	for _, msg := range []string{"one", "two", "three"} {
		c := &models.ChatExchange{PartyID: p.ID, Message: msg, Response: "ok", Intent: "general_inquiry", Source: models.SourceFallback}
		require.NoError(t, s.AppendChatExchange(ctx, c))
		assert.NotZero(t, c.ID)
	}

	recent, err := s.RecentChatExchanges(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
}

func TestMarketStats_Latest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LatestMarketStat(ctx, "Basmati")
	assert.ErrorIs(t, err, models.ErrNotFound)

	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordMarketStats(ctx, []*models.MarketStat{
		{RiceType: "Basmati", AveragePrice: 60, Trend: models.TrendIncreasing, Demand: models.DemandLow, ComputedAt: t0},
		{RiceType: "Ponni", AveragePrice: 40, Trend: models.TrendStable, Demand: models.DemandMedium, IsSynthetic: true, ComputedAt: t0},
	}))
	require.NoError(t, s.RecordMarketStats(ctx, []*models.MarketStat{
		{RiceType: "Basmati", AveragePrice: 64, Trend: models.TrendVolatile, Demand: models.DemandHigh, ComputedAt: t0.Add(time.Hour)},
	}))

	st, err := s.LatestMarketStat(ctx, "Basmati")
	require.NoError(t, err)
	assert.Equal(t, 64.0, st.AveragePrice)
	assert.Equal(t, models.TrendVolatile, st.Trend)

	_, err = s.LatestMarketStat(ctx, "Ponni")
	assert.ErrorIs(t, err, models.ErrNotFound, "synthetic rows are not observed history")

	require.NoError(t, s.RecordMarketStats(ctx, []*models.MarketStat{
		{RiceType: "Basmati", AveragePrice: 70, Trend: models.TrendStable, Demand: models.DemandMedium, IsSynthetic: true, ComputedAt: t0.Add(2 * time.Hour)},
	}))
	st, err = s.LatestMarketStat(ctx, "Basmati")
	require.NoError(t, err)
	assert.False(t, st.IsSynthetic)
	assert.Equal(t, 64.0, st.AveragePrice)
}
