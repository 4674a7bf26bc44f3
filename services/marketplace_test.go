package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenbridge/ai"
	"greenbridge/geo"
	"greenbridge/models"
	"greenbridge/storage"
	"greenbridge/utils"
)

type marketplaceFixture struct {
	*Marketplace
	store *storage.SQLStore
}

func newTestMarketplace(t *testing.T, gen ai.Generator, geocoder AddressGeocoder) marketplaceFixture {
	t.Helper()
	logger := utils.NewNopLogger()
	store, err := storage.NewSQLStore(context.Background(), storage.DriverSQLite, ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	predictor := newTestPredictor(time.January, nil)
	assistant := NewAssistant(gen, &utils.RetryConfig{MaxAttempts: 1, Logger: logger}, predictor, logger)
	assistant.now = fixedClock(time.January)

	m := NewMarketplace(MarketplaceDeps{
		Store:         store,
		Snapshots:     NewSnapshotService(logger, nil),
		Predictor:     predictor,
		Matcher:       NewMatcher(logger, 50, 20),
		Assistant:     assistant,
		Geocoder:      geocoder,
		Logger:        logger,
		RecordHistory: true,
	})
	return marketplaceFixture{Marketplace: m, store: store}
}

func (f marketplaceFixture) seller(t *testing.T, mobile string, lat, lon float64) *models.Party {
	t.Helper()
	la, lo := coords(lat, lon)
	p := &models.Party{FullName: "Farmer " + mobile, Mobile: mobile, Location: "Telangana", Latitude: la, Longitude: lo, UserType: models.PartySeller}
	require.NoError(t, f.RegisterParty(context.Background(), p))
	return p
}

func (f marketplaceFixture) list(t *testing.T, sellerID int64, riceType string, qty, price float64) *models.Listing {
	t.Helper()
	l := &models.Listing{SellerID: sellerID, RiceType: riceType, QuantityKg: qty, PricePerKg: price}
	require.NoError(t, f.CreateListing(context.Background(), l))
	return l
}

func TestMarketplace_PredictPriceFromLiveListings(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	s := f.seller(t, "9000000001", 17.40, 78.50)
	f.list(t, s.ID, "Basmati", 500, 60)
	f.list(t, s.ID, "basmati", 800, 62)

	res, err := f.PredictPrice(ctx, "Basmati", 100)
	require.NoError(t, err)
	assert.True(t, res.LiveData)
	assert.Equal(t, ConfidenceLive, res.Confidence)
	assert.InDelta(t, 61*1.03*0.98, res.PredictedPrice, 0.005)

	_, err = f.PredictPrice(ctx, "", 100)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = f.PredictPrice(ctx, "Basmati", 0)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestMarketplace_PredictPriceUsesRecordedHistory(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	require.NoError(t, f.store.RecordMarketStats(ctx, []*models.MarketStat{
		{RiceType: "Ponni", AveragePrice: 41, Trend: models.TrendIncreasing, Demand: models.DemandMedium, ComputedAt: time.Now()},
	}))

	res, err := f.PredictPrice(ctx, "Ponni", 100)
	require.NoError(t, err)
	assert.False(t, res.LiveData)
	assert.Equal(t, ConfidenceBaseline, res.Confidence)
	assert.Contains(t, factorNames(res), "Rising market trend")
}

func TestMarketplace_PredictPriceIgnoresRecordedSynthetics(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	require.NoError(t, f.store.RecordMarketStats(ctx, []*models.MarketStat{
		{RiceType: "Ponni", AveragePrice: 41, Trend: models.TrendIncreasing, Demand: models.DemandMedium, ComputedAt: time.Now().Add(-time.Hour)},
	}))

	// no Ponni listings, so this records a synthetic stable row after the observed one
	snap, err := f.MarketSnapshot(ctx, []string{"Ponni"})
	require.NoError(t, err)
	require.True(t, snap["Ponni"].IsSynthetic)

	res, err := f.PredictPrice(ctx, "Ponni", 100)
	require.NoError(t, err)
	assert.Contains(t, factorNames(res), "Rising market trend")
}

func TestMarketplace_PredictPriceWithStoreDown(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	require.NoError(t, f.store.Close())

	res, err := f.PredictPrice(ctx, "Basmati", 100)
	require.NoError(t, err)
	assert.False(t, res.LiveData)
	assert.Equal(t, ConfidenceBaseline, res.Confidence)
	assert.Greater(t, res.PredictedPrice, 0.0)
}

func TestMarketplace_SnapshotRecordsHistory(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	s := f.seller(t, "9000000001", 17.40, 78.50)
	f.list(t, s.ID, "Jasmine", 500, 50)

	snap, err := f.MarketSnapshot(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, snap, len(RiceTypes))
	assert.False(t, snap["Jasmine"].IsSynthetic)
	assert.True(t, snap["Basmati"].IsSynthetic)

	recorded, err := f.store.LatestMarketStat(ctx, "Jasmine")
	require.NoError(t, err)
	assert.Equal(t, 50.0, recorded.AveragePrice)
}

func TestMarketplace_FindMatchesForRegisteredBuyer(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	near := f.seller(t, "9000000001", 17.40, 78.50)
	mid := f.seller(t, "9000000002", 17.60, 78.50)
	f.list(t, mid.ID, "Basmati", 1000, 61)
	f.list(t, near.ID, "Basmati", 1000, 63)
	f.list(t, near.ID, "Ponni", 1000, 40)

	la, lo := coords(17.385, 78.4867)
	buyer := &models.Party{FullName: "Buyer", Mobile: "9000000009", Latitude: la, Longitude: lo}
	require.NoError(t, f.RegisterParty(ctx, buyer))

	matches, err := f.FindMatches(ctx, buyer.ID, MatchCriteria{RiceType: "Basmati", Quantity: 5, Unit: "quintal"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, near.FullName, matches[0].SellerName)
	assert.Equal(t, mid.FullName, matches[1].SellerName)

	_, err = f.FindMatches(ctx, 999, MatchCriteria{RiceType: "Basmati"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarketplace_ChatLogsExchanges(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{replies: []string{"Basmati is selling well."}}
	f := newTestMarketplace(t, gen, nil)
	s := f.seller(t, "9000000001", 17.40, 78.50)

	reply, err := f.Chat(ctx, s.ID, "How is basmati doing in the market?")
	require.NoError(t, err)
	assert.Equal(t, models.SourceUpstream, reply.Source)

	reply, err = f.Chat(ctx, s.ID, "and the price?")
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, reply.Source)

	history, err := f.RecentChats(ctx, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(IntentMarket), history[0].Intent)
	assert.Equal(t, "Basmati is selling well.", history[0].Response)
	assert.Equal(t, models.SourceFallback, history[1].Source)

	_, err = f.Chat(ctx, 0, "hello")
	assert.NoError(t, err)
	_, err = f.Chat(ctx, s.ID, "   ")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = f.Chat(ctx, 999, "hello")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarketplace_ListingRules(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)
	s := f.seller(t, "9000000001", 17.40, 78.50)
	buyer := &models.Party{FullName: "Buyer", Mobile: "9000000009"}
	require.NoError(t, f.RegisterParty(ctx, buyer))

	err := f.CreateListing(ctx, &models.Listing{SellerID: buyer.ID, RiceType: "Ponni", QuantityKg: 10, PricePerKg: 40})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	err = f.CreateListing(ctx, &models.Listing{SellerID: s.ID, RiceType: "Ponni", QuantityKg: 10, PricePerKg: 40, QualityGrade: "X"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	err = f.CreateListing(ctx, &models.Listing{SellerID: 999, RiceType: "Ponni", QuantityKg: 10, PricePerKg: 40})
	assert.ErrorIs(t, err, models.ErrNotFound)

	l := f.list(t, s.ID, "ponni", 10, 40)
	assert.Equal(t, "Ponni", l.RiceType)
	assert.True(t, l.IsAvailable)

	assert.ErrorIs(t, f.SetListingAvailability(ctx, l.ID, buyer.ID, false), models.ErrNotFound)
	require.NoError(t, f.SetListingAvailability(ctx, l.ID, s.ID, false))

	listings, err := f.Listings(ctx, models.ListingFilter{RiceType: "PONNI"})
	require.NoError(t, err)
	assert.Empty(t, listings)

	require.NoError(t, f.DeleteListing(ctx, l.ID, s.ID))
	assert.ErrorIs(t, f.DeleteListing(ctx, l.ID, s.ID), models.ErrNotFound)
}

func TestMarketplace_RegisterPartyValidationAndGeocoding(t *testing.T) {
	ctx := context.Background()
	geocoder := newFakeGeocoder(map[string]geo.Point{"warangal": {Lat: 17.9689, Lon: 79.5941}})
	f := newTestMarketplace(t, nil, geocoder)

	p := &models.Party{FullName: " Anil  Kumar ", Mobile: "9000000001", Location: "Warangal", UserType: "Seller"}
	require.NoError(t, f.RegisterParty(ctx, p))
	assert.Equal(t, "Anil Kumar", p.FullName)
	assert.Equal(t, models.PartySeller, p.UserType)
	require.True(t, p.HasCoordinates())
	assert.InDelta(t, 17.9689, *p.Latitude, 1e-9)

	unknown := &models.Party{FullName: "Ravi", Mobile: "9000000002", Location: "Nowhere"}
	require.NoError(t, f.RegisterParty(ctx, unknown))
	assert.False(t, unknown.HasCoordinates())

	lat := 120.0
	bad := []*models.Party{
		{Mobile: "1"},
		{FullName: "x"},
		{FullName: "x", Mobile: "2", UserType: "admin"},
		{FullName: "x", Mobile: "3", Latitude: &lat},
		{FullName: "x", Mobile: "4", Latitude: &lat, Longitude: &lat},
		{FullName: "x", Mobile: "5123456789"},
		{FullName: "x", Mobile: "98765"},
		{FullName: "x", Mobile: "98765432101"},
	}
	for _, b := range bad {
		assert.ErrorIs(t, f.RegisterParty(ctx, b), models.ErrInvalidArgument, "%+v", b)
	}
}

func TestMarketplace_MobileNormalisedAndSellerContact(t *testing.T) {
	ctx := context.Background()
	f := newTestMarketplace(t, nil, nil)

	seller := &models.Party{FullName: "Lakshmi", Mobile: "98765-43210", Location: "Nalgonda", UserType: models.PartySeller}
	require.NoError(t, f.RegisterParty(ctx, seller))
	assert.Equal(t, "9876543210", seller.Mobile)

	contact, err := f.SellerContact(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, &models.Contact{PartyID: seller.ID, FullName: "Lakshmi", Mobile: "9876543210", Location: "Nalgonda"}, contact)

	buyer := &models.Party{FullName: "Buyer", Mobile: "7000000001"}
	require.NoError(t, f.RegisterParty(ctx, buyer))
	_, err = f.SellerContact(ctx, buyer.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.SellerContact(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarketplace_BackfillCoordinates(t *testing.T) {
	ctx := context.Background()
	geocoder := newFakeGeocoder(map[string]geo.Point{"guntur": {Lat: 16.3067, Lon: 80.4365}})
	f := newTestMarketplace(t, nil, nil)

	for i, loc := range []string{"Guntur", "guntur", "Atlantis"} {
		p := &models.Party{FullName: "P", Mobile: "900000000" + string(rune('0'+i)), Location: loc}
		require.NoError(t, f.RegisterParty(ctx, p))
	}
	f.geocoder = geocoder

	res, err := f.BackfillCoordinates(ctx, utils.NewWorkerPool(2, 0), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Unresolved)
	assert.Equal(t, 1, geocoder.callsFor("Guntur"))

	res, err = f.BackfillCoordinates(ctx, utils.NewWorkerPool(2, 0), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, geocoder.callsFor("Atlantis"))
}

func TestMarketplace_BackfillRequiresGeocoder(t *testing.T) {
	f := newTestMarketplace(t, nil, nil)
	_, err := f.BackfillCoordinates(context.Background(), utils.NewWorkerPool(1, 0), 10)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}
