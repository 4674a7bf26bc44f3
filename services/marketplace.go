package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"greenbridge/geo"
	"greenbridge/models"
	"greenbridge/storage"
	"greenbridge/utils"
)

// indianMobile is a ten digit number starting with 6, 7, 8 or 9.
var indianMobile = regexp.MustCompile(`^[6-9]\d{9}$`)

// AddressGeocoder resolves a party's free-text location to coordinates.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// MarketplaceDeps are the collaborators of a Marketplace. Geocoder may be
// nil, in which case parties keep whatever coordinates they registered with.
type MarketplaceDeps struct {
	Store     storage.Store
	Snapshots *SnapshotService
	Predictor *Predictor
	Matcher   *Matcher
	Assistant *Assistant
	Geocoder  AddressGeocoder
	Logger    *utils.Logger

	// RecordHistory appends every computed snapshot to the market_stats table.
	RecordHistory bool
}

// Marketplace ties the store to the pricing, matching and assistant services.
type Marketplace struct {
	store         storage.Store
	snapshots     *SnapshotService
	predictor     *Predictor
	matcher       *Matcher
	assistant     *Assistant
	geocoder      AddressGeocoder
	logger        *utils.Logger
	recordHistory bool

	// unresolved remembers addresses the geocoder had no answer for.
	unresolved *utils.KeySet
}

// NewMarketplace creates a Marketplace from deps.
func NewMarketplace(deps MarketplaceDeps) *Marketplace {
	return &Marketplace{
		store:         deps.Store,
		snapshots:     deps.Snapshots,
		predictor:     deps.Predictor,
		matcher:       deps.Matcher,
		assistant:     deps.Assistant,
		geocoder:      deps.Geocoder,
		logger:        deps.Logger,
		recordHistory: deps.RecordHistory,
		unresolved:    utils.NewKeySet(),
	}
}

// PredictPrice estimates the per-kg price of quantityKg of riceType against
// the live listings and the latest market stat for that type.
func (m *Marketplace) PredictPrice(ctx context.Context, riceType string, quantityKg float64) (*models.PredictionResult, error) {
	riceType = CanonicalRiceType(riceType)
	if riceType == "" {
		return nil, fmt.Errorf("rice type is required: %w", models.ErrInvalidArgument)
	}

	listings, err := m.store.AvailableListings(ctx, models.ListingFilter{RiceType: riceType})
	if err != nil {
		m.logger.Warn("[marketplace] listings unavailable for %s prediction, using baseline: %v", riceType, err)
		listings = nil
	}
	stat := m.snapshots.Snapshot([]string{riceType}, listings)[riceType]
	if stat.IsSynthetic {
		if recorded, err := m.store.LatestMarketStat(ctx, riceType); err == nil {
			stat = recorded
		} else if !errors.Is(err, models.ErrNotFound) {
			m.logger.Warn("[marketplace] market history for %s unavailable: %v", riceType, err)
		}
	}

	res, err := m.predictor.PredictPrice(riceType, quantityKg, MarketContext{Listings: listings, Stat: stat})
	if err != nil {
		return nil, err
	}
	source := "baseline"
	if res.LiveData {
		source = "live"
	}
	predictions.WithLabelValues(source).Inc()
	return res, nil
}

// MarketSnapshot computes the market stats of riceTypes (all known types
// when empty) from the currently available listings.
func (m *Marketplace) MarketSnapshot(ctx context.Context, riceTypes []string) (map[string]*models.MarketStat, error) {
	listings, err := m.store.AvailableListings(ctx, models.ListingFilter{})
	if err != nil {
		return nil, err
	}
	snapshot := m.snapshots.Snapshot(riceTypes, listings)

	if m.recordHistory {
		stats := make([]*models.MarketStat, 0, len(snapshot))
		for _, rt := range orderedTypes(snapshot) {
			stats = append(stats, snapshot[rt])
		}
		if err := m.store.RecordMarketStats(ctx, stats); err != nil {
			m.logger.Warn("[marketplace] recording market history failed: %v", err)
		}
	}
	return snapshot, nil
}

// FindMatches searches sellers for c. When c.Buyer is nil and buyerID is
// set, the buyer's registered coordinates are used.
func (m *Marketplace) FindMatches(ctx context.Context, buyerID int64, c MatchCriteria) ([]models.Match, error) {
	if c.Buyer == nil && buyerID > 0 {
		buyer, err := m.store.GetParty(ctx, buyerID)
		if err != nil {
			return nil, err
		}
		c.Buyer = geo.PartyPoint(buyer)
	}

	filter := models.ListingFilter{}
	if rt := CanonicalRiceType(c.RiceType); !strings.EqualFold(rt, "any") {
		filter.RiceType = rt
	}
	candidates, err := m.store.AvailableSellerListings(ctx, filter)
	if err != nil {
		return nil, err
	}

	matches, err := m.matcher.FindMatches(c, candidates)
	if err != nil {
		return nil, err
	}
	matchResults.Observe(float64(len(matches)))
	return matches, nil
}

// Chat answers message for the party and logs the exchange. partyID 0 is an
// anonymous guest whose exchanges are not logged.
func (m *Marketplace) Chat(ctx context.Context, partyID int64, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, fmt.Errorf("message is required: %w", models.ErrInvalidArgument)
	}

	var party *models.Party
	if partyID > 0 {
		p, err := m.store.GetParty(ctx, partyID)
		if err != nil {
			return Reply{}, err
		}
		party = p
	}

	listings, err := m.store.AvailableListings(ctx, models.ListingFilter{})
	if err != nil {
		m.logger.Warn("[marketplace] listings unavailable for chat, answering from baseline: %v", err)
		listings = nil
	}
	view := MarketView{Snapshot: m.snapshots.Snapshot(nil, listings), Listings: listings}

	reply := m.assistant.Respond(ctx, message, party, view)

	if party != nil {
		exchange := &models.ChatExchange{
			PartyID:  party.ID,
			Message:  message,
			Response: reply.Text,
			Intent:   string(reply.Intent),
			Source:   reply.Source,
		}
		if err := m.store.AppendChatExchange(ctx, exchange); err != nil {
			m.logger.Warn("[marketplace] chat log for party %d not saved: %v", party.ID, err)
		}
	}
	return reply, nil
}

// RecentChats returns up to limit of the party's latest exchanges, oldest first.
func (m *Marketplace) RecentChats(ctx context.Context, partyID int64, limit int) ([]*models.ChatExchange, error) {
	if limit <= 0 {
		limit = 10
	}
	return m.store.RecentChatExchanges(ctx, partyID, limit)
}

// RegisterParty validates and stores p. A party registered without
// coordinates is geocoded from its location when a geocoder is configured;
// geocoding failures leave the coordinates empty.
func (m *Marketplace) RegisterParty(ctx context.Context, p *models.Party) error {
	p.FullName = normaliseText(p.FullName)
	p.Mobile = digitsOnly(p.Mobile)
	p.Location = normaliseText(p.Location)
	p.UserType = strings.ToLower(strings.TrimSpace(p.UserType))
	if p.UserType == "" {
		p.UserType = models.PartyBuyer
	}

	switch {
	case p.FullName == "":
		return fmt.Errorf("full name is required: %w", models.ErrInvalidArgument)
	case p.Mobile == "":
		return fmt.Errorf("mobile is required: %w", models.ErrInvalidArgument)
	case !indianMobile.MatchString(p.Mobile):
		return fmt.Errorf("mobile %q is not a valid Indian mobile number: %w", p.Mobile, models.ErrInvalidArgument)
	}
	switch p.UserType {
	case models.PartyBuyer, models.PartySeller, models.PartyBoth:
	default:
		return fmt.Errorf("user type %q: %w", p.UserType, models.ErrInvalidArgument)
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be given together: %w", models.ErrInvalidArgument)
	}
	if pt := geo.PartyPoint(p); pt != nil {
		if err := pt.Validate(); err != nil {
			return err
		}
	}

	if !p.HasCoordinates() && p.Location != "" && m.geocoder != nil {
		if pt, err := m.geocoder.Geocode(ctx, p.Location); err == nil {
			p.Latitude, p.Longitude = &pt.Lat, &pt.Lon
		} else {
			m.logger.Warn("[marketplace] could not geocode %q, distance features disabled: %v", p.Location, err)
		}
	}

	if err := m.store.CreateParty(ctx, p); err != nil {
		return err
	}
	m.logger.Info("[marketplace] registered %s %d (%s)", p.UserType, p.ID, p.FullName)
	return nil
}

// GetParty returns a registered party.
func (m *Marketplace) GetParty(ctx context.Context, id int64) (*models.Party, error) {
	return m.store.GetParty(ctx, id)
}

// SellerContact returns the name and mobile of a seller so a buyer can reach
// them. Parties that cannot sell are reported as not found.
func (m *Marketplace) SellerContact(ctx context.Context, sellerID int64) (*models.Contact, error) {
	p, err := m.store.GetParty(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !p.IsSeller() {
		return nil, fmt.Errorf("seller %d: %w", sellerID, models.ErrNotFound)
	}
	m.logger.Info("[marketplace] contact requested for seller %d", p.ID)
	return &models.Contact{PartyID: p.ID, FullName: p.FullName, Mobile: p.Mobile, Location: p.Location}, nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// CreateListing validates l and stores it as an available listing of its seller.
func (m *Marketplace) CreateListing(ctx context.Context, l *models.Listing) error {
	seller, err := m.store.GetParty(ctx, l.SellerID)
	if err != nil {
		return err
	}
	if !seller.IsSeller() {
		return fmt.Errorf("party %d is a %s and cannot list rice: %w", seller.ID, seller.UserType, models.ErrInvalidArgument)
	}
	if err := NormaliseListing(l); err != nil {
		return err
	}
	l.IsAvailable = true
	return m.store.CreateListing(ctx, l)
}

// UpdateListing validates and rewrites a listing owned by l.SellerID.
func (m *Marketplace) UpdateListing(ctx context.Context, l *models.Listing) error {
	if err := NormaliseListing(l); err != nil {
		return err
	}
	return m.store.UpdateListing(ctx, l)
}

// SetListingAvailability soft-removes or restores a seller's listing.
func (m *Marketplace) SetListingAvailability(ctx context.Context, listingID, sellerID int64, available bool) error {
	return m.store.SetListingAvailability(ctx, listingID, sellerID, available)
}

// DeleteListing permanently removes a seller's listing.
func (m *Marketplace) DeleteListing(ctx context.Context, listingID, sellerID int64) error {
	return m.store.DeleteListing(ctx, listingID, sellerID)
}

// Listings returns the available listings matching f.
func (m *Marketplace) Listings(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	f.RiceType = CanonicalRiceType(f.RiceType)
	return m.store.AvailableListings(ctx, f)
}

// GetListing returns a listing by id, available or not.
func (m *Marketplace) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	return m.store.GetListing(ctx, id)
}
