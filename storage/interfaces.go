package storage

import (
	"context"

	"greenbridge/models"
)

// PartyStore persists buyers and sellers.
type PartyStore interface {
	CreateParty(ctx context.Context, p *models.Party) error
	GetParty(ctx context.Context, id int64) (*models.Party, error)
	UpdatePartyCoordinates(ctx context.Context, id int64, lat, lon float64) error
	PartiesMissingCoordinates(ctx context.Context, limit int) ([]*models.Party, error)
}

// ListingStore persists listings. Mutations are scoped to the owning seller.
type ListingStore interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	SetListingAvailability(ctx context.Context, id, sellerID int64, available bool) error
	DeleteListing(ctx context.Context, id, sellerID int64) error
	AvailableListings(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error)
	AvailableSellerListings(ctx context.Context, f models.ListingFilter) ([]*models.SellerListing, error)
}

// ChatStore appends and reads the chat log.
type ChatStore interface {
	AppendChatExchange(ctx context.Context, c *models.ChatExchange) error
	RecentChatExchanges(ctx context.Context, partyID int64, limit int) ([]*models.ChatExchange, error)
}

// MarketStatStore keeps a history of computed market stats.
type MarketStatStore interface {
	RecordMarketStats(ctx context.Context, stats []*models.MarketStat) error
	LatestMarketStat(ctx context.Context, riceType string) (*models.MarketStat, error)
}

// Store is everything the marketplace needs from persistence.
type Store interface {
	PartyStore
	ListingStore
	ChatStore
	MarketStatStore
	Close() error
}
