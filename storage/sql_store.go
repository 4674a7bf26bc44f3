package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"greenbridge/models"
	"greenbridge/utils"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore implements Store on PostgreSQL or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	logger *utils.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore opens a connection, waits for the database to answer, runs
// schema migrations and returns a ready-to-use store.
func NewSQLStore(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SQLStore, error) {
	var schema string
	switch driver {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if driver == DriverSQLite {
		// :memory: databases exist per connection.
		db.SetMaxOpenConns(1)
	}

	ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second, Logger: logger}
	if err := ping.Do(ctx, "storage-ping", func(ctx context.Context) error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, logger: logger}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: enable foreign keys: %w", err)
		}
	}

	logger.Info("[storage] %s store ready", driver)
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func affectedOrNotFound(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

// ── parties ─────────────────────────────────────────────────────────────

const partyColumns = `id, full_name, mobile, location, latitude, longitude, user_type, created_at`

// CreateParty inserts p and sets its ID and CreatedAt.
func (s *SQLStore) CreateParty(ctx context.Context, p *models.Party) error {
	if p.UserType == "" {
		p.UserType = models.PartyBuyer
	}
	p.CreatedAt = time.Now().UTC()

	id, err := s.insertReturningID(ctx, `
		INSERT INTO parties (full_name, mobile, location, latitude, longitude, user_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.FullName, p.Mobile, p.Location, p.Latitude, p.Longitude, p.UserType, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create party: %w", err)
	}
	p.ID = id
	return nil
}

// GetParty returns the party with id or ErrNotFound.
func (s *SQLStore) GetParty(ctx context.Context, id int64) (*models.Party, error) {
	var p models.Party
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT `+partyColumns+` FROM parties WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("party %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get party: %w", err)
	}
	return &p, nil
}

// UpdatePartyCoordinates stores geocoded coordinates for a party.
func (s *SQLStore) UpdatePartyCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE parties SET latitude = ?, longitude = ? WHERE id = ?`), lat, lon, id)
	if err != nil {
		return fmt.Errorf("storage: update coordinates: %w", err)
	}
	return affectedOrNotFound(res, fmt.Sprintf("party %d", id))
}

// PartiesMissingCoordinates lists parties with a location text but no coordinates.
func (s *SQLStore) PartiesMissingCoordinates(ctx context.Context, limit int) ([]*models.Party, error) {
	if limit <= 0 {
		limit = 100
	}
	var parties []*models.Party
	err := s.db.SelectContext(ctx, &parties, s.db.Rebind(`
		SELECT `+partyColumns+` FROM parties
		WHERE (latitude IS NULL OR longitude IS NULL) AND location <> ''
		ORDER BY id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("storage: parties missing coordinates: %w", err)
	}
	return parties, nil
}

// ── listings ────────────────────────────────────────────────────────────

const listingColumns = `id, seller_id, rice_type, quantity_kg, price_per_kg, quality_grade, organic,
	is_available, description, harvest_date, created_at, updated_at`

// CreateListing inserts l and sets its ID and timestamps.
func (s *SQLStore) CreateListing(ctx context.Context, l *models.Listing) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now

	id, err := s.insertReturningID(ctx, `
		INSERT INTO listings (seller_id, rice_type, quantity_kg, price_per_kg, quality_grade, organic,
			is_available, description, harvest_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.SellerID, l.RiceType, l.QuantityKg, l.PricePerKg, l.QualityGrade, l.Organic,
		l.IsAvailable, l.Description, l.HarvestDate, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: create listing: %w", err)
	}
	l.ID = id
	return nil
}

// GetListing returns the listing with id or ErrNotFound.
func (s *SQLStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var l models.Listing
	err := s.db.GetContext(ctx, &l, s.db.Rebind(`SELECT `+listingColumns+` FROM listings WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get listing: %w", err)
	}
	return &l, nil
}

// UpdateListing rewrites the mutable fields of l. The row must belong to
// l.SellerID, otherwise ErrNotFound.
func (s *SQLStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE listings
		SET rice_type = ?, quantity_kg = ?, price_per_kg = ?, quality_grade = ?, organic = ?,
			is_available = ?, description = ?, harvest_date = ?, updated_at = ?
		WHERE id = ? AND seller_id = ?`),
		l.RiceType, l.QuantityKg, l.PricePerKg, l.QualityGrade, l.Organic,
		l.IsAvailable, l.Description, l.HarvestDate, l.UpdatedAt, l.ID, l.SellerID)
	if err != nil {
		return fmt.Errorf("storage: update listing: %w", err)
	}
	return affectedOrNotFound(res, fmt.Sprintf("listing %d of seller %d", l.ID, l.SellerID))
}

// SetListingAvailability soft-removes or restores a listing.
func (s *SQLStore) SetListingAvailability(ctx context.Context, id, sellerID int64, available bool) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE listings SET is_available = ?, updated_at = ? WHERE id = ? AND seller_id = ?`),
		available, time.Now().UTC(), id, sellerID)
	if err != nil {
		return fmt.Errorf("storage: set availability: %w", err)
	}
	return affectedOrNotFound(res, fmt.Sprintf("listing %d of seller %d", id, sellerID))
}

// DeleteListing hard-deletes a listing owned by sellerID.
func (s *SQLStore) DeleteListing(ctx context.Context, id, sellerID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM listings WHERE id = ? AND seller_id = ?`), id, sellerID)
	if err != nil {
		return fmt.Errorf("storage: delete listing: %w", err)
	}
	return affectedOrNotFound(res, fmt.Sprintf("listing %d of seller %d", id, sellerID))
}

func listingWhere(f models.ListingFilter, alias string) (string, []any) {
	conds := []string{alias + "is_available = ?"}
	args := []any{true}
	if f.RiceType != "" {
		conds = append(conds, alias+"rice_type = ?")
		args = append(args, f.RiceType)
	}
	if f.MinQuantityKg > 0 {
		conds = append(conds, alias+"quantity_kg >= ?")
		args = append(args, f.MinQuantityKg)
	}
	if f.SellerID > 0 {
		conds = append(conds, alias+"seller_id = ?")
		args = append(args, f.SellerID)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func limitClause(limit int, args []any) (string, []any) {
	if limit <= 0 {
		return "", args
	}
	return " LIMIT ?", append(args, limit)
}

// AvailableListings returns available listings matching f, newest first.
func (s *SQLStore) AvailableListings(ctx context.Context, f models.ListingFilter) ([]*models.Listing, error) {
	where, args := listingWhere(f, "")
	limit, args := limitClause(f.Limit, args)

	var listings []*models.Listing
	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY created_at DESC, id DESC` + limit
	if err := s.db.SelectContext(ctx, &listings, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("storage: available listings: %w", err)
	}
	return listings, nil
}

type sellerListingRow struct {
	models.Listing
	SellerName      string   `db:"seller_name"`
	SellerMobile    string   `db:"seller_mobile"`
	SellerLocation  string   `db:"seller_location"`
	SellerLatitude  *float64 `db:"seller_latitude"`
	SellerLongitude *float64 `db:"seller_longitude"`
	SellerUserType  string   `db:"seller_user_type"`
}

// AvailableSellerListings returns available listings joined with their seller.
func (s *SQLStore) AvailableSellerListings(ctx context.Context, f models.ListingFilter) ([]*models.SellerListing, error) {
	where, args := listingWhere(f, "l.")
	limit, args := limitClause(f.Limit, args)

	query := `
		SELECT l.id, l.seller_id, l.rice_type, l.quantity_kg, l.price_per_kg, l.quality_grade, l.organic,
			l.is_available, l.description, l.harvest_date, l.created_at, l.updated_at,
			p.full_name AS seller_name, p.mobile AS seller_mobile, p.location AS seller_location,
			p.latitude AS seller_latitude, p.longitude AS seller_longitude, p.user_type AS seller_user_type
		FROM listings l
		JOIN parties p ON p.id = l.seller_id` + where + ` ORDER BY l.id` + limit

	var rows []sellerListingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("storage: seller listings: %w", err)
	}

	out := make([]*models.SellerListing, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.SellerListing{
			Listing: r.Listing,
			Seller: models.Party{
				ID:        r.SellerID,
				FullName:  r.SellerName,
				Mobile:    r.SellerMobile,
				Location:  r.SellerLocation,
				Latitude:  r.SellerLatitude,
				Longitude: r.SellerLongitude,
				UserType:  r.SellerUserType,
			},
		})
	}
	return out, nil
}

// ── chat ────────────────────────────────────────────────────────────────

// AppendChatExchange logs one assistant turn.
func (s *SQLStore) AppendChatExchange(ctx context.Context, c *models.ChatExchange) error {
	c.CreatedAt = time.Now().UTC()
	id, err := s.insertReturningID(ctx, `
		INSERT INTO chat_exchanges (party_id, message, response, intent, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.PartyID, c.Message, c.Response, c.Intent, c.Source, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: append chat: %w", err)
	}
	c.ID = id
	return nil
}

// RecentChatExchanges returns the latest exchanges of a party, oldest first.
func (s *SQLStore) RecentChatExchanges(ctx context.Context, partyID int64, limit int) ([]*models.ChatExchange, error) {
	if limit <= 0 {
		limit = 10
	}
	var chats []*models.ChatExchange
	err := s.db.SelectContext(ctx, &chats, s.db.Rebind(`
		SELECT id, party_id, message, response, intent, source, created_at
		FROM chat_exchanges WHERE party_id = ?
		ORDER BY id DESC LIMIT ?`), partyID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: recent chats: %w", err)
	}
	for i, j := 0, len(chats)-1; i < j; i, j = i+1, j-1 {
		chats[i], chats[j] = chats[j], chats[i]
	}
	return chats, nil
}

// ── market stats ────────────────────────────────────────────────────────

// RecordMarketStats appends stats to the history table in one transaction.
func (s *SQLStore) RecordMarketStats(ctx context.Context, stats []*models.MarketStat) error {
	if len(stats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := tx.Rebind(`
		INSERT INTO market_stats (rice_type, average_price, min_price, max_price, trend, demand,
			listing_count, total_quantity_kg, is_synthetic, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, st := range stats {
		computed := st.ComputedAt
		if computed.IsZero() {
			computed = time.Now()
		}
		if _, err := tx.ExecContext(ctx, query,
			st.RiceType, st.AveragePrice, st.MinPrice, st.MaxPrice, st.Trend, st.Demand,
			st.ListingCount, st.TotalQuantityKg, st.IsSynthetic, computed.UTC()); err != nil {
			return fmt.Errorf("storage: record stat %s: %w", st.RiceType, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// LatestMarketStat returns the most recent observed (non-synthetic) stat for
// riceType or ErrNotFound.
func (s *SQLStore) LatestMarketStat(ctx context.Context, riceType string) (*models.MarketStat, error) {
	var st models.MarketStat
	err := s.db.GetContext(ctx, &st, s.db.Rebind(`
		SELECT id, rice_type, average_price, min_price, max_price, trend, demand,
			listing_count, total_quantity_kg, is_synthetic, computed_at
		FROM market_stats WHERE rice_type = ? AND is_synthetic = ?
		ORDER BY computed_at DESC, id DESC LIMIT 1`), riceType, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("market stat %s: %w", riceType, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: latest stat: %w", err)
	}
	return &st, nil
}
