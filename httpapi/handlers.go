package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"greenbridge/geo"
	"greenbridge/models"
	"greenbridge/services"
)

// ── pricing and market ──────────────────────────────────────────────────

type predictRequest struct {
	RiceType string  `json:"rice_type" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Unit     string  `json:"unit"`
}

func (s *Server) predictPrice(c echo.Context) error {
	req, err := bindRequest[predictRequest](c)
	if err != nil {
		return err
	}
	kg, err := services.ToKg(req.Quantity, req.Unit)
	if err != nil {
		return err
	}
	res, err := s.market.PredictPrice(c.Request().Context(), req.RiceType, kg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type marketResponse struct {
	Stats    []*models.MarketStat `json:"stats"`
	Insights map[string]string    `json:"insights"`
}

func (s *Server) marketSnapshot(c echo.Context) error {
	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	snapshot, err := s.market.MarketSnapshot(c.Request().Context(), types)
	if err != nil {
		return err
	}

	resp := marketResponse{Insights: make(map[string]string, len(snapshot))}
	order := types
	if len(order) == 0 {
		order = services.RiceTypes
	}
	for _, rt := range order {
		if st, ok := snapshot[services.CanonicalRiceType(rt)]; ok {
			resp.Stats = append(resp.Stats, st)
			resp.Insights[st.RiceType] = services.MarketInsight(st)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) riceInfo(c echo.Context) error {
	name := services.CanonicalRiceType(c.Param("name"))
	return c.JSON(http.StatusOK, map[string]any{
		"rice_type":      name,
		"baseline_price": services.BaselinePrice(name),
		"info":           services.RiceTypeInfo(name),
	})
}

// ── matching and chat ───────────────────────────────────────────────────

type matchRequest struct {
	BuyerID       int64    `json:"buyer_id" validate:"gte=0"`
	RiceType      string   `json:"rice_type"`
	Quantity      float64  `json:"quantity" validate:"gte=0"`
	Unit          string   `json:"unit"`
	Latitude      *float64 `json:"latitude" validate:"required_with=Longitude"`
	Longitude     *float64 `json:"longitude" validate:"required_with=Latitude"`
	MaxDistanceKm float64  `json:"max_distance_km" validate:"gte=0"`
	Limit         int      `json:"limit" validate:"gte=0,lte=100"`
}

type matchResponse struct {
	Matches []models.Match `json:"matches"`
	Count   int            `json:"count"`
}

func (s *Server) findMatches(c echo.Context) error {
	req, err := bindRequest[matchRequest](c)
	if err != nil {
		return err
	}

	criteria := services.MatchCriteria{
		RiceType:      req.RiceType,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		MaxDistanceKm: req.MaxDistanceKm,
		Limit:         req.Limit,
	}
	if req.Latitude != nil && req.Longitude != nil {
		criteria.Buyer = &geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	}

	matches, err := s.market.FindMatches(c.Request().Context(), req.BuyerID, criteria)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, matchResponse{Matches: matches, Count: len(matches)})
}

type chatRequest struct {
	PartyID int64  `json:"party_id" validate:"gte=0"`
	Message string `json:"message" validate:"required,max=2000"`
}

type chatResponse struct {
	services.Reply
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) chat(c echo.Context) error {
	req, err := bindRequest[chatRequest](c)
	if err != nil {
		return err
	}
	reply, err := s.market.Chat(c.Request().Context(), req.PartyID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{Reply: reply, Timestamp: time.Now()})
}

func (s *Server) recentChats(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	chats, err := s.market.RecentChats(c.Request().Context(), id, int(limit))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// ── parties ─────────────────────────────────────────────────────────────

type partyRequest struct {
	FullName  string   `json:"full_name" validate:"required,max=100"`
	Mobile    string   `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Location  string   `json:"location" validate:"max=200"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	UserType  string   `json:"user_type" validate:"omitempty,oneof=buyer seller both"`
}

func (s *Server) registerParty(c echo.Context) error {
	req, err := bindRequest[partyRequest](c)
	if err != nil {
		return err
	}
	p := &models.Party{
		FullName:  req.FullName,
		Mobile:    req.Mobile,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		UserType:  req.UserType,
	}
	if err := s.market.RegisterParty(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) getParty(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := s.market.GetParty(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) sellerContact(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	contact, err := s.market.SellerContact(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// ── listings ────────────────────────────────────────────────────────────

type listingRequest struct {
	SellerID     int64   `json:"seller_id" validate:"required,gt=0"`
	RiceType     string  `json:"rice_type" validate:"required,max=50"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Unit         string  `json:"unit"`
	PricePerKg   float64 `json:"price_per_kg" validate:"gt=0"`
	QualityGrade string  `json:"quality_grade" validate:"omitempty,oneof=A B C a b c"`
	Organic      bool    `json:"organic"`
	Description  string  `json:"description" validate:"max=2000"`
	HarvestDate  string  `json:"harvest_date" validate:"omitempty,datetime=2006-01-02"`
	Available    *bool   `json:"is_available"`
}

func (r listingRequest) toListing() (*models.Listing, error) {
	kg, err := services.ToKg(r.Quantity, r.Unit)
	if err != nil {
		return nil, err
	}
	l := &models.Listing{
		SellerID:     r.SellerID,
		RiceType:     r.RiceType,
		QuantityKg:   kg,
		PricePerKg:   r.PricePerKg,
		QualityGrade: r.QualityGrade,
		Organic:      r.Organic,
		Description:  r.Description,
		IsAvailable:  true,
	}
	if r.Available != nil {
		l.IsAvailable = *r.Available
	}
	if r.HarvestDate != "" {
		d, err := time.Parse("2006-01-02", r.HarvestDate)
		if err == nil {
			l.HarvestDate = &d
		}
	}
	return l, nil
}

func (s *Server) listListings(c echo.Context) error {
	sellerID, err := queryInt(c, "seller_id")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	minQty, err := queryFloat(c, "min_quantity_kg")
	if err != nil {
		return err
	}
	listings, err := s.market.Listings(c.Request().Context(), models.ListingFilter{
		RiceType:      c.QueryParam("rice_type"),
		MinQuantityKg: minQty,
		SellerID:      sellerID,
		Limit:         int(limit),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listings)
}

func (s *Server) createListing(c echo.Context) error {
	req, err := bindRequest[listingRequest](c)
	if err != nil {
		return err
	}
	l, err := req.toListing()
	if err != nil {
		return err
	}
	if err := s.market.CreateListing(c.Request().Context(), l); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (s *Server) getListing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	l, err := s.market.GetListing(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) updateListing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	req, err := bindRequest[listingRequest](c)
	if err != nil {
		return err
	}
	l, err := req.toListing()
	if err != nil {
		return err
	}
	l.ID = id
	if req.Available == nil {
		existing, err := s.market.GetListing(c.Request().Context(), id)
		if err != nil {
			return err
		}
		l.IsAvailable = existing.IsAvailable
	}
	if err := s.market.UpdateListing(c.Request().Context(), l); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

type availabilityRequest struct {
	SellerID  int64 `json:"seller_id" validate:"required,gt=0"`
	Available *bool `json:"is_available" validate:"required"`
}

func (s *Server) setAvailability(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	req, err := bindRequest[availabilityRequest](c)
	if err != nil {
		return err
	}
	if err := s.market.SetListingAvailability(c.Request().Context(), id, req.SellerID, *req.Available); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteListing(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sellerID, err := queryInt(c, "seller_id")
	if err != nil {
		return err
	}
	if sellerID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "seller_id is required")
	}
	if err := s.market.DeleteListing(c.Request().Context(), id, sellerID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
