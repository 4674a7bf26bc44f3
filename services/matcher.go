package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"greenbridge/geo"
	"greenbridge/models"
	"greenbridge/utils"
)

// Defaults applied to zero-valued match criteria.
const (
	DefaultMaxDistanceKm = 50.0
	DefaultMatchLimit    = 20
)

// MatchCriteria describes a buyer's farmer search. RiceType "" or "any"
// matches every type. Quantity is expressed in Unit (kg when empty).
type MatchCriteria struct {
	RiceType      string
	Quantity      float64
	Unit          string
	Buyer         *geo.Point
	MaxDistanceKm float64
	Limit         int
}

// Matcher finds nearby sellers whose listings can cover a requested quantity.
type Matcher struct {
	logger        *utils.Logger
	defaultRadius float64
	defaultLimit  int
}

// NewMatcher creates a Matcher. Non-positive defaults fall back to 50 km / 20 results.
func NewMatcher(logger *utils.Logger, defaultRadiusKm float64, defaultLimit int) *Matcher {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = DefaultMaxDistanceKm
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultMatchLimit
	}
	return &Matcher{logger: logger, defaultRadius: defaultRadiusKm, defaultLimit: defaultLimit}
}

// normalise validates c and returns a copy with defaults applied and the
// quantity converted to kg.
func (m *Matcher) normalise(c MatchCriteria) (MatchCriteria, error) {
	kg, err := ToKg(c.Quantity, c.Unit)
	if err != nil {
		return c, err
	}
	if kg < 0 {
		return c, fmt.Errorf("quantity must not be negative, got %v: %w", c.Quantity, models.ErrInvalidArgument)
	}
	if c.MaxDistanceKm < 0 || math.IsNaN(c.MaxDistanceKm) {
		return c, fmt.Errorf("max distance must not be negative, got %v: %w", c.MaxDistanceKm, models.ErrInvalidArgument)
	}
	if c.Limit < 0 {
		return c, fmt.Errorf("limit must not be negative, got %d: %w", c.Limit, models.ErrInvalidArgument)
	}
	if c.Buyer != nil {
		if err := c.Buyer.Validate(); err != nil {
			return c, err
		}
	}

	c.Quantity, c.Unit = kg, UnitKg
	if strings.EqualFold(strings.TrimSpace(c.RiceType), "any") {
		c.RiceType = ""
	}
	c.RiceType = CanonicalRiceType(c.RiceType)
	if c.MaxDistanceKm == 0 {
		c.MaxDistanceKm = m.defaultRadius
	}
	if c.Limit <= 0 {
		c.Limit = m.defaultLimit
	}
	return c, nil
}

// FindMatches filters candidates by type, quantity and distance from the
// buyer, sorts them nearest first and caps the result at the limit.
// Listings whose seller (or buyer) has no coordinates are never matched.
func (m *Matcher) FindMatches(c MatchCriteria, candidates []*models.SellerListing) ([]models.Match, error) {
	c, err := m.normalise(c)
	if err != nil {
		return nil, err
	}

	type scored struct {
		sl       *models.SellerListing
		distance float64
	}

	var kept []scored
	var unknown int
	for _, sl := range candidates {
		if sl == nil || !sl.IsAvailable {
			continue
		}
		if c.RiceType != "" && CanonicalRiceType(sl.RiceType) != c.RiceType {
			continue
		}
		if sl.QuantityKg < c.Quantity {
			continue
		}
		d := geo.Distance(c.Buyer, geo.PartyPoint(&sl.Seller))
		if !geo.Known(d) {
			unknown++
			continue
		}
		if d > c.MaxDistanceKm {
			continue
		}
		kept = append(kept, scored{sl: sl, distance: d})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].distance < kept[j].distance
	})
	if len(kept) > c.Limit {
		kept = kept[:c.Limit]
	}

	matches := make([]models.Match, 0, len(kept))
	for _, k := range kept {
		matches = append(matches, models.Match{
			ListingID:           k.sl.ID,
			SellerName:          k.sl.Seller.FullName,
			SellerLocation:      k.sl.Seller.Location,
			DistanceKm:          math.Round(k.distance*10) / 10,
			AvailableQuantityKg: k.sl.QuantityKg,
			PricePerKg:          k.sl.PricePerKg,
			QualityGrade:        k.sl.QualityGrade,
			Organic:             k.sl.Organic,
			RiceType:            k.sl.RiceType,
		})
	}

	m.logger.Debug("[matcher] type=%q qty=%.1fkg radius=%.1fkm: %d matches, %d without coordinates",
		c.RiceType, c.Quantity, c.MaxDistanceKm, len(matches), unknown)
	return matches, nil
}
