package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"greenbridge/models"
	"greenbridge/utils"
)

// Classification thresholds for observed snapshots.
const (
	volatilitySpread   = 0.10 // (max-min) above this share of the average is volatile
	increasingAbove    = 55.0
	decreasingBelow    = 40.0
	highDemandListings = 5
	midDemandListings  = 2
)

// Synthetic perturbation bounds, in ₹/kg, applied to the baseline price.
const (
	syntheticNoiseLow  = -3.0
	syntheticNoiseHigh = 5.0
)

// Noise is the randomness source for simulated market movement.
// *rand.Rand satisfies it; a nil Noise means no movement at all.
type Noise interface {
	Float64() float64
}

// LockedNoise serialises access to a random source shared by goroutines.
type LockedNoise struct {
	mu  sync.Mutex
	src Noise
}

// NewLockedNoise wraps src, which is usually a *rand.Rand.
func NewLockedNoise(src Noise) *LockedNoise {
	return &LockedNoise{src: src}
}

func (n *LockedNoise) Float64() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.src.Float64()
}

// SnapshotService aggregates listings into per-rice-type market statistics.
type SnapshotService struct {
	logger *utils.Logger
	noise  Noise
	now    func() time.Time
}

// NewSnapshotService creates a SnapshotService. noise may be nil.
func NewSnapshotService(logger *utils.Logger, noise Noise) *SnapshotService {
	return &SnapshotService{logger: logger, noise: noise, now: time.Now}
}

// Snapshot returns one MarketStat per requested rice type, computed from the
// available listings passed in. An empty riceTypes means all known types.
// Types without listings get a synthetic stat built from the baseline table.
func (s *SnapshotService) Snapshot(riceTypes []string, listings []*models.Listing) map[string]*models.MarketStat {
	if len(riceTypes) == 0 {
		riceTypes = RiceTypes
	}

	byType := make(map[string][]*models.Listing)
	for _, l := range listings {
		if l == nil || !l.IsAvailable || !(l.PricePerKg > 0) {
			continue
		}
		rt := CanonicalRiceType(l.RiceType)
		byType[rt] = append(byType[rt], l)
	}

	now := s.now()
	result := make(map[string]*models.MarketStat, len(riceTypes))
	for _, rt := range riceTypes {
		rt = CanonicalRiceType(rt)
		if rt == "" {
			continue
		}
		var stat *models.MarketStat
		if group := byType[rt]; len(group) > 0 {
			stat = observedStat(rt, group)
		} else {
			stat = s.syntheticStat(rt)
		}
		stat.ComputedAt = now
		result[rt] = stat
	}

	s.logger.Debug("[snapshot] %d rice types from %d listings", len(result), len(listings))
	return result
}

func observedStat(riceType string, listings []*models.Listing) *models.MarketStat {
	stat := &models.MarketStat{
		RiceType:     riceType,
		MinPrice:     listings[0].PricePerKg,
		MaxPrice:     listings[0].PricePerKg,
		ListingCount: len(listings),
	}

	var total float64
	for _, l := range listings {
		total += l.PricePerKg
		stat.TotalQuantityKg += l.QuantityKg
		if l.PricePerKg < stat.MinPrice {
			stat.MinPrice = l.PricePerKg
		}
		if l.PricePerKg > stat.MaxPrice {
			stat.MaxPrice = l.PricePerKg
		}
	}
	avg := total / float64(len(listings))

	stat.AveragePrice = round2(avg)
	stat.MinPrice = round2(stat.MinPrice)
	stat.MaxPrice = round2(stat.MaxPrice)
	stat.Trend = ClassifyTrend(stat.AveragePrice, stat.MinPrice, stat.MaxPrice)
	stat.Demand = ClassifyDemand(len(listings))
	return stat
}

func (s *SnapshotService) syntheticStat(riceType string) *models.MarketStat {
	price := BaselinePrice(riceType)
	if s.noise != nil {
		price += syntheticNoiseLow + s.noise.Float64()*(syntheticNoiseHigh-syntheticNoiseLow)
	}
	return &models.MarketStat{
		RiceType:     riceType,
		AveragePrice: round2(price),
		MinPrice:     round2(price - 2),
		MaxPrice:     round2(price + 3),
		Trend:        models.TrendStable,
		Demand:       models.DemandMedium,
		IsSynthetic:  true,
	}
}

// ClassifyTrend labels a price distribution. Volatility wins over level.
func ClassifyTrend(avg, min, max float64) string {
	switch {
	case max-min > avg*volatilitySpread:
		return models.TrendVolatile
	case avg > increasingAbove:
		return models.TrendIncreasing
	case avg < decreasingBelow:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// ClassifyDemand labels market activity from the number of listings.
func ClassifyDemand(listingCount int) string {
	switch {
	case listingCount > highDemandListings:
		return models.DemandHigh
	case listingCount > midDemandListings:
		return models.DemandMedium
	default:
		return models.DemandLow
	}
}

// MarketInsight is a one-line human summary of a stat.
func MarketInsight(stat *models.MarketStat) string {
	if stat.IsSynthetic {
		return fmt.Sprintf("Limited market data available for %s. Contact local farmers for current rates.", stat.RiceType)
	}
	return fmt.Sprintf("%s shows %s price trend with %s demand. %d active listings available.",
		stat.RiceType, stat.Trend, stat.Demand, stat.ListingCount)
}

// Print writes a terminal report of the snapshot in RiceTypes order.
func (s *SnapshotService) Print(w io.Writer, snapshot map[string]*models.MarketStat) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(w, "\n\033[1;32m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;32m  🌾 GREENBRIDGE MARKET SNAPSHOT\033[0m\n")
	fmt.Fprintf(w, "\033[1;32m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "  %-14s %10s %19s %-11s %-7s %s\n", "Rice type", "Avg ₹/kg", "Range", "Trend", "Demand", "Listings")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, rt := range orderedTypes(snapshot) {
		st := snapshot[rt]
		listings := fmt.Sprintf("%d", st.ListingCount)
		if st.IsSynthetic {
			listings = "estimated"
		}
		fmt.Fprintf(w, "  %-14s %10.2f %8.2f - %8.2f %-11s %-7s %s\n",
			st.RiceType, st.AveragePrice, st.MinPrice, st.MaxPrice, st.Trend, st.Demand, listings)
	}
	fmt.Fprintf(w, "\n\033[1;32m%s\033[0m\n\n", sep)
}

// orderedTypes returns snapshot keys with known types first, in display order.
func orderedTypes(snapshot map[string]*models.MarketStat) []string {
	keys := make([]string, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))
	for _, rt := range RiceTypes {
		if _, ok := snapshot[rt]; ok {
			keys = append(keys, rt)
			seen[rt] = true
		}
	}
	var extra []string
	for rt := range snapshot {
		if !seen[rt] {
			extra = append(extra, rt)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
