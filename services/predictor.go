package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"greenbridge/models"
	"greenbridge/utils"
)

// Confidence levels for a prediction.
const (
	ConfidenceLive     = 0.85
	ConfidenceBaseline = 0.70
	ConfidenceDegraded = 0.60
)

// quantityTier is one disjoint range of order sizes in kg: (above, upTo].
// The first tier has no lower bound and the last no upper bound.
type quantityTier struct {
	label      string
	upTo       float64
	multiplier float64
}

// quantityTiers must stay sorted by upTo. Exactly one tier applies to any
// quantity: <50, 50–1000, >1000–5000, >5000.
var quantityTiers = []quantityTier{
	{label: "Small quantity premium", upTo: math.Nextafter(50, 0), multiplier: 1.05},
	{label: "Standard quantity", upTo: 1000, multiplier: 1.00},
	{label: "Bulk order discount", upTo: 5000, multiplier: 0.95},
	{label: "Large bulk discount", upTo: math.Inf(1), multiplier: 0.90},
}

// quantityTierFor returns the single tier containing kg.
func quantityTierFor(kg float64) quantityTier {
	for _, t := range quantityTiers {
		if kg <= t.upTo {
			return t
		}
	}
	return quantityTiers[len(quantityTiers)-1]
}

// seasonFor returns the seasonal label and multiplier for a calendar month.
func seasonFor(m time.Month) (string, float64) {
	switch m {
	case time.March, time.April, time.May:
		return "Harvest season pricing", 0.92
	case time.September, time.October, time.November:
		return "Festival season demand", 1.08
	default:
		return "Regular season", 1.00
	}
}

// MarketContext is the market data a prediction is made against.
// Listings are the available listings of the predicted rice type; Stat is
// the latest market stat for it, if any.
type MarketContext struct {
	Listings []*models.Listing
	Stat     *models.MarketStat
}

// Predictor estimates a per-kg price from listings and simple market rules.
type Predictor struct {
	logger *utils.Logger
	noise  Noise
	now    func() time.Time
}

// NewPredictor creates a Predictor. noise may be nil, which disables the
// simulated market noise factor.
func NewPredictor(logger *utils.Logger, noise Noise) *Predictor {
	return &Predictor{logger: logger, noise: noise, now: time.Now}
}

// PredictPrice estimates the price for quantityKg of riceType. A blank rice
// type or a non-positive quantity is an InvalidArgument; any other failure
// degrades to a baseline prediction with reduced confidence.
func (p *Predictor) PredictPrice(riceType string, quantityKg float64, mc MarketContext) (result *models.PredictionResult, err error) {
	riceType = CanonicalRiceType(riceType)
	if riceType == "" {
		return nil, fmt.Errorf("rice type is required: %w", models.ErrInvalidArgument)
	}
	if !(quantityKg > 0) || math.IsInf(quantityKg, 0) {
		return nil, fmt.Errorf("quantity must be positive, got %v: %w", quantityKg, models.ErrInvalidArgument)
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("[predictor] %s %.1fkg: recovered from %v", riceType, quantityKg, r)
			result, err = degradedPrediction(riceType, quantityKg), nil
		}
	}()

	result = p.predict(riceType, quantityKg, mc)
	if !(result.PredictedPrice > 0) || math.IsInf(result.PredictedPrice, 0) {
		p.logger.Warn("[predictor] %s %.1fkg: non-finite price %v, using baseline", riceType, quantityKg, result.PredictedPrice)
		return degradedPrediction(riceType, quantityKg), nil
	}
	return result, nil
}

func (p *Predictor) predict(riceType string, quantityKg float64, mc MarketContext) *models.PredictionResult {
	base, live := basePrice(riceType, mc.Listings)

	res := &models.PredictionResult{
		RiceType:   riceType,
		QuantityKg: quantityKg,
		BasePrice:  round2(base),
		LiveData:   live,
		Confidence: ConfidenceBaseline,
	}
	source := "baseline table"
	if live {
		res.Confidence = ConfidenceLive
		source = fmt.Sprintf("average of %d live listings", countOf(riceType, mc.Listings))
	}
	res.Factors = append(res.Factors, models.Factor{
		Name:   "Base price",
		Effect: fmt.Sprintf("%s/kg (%s)", FormatPrice(res.BasePrice), source),
	})

	multiplier := 1.0
	apply := func(name string, m float64) {
		multiplier *= m
		res.Factors = append(res.Factors, models.Factor{Name: name, Effect: percent(m), Multiplier: m})
	}

	tier := quantityTierFor(quantityKg)
	apply("Quantity adjustment: "+tier.label, tier.multiplier)

	season, sm := seasonFor(p.now().Month())
	apply("Seasonal adjustment: "+season, sm)

	if st := mc.Stat; st != nil && !st.IsSynthetic {
		switch st.Trend {
		case models.TrendIncreasing:
			apply("Rising market trend", 1.03)
		case models.TrendDecreasing:
			apply("Declining market trend", 0.97)
		}
		switch st.Demand {
		case models.DemandHigh:
			apply("High market demand", 1.02)
		case models.DemandLow:
			apply("Low market demand", 0.98)
		}
	}

	if p.noise != nil {
		apply("Simulated market noise", 0.95+p.noise.Float64()*0.10)
	}

	res.PredictedPrice = round2(base * multiplier)
	return res
}

// basePrice averages live listings of riceType, falling back to the
// baseline table when there are none.
func basePrice(riceType string, listings []*models.Listing) (float64, bool) {
	var total float64
	var n int
	for _, l := range listings {
		if l == nil || !l.IsAvailable || !(l.PricePerKg > 0) || CanonicalRiceType(l.RiceType) != riceType {
			continue
		}
		total += l.PricePerKg
		n++
	}
	if n == 0 {
		return BaselinePrice(riceType), false
	}
	return total / float64(n), true
}

func countOf(riceType string, listings []*models.Listing) int {
	n := 0
	for _, l := range listings {
		if l != nil && l.IsAvailable && l.PricePerKg > 0 && CanonicalRiceType(l.RiceType) == riceType {
			n++
		}
	}
	return n
}

func degradedPrediction(riceType string, quantityKg float64) *models.PredictionResult {
	base := BaselinePrice(riceType)
	return &models.PredictionResult{
		RiceType:       riceType,
		QuantityKg:     quantityKg,
		BasePrice:      base,
		PredictedPrice: base,
		Confidence:     ConfidenceDegraded,
		Factors:        []models.Factor{{Name: "Basic market analysis", Effect: FormatPrice(base) + "/kg"}},
	}
}

// percent renders a multiplier as a signed percentage, e.g. 0.95 -> "-5.0%".
func percent(m float64) string {
	s := fmt.Sprintf("%+.1f%%", (m-1)*100)
	if strings.HasPrefix(s, "-0.0") {
		return "+0.0%"
	}
	return s
}
