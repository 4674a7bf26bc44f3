package models

import "time"

// Trend classifications.
const (
	TrendStable     = "stable"
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendVolatile   = "volatile"
)

// Demand classifications.
const (
	DemandHigh   = "high"
	DemandMedium = "medium"
	DemandLow    = "low"
)

// MarketStat holds the aggregate view of one rice type. IsSynthetic is set
// when no listings existed and the numbers came from the baseline table.
type MarketStat struct {
	ID              int64     `db:"id" json:"-"`
	RiceType        string    `db:"rice_type" json:"rice_type"`
	AveragePrice    float64   `db:"average_price" json:"average_price"`
	MinPrice        float64   `db:"min_price" json:"min_price"`
	MaxPrice        float64   `db:"max_price" json:"max_price"`
	Trend           string    `db:"trend" json:"trend"`
	Demand          string    `db:"demand" json:"demand"`
	ListingCount    int       `db:"listing_count" json:"listing_count"`
	TotalQuantityKg float64   `db:"total_quantity_kg" json:"total_quantity_kg"`
	IsSynthetic     bool      `db:"is_synthetic" json:"is_synthetic"`
	ComputedAt      time.Time `db:"computed_at" json:"computed_at"`
}

// Factor is one labeled contribution to a predicted price.
type Factor struct {
	Name       string  `json:"name"`
	Effect     string  `json:"effect"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// PredictionResult is the output of the price estimator.
type PredictionResult struct {
	RiceType       string   `json:"rice_type"`
	QuantityKg     float64  `json:"quantity_kg"`
	BasePrice      float64  `json:"base_price"`
	PredictedPrice float64  `json:"predicted_price"`
	Confidence     float64  `json:"confidence"`
	LiveData       bool     `json:"live_data"`
	Factors        []Factor `json:"factors"`
}

// Match is one listing returned by a farmer search.
type Match struct {
	ListingID           int64   `json:"listing_id"`
	SellerName          string  `json:"seller_name"`
	SellerLocation      string  `json:"seller_location"`
	DistanceKm          float64 `json:"distance_km"`
	AvailableQuantityKg float64 `json:"available_quantity_kg"`
	PricePerKg          float64 `json:"price_per_kg"`
	QualityGrade        string  `json:"quality_grade"`
	Organic             bool    `json:"organic"`
	RiceType            string  `json:"rice_type"`
}
