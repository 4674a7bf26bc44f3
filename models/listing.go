package models

import "time"

// Listing is a seller's offer of a quantity of one rice type at a price.
// It is only ever mutated by the seller that owns it.
type Listing struct {
	ID           int64      `db:"id" json:"id"`
	SellerID     int64      `db:"seller_id" json:"seller_id"`
	RiceType     string     `db:"rice_type" json:"rice_type"`
	QuantityKg   float64    `db:"quantity_kg" json:"quantity_kg"`
	PricePerKg   float64    `db:"price_per_kg" json:"price_per_kg"`
	QualityGrade string     `db:"quality_grade" json:"quality_grade"`
	Organic      bool       `db:"organic" json:"organic"`
	IsAvailable  bool       `db:"is_available" json:"is_available"`
	Description  string     `db:"description" json:"description"`
	HarvestDate  *time.Time `db:"harvest_date" json:"harvest_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// SellerListing is an available listing joined with the party selling it.
type SellerListing struct {
	Listing
	Seller Party
}

// ListingFilter narrows a listing query. Zero values mean "no constraint".
type ListingFilter struct {
	RiceType      string
	MinQuantityKg float64
	SellerID      int64
	Limit         int
}

// Quality grades accepted on a listing.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)
