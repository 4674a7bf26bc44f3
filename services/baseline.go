package services

import "strings"

// Known rice types, in display order.
var RiceTypes = []string{"Basmati", "Sona Masoori", "Ponni", "Brown Rice", "Jasmine", "Parboiled"}

// DefaultBasePrice is the ₹/kg used for rice types missing from the baseline table.
const DefaultBasePrice = 50.0

// baselinePrices holds ₹/kg reference prices used when no live listings exist.
var baselinePrices = map[string]float64{
	"Basmati":      65,
	"Sona Masoori": 45,
	"Ponni":        40,
	"Brown Rice":   58,
	"Jasmine":      52,
	"Parboiled":    42,
}

// BaselinePrice returns the reference price for riceType.
func BaselinePrice(riceType string) float64 {
	if p, ok := baselinePrices[CanonicalRiceType(riceType)]; ok {
		return p
	}
	return DefaultBasePrice
}

// CanonicalRiceType maps any casing/spacing of a known type to its display
// name. Unknown types are returned trimmed but otherwise unchanged.
func CanonicalRiceType(s string) string {
	s = normaliseText(s)
	for _, rt := range RiceTypes {
		if strings.EqualFold(rt, s) {
			return rt
		}
	}
	return s
}

// RiceInfo describes a rice variety for display.
type RiceInfo struct {
	Description       string   `json:"description"`
	Characteristics   []string `json:"characteristics"`
	BestFor           []string `json:"best_for"`
	TypicalPriceRange string   `json:"typical_price_range"`
	Origin            string   `json:"origin"`
}

var riceInfo = map[string]RiceInfo{
	"Basmati": {
		Description:       "Premium long-grain aromatic rice",
		Characteristics:   []string{"Long grain", "Aromatic", "Low starch content"},
		BestFor:           []string{"Biryani", "Pulav", "Special occasions"},
		TypicalPriceRange: "₹60-80 per kg",
		Origin:            "Northern India",
	},
	"Sona Masoori": {
		Description:       "Medium-grain rice popular in South India",
		Characteristics:   []string{"Medium grain", "Low starch", "Easy to digest"},
		BestFor:           []string{"Daily meals", "South Indian dishes"},
		TypicalPriceRange: "₹40-50 per kg",
		Origin:            "Andhra Pradesh, Karnataka",
	},
	"Ponni": {
		Description:       "Short-grain rice variety from Tamil Nadu",
		Characteristics:   []string{"Short grain", "High yield", "Good taste"},
		BestFor:           []string{"South Indian meals", "Rice dishes"},
		TypicalPriceRange: "₹40-45 per kg",
		Origin:            "Tamil Nadu",
	},
	"Brown Rice": {
		Description:       "Whole grain rice with high nutritional value",
		Characteristics:   []string{"Whole grain", "High fiber", "Nutritious"},
		BestFor:           []string{"Health-conscious consumers", "Diabetic-friendly meals"},
		TypicalPriceRange: "₹50-60 per kg",
		Origin:            "Various regions",
	},
}

// RiceTypeInfo returns variety details, with a generic entry for types
// that have none.
func RiceTypeInfo(riceType string) RiceInfo {
	if info, ok := riceInfo[CanonicalRiceType(riceType)]; ok {
		return info
	}
	return RiceInfo{
		Description:       "Traditional rice variety",
		Characteristics:   []string{"Good quality", "Versatile"},
		BestFor:           []string{"General cooking"},
		TypicalPriceRange: "Varies by region",
		Origin:            "India",
	}
}
