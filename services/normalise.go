package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"greenbridge/models"
)

// Quantity units accepted from callers.
const (
	UnitKg      = "kg"
	UnitQuintal = "quintal"
	UnitTon     = "ton"
)

var (
	// quantityRegexp captures a number and an optional unit word, e.g. "2.5 tons".
	quantityRegexp = regexp.MustCompile(`^\s*([\d,]+(?:\.\d+)?)\s*([a-zA-Z]*)\s*$`)

	unitAliases = map[string]string{
		"":         UnitKg,
		"kg":       UnitKg,
		"kgs":      UnitKg,
		"kilo":     UnitKg,
		"kilos":    UnitKg,
		"q":        UnitQuintal,
		"qtl":      UnitQuintal,
		"quintal":  UnitQuintal,
		"quintals": UnitQuintal,
		"t":        UnitTon,
		"ton":      UnitTon,
		"tons":     UnitTon,
		"tonne":    UnitTon,
		"tonnes":   UnitTon,
	}

	unitFactors = map[string]float64{
		UnitKg:      1,
		UnitQuintal: 100,
		UnitTon:     1000,
	}
)

// NormaliseUnit resolves a unit alias to kg, quintal or ton.
func NormaliseUnit(unit string) (string, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return "", fmt.Errorf("unknown unit %q: %w", unit, models.ErrInvalidArgument)
	}
	return u, nil
}

// ToKg converts quantity in unit to kilograms.
func ToKg(quantity float64, unit string) (float64, error) {
	u, err := NormaliseUnit(unit)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0, fmt.Errorf("quantity %v: %w", quantity, models.ErrInvalidArgument)
	}
	return quantity * unitFactors[u], nil
}

// ParseQuantity reads free text such as "500", "5 quintals" or "2,000 kg"
// and returns kilograms.
func ParseQuantity(raw string) (float64, error) {
	m := quantityRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("quantity %q: %w", raw, models.ErrInvalidArgument)
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", raw, models.ErrInvalidArgument)
	}
	return ToKg(n, m[2])
}

// FormatQuantity renders kilograms in the unit the seller thinks in.
func FormatQuantity(kg float64, unit string) string {
	switch unit {
	case UnitQuintal:
		if kg >= 1000 {
			return fmt.Sprintf("%.1f quintals", kg/100)
		}
	case UnitTon:
		if kg >= 1000 {
			return fmt.Sprintf("%.1f tons", kg/1000)
		}
	}
	return fmt.Sprintf("%.1f kg", kg)
}

// FormatPrice renders a ₹ amount with two decimals.
func FormatPrice(p float64) string {
	return fmt.Sprintf("₹%.2f", p)
}

// NormaliseListing cleans user input on a listing and validates it.
func NormaliseListing(l *models.Listing) error {
	l.RiceType = CanonicalRiceType(l.RiceType)
	l.QualityGrade = strings.ToUpper(strings.TrimSpace(l.QualityGrade))
	if l.QualityGrade == "" {
		l.QualityGrade = models.GradeA
	}
	l.Description = normaliseText(l.Description)

	switch {
	case l.RiceType == "":
		return fmt.Errorf("rice type is required: %w", models.ErrInvalidArgument)
	case !(l.QuantityKg > 0) || math.IsInf(l.QuantityKg, 0):
		return fmt.Errorf("quantity must be positive, got %v: %w", l.QuantityKg, models.ErrInvalidArgument)
	case !(l.PricePerKg > 0) || math.IsInf(l.PricePerKg, 0):
		return fmt.Errorf("price must be positive, got %v: %w", l.PricePerKg, models.ErrInvalidArgument)
	}
	switch l.QualityGrade {
	case models.GradeA, models.GradeB, models.GradeC:
	default:
		return fmt.Errorf("quality grade %q: %w", l.QualityGrade, models.ErrInvalidArgument)
	}
	return nil
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
