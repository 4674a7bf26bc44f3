package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenbridge/models"
)

func TestToKg(t *testing.T) {
	cases := []struct {
		qty  float64
		unit string
		want float64
	}{
		{500, "", 500},
		{500, "KG", 500},
		{5, "quintal", 500},
		{5, "Qtl", 500},
		{2, "ton", 2000},
		{1.5, "tonnes", 1500},
	}
	for _, tc := range cases {
		got, err := ToKg(tc.qty, tc.unit)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v %s", tc.qty, tc.unit)
	}

	_, err := ToKg(1, "bag")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestParseQuantity(t *testing.T) {
	got, err := ParseQuantity("2,000 kg")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got)

	got, err = ParseQuantity(" 2.5 tons ")
	require.NoError(t, err)
	assert.Equal(t, 2500.0, got)

	_, err = ParseQuantity("a lot")
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "2.5 tons", FormatQuantity(2500, UnitTon))
	assert.Equal(t, "25.0 quintals", FormatQuantity(2500, UnitQuintal))
	assert.Equal(t, "500.0 kg", FormatQuantity(500, UnitTon))
	assert.Equal(t, "₹61.75", FormatPrice(61.75))
}

func TestNormaliseListing(t *testing.T) {
	l := &models.Listing{RiceType: "  sona   masoori ", QuantityKg: 100, PricePerKg: 45, QualityGrade: "b", Description: "  fresh\n crop  "}
	require.NoError(t, NormaliseListing(l))
	assert.Equal(t, "Sona Masoori", l.RiceType)
	assert.Equal(t, models.GradeB, l.QualityGrade)
	assert.Equal(t, "fresh crop", l.Description)

	l = &models.Listing{RiceType: "Ponni", QuantityKg: 100, PricePerKg: 45}
	require.NoError(t, NormaliseListing(l))
	assert.Equal(t, models.GradeA, l.QualityGrade)

	bad := []*models.Listing{
		{RiceType: "", QuantityKg: 1, PricePerKg: 1},
		{RiceType: "Ponni", QuantityKg: 0, PricePerKg: 1},
		{RiceType: "Ponni", QuantityKg: 1, PricePerKg: -1},
		{RiceType: "Ponni", QuantityKg: 1, PricePerKg: 1, QualityGrade: "Z"},
	}
	for _, l := range bad {
		assert.ErrorIs(t, NormaliseListing(l), models.ErrInvalidArgument)
	}
}

func TestBaselineAndRiceInfo(t *testing.T) {
	assert.Equal(t, 65.0, BaselinePrice("BASMATI"))
	assert.Equal(t, DefaultBasePrice, BaselinePrice("Red Rice"))
	assert.Equal(t, "Tamil Nadu", RiceTypeInfo("ponni").Origin)
	assert.Equal(t, "India", RiceTypeInfo("Red Rice").Origin)
}
