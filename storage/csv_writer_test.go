package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenbridge/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_WriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshot.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	err = w.WriteSnapshot([]*models.MarketStat{
		{RiceType: "Basmati", AveragePrice: 66.5, MinPrice: 60, MaxPrice: 70, Trend: "volatile", Demand: "low", ListingCount: 2, TotalQuantityKg: 1500, ComputedAt: at},
		{RiceType: "Ponni", AveragePrice: 40, MinPrice: 38, MaxPrice: 43, Trend: "stable", Demand: "medium", IsSynthetic: true, ComputedAt: at},
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, snapshotHeader, rows[0])
	assert.Equal(t, []string{"Basmati", "66.50", "60.00", "70.00", "volatile", "low", "2", "1500.00", "false", "2026-01-15T10:00:00Z"}, rows[1])
	assert.Equal(t, "true", rows[2][8])
}

func TestCSVWriter_AppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	stat := []*models.MarketStat{{RiceType: "Jasmine", AveragePrice: 52, Trend: "stable", Demand: "medium"}}

	for i := 0; i < 2; i++ {
		w, err := NewCSVWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.WriteSnapshot(stat))
		require.NoError(t, w.Close())
	}

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "rice_type", rows[0][0])
	assert.Equal(t, "Jasmine", rows[1][0])
	assert.Equal(t, "Jasmine", rows[2][0])
}
