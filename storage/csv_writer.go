package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"greenbridge/models"
)

var snapshotHeader = []string{
	"rice_type", "average_price", "min_price", "max_price", "trend", "demand",
	"listing_count", "total_quantity_kg", "is_synthetic", "computed_at",
}

// CSVWriter appends market snapshot rows to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens the CSV file at path for appending, creating it and any
// intermediate directories if needed. The header row is written only when
// the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(snapshotHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteSnapshot writes one row per stat in the given order.
func (c *CSVWriter) WriteSnapshot(stats []*models.MarketStat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range stats {
		row := []string{
			st.RiceType,
			strconv.FormatFloat(st.AveragePrice, 'f', 2, 64),
			strconv.FormatFloat(st.MinPrice, 'f', 2, 64),
			strconv.FormatFloat(st.MaxPrice, 'f', 2, 64),
			st.Trend,
			st.Demand,
			strconv.Itoa(st.ListingCount),
			strconv.FormatFloat(st.TotalQuantityKg, 'f', 2, 64),
			strconv.FormatBool(st.IsSynthetic),
			st.ComputedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
