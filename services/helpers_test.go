package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"greenbridge/geo"
	"greenbridge/models"
)

type fixedNoise float64

func (n fixedNoise) Float64() float64 { return float64(n) }

func fixedClock(month time.Month) func() time.Time {
	return func() time.Time { return time.Date(2026, month, 15, 10, 30, 0, 0, time.UTC) }
}

func listing(riceType string, qty, price float64) *models.Listing {
	return &models.Listing{RiceType: riceType, QuantityKg: qty, PricePerKg: price, QualityGrade: models.GradeA, IsAvailable: true}
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string]geo.Point
	calls  map[string]int
	err    error
}

func newFakeGeocoder(points map[string]geo.Point) *fakeGeocoder {
	return &fakeGeocoder{points: points, calls: make(map[string]int)}
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (geo.Point, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[strings.ToLower(address)]++
	if g.err != nil {
		return geo.Point{}, g.err
	}
	p, ok := g.points[strings.ToLower(address)]
	if !ok {
		return geo.Point{}, models.ErrNotFound
	}
	return p, nil
}

func (g *fakeGeocoder) callsFor(address string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[strings.ToLower(address)]
}
