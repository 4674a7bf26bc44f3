package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"greenbridge/geo"
	"greenbridge/models"
	"greenbridge/utils"
)

// BackfillResult summarises one geocoding backfill run.
type BackfillResult struct {
	Candidates int `json:"candidates"`
	Updated    int `json:"updated"`
	Unresolved int `json:"unresolved"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// BackfillCoordinates geocodes up to limit parties that have a location but
// no coordinates. Each distinct address is looked up once, on pool, and the
// result is applied to every party sharing it. Addresses the geocoder could
// not resolve are remembered and skipped on later runs.
func (m *Marketplace) BackfillCoordinates(ctx context.Context, pool *utils.WorkerPool, limit int) (BackfillResult, error) {
	var res BackfillResult
	if m.geocoder == nil {
		return res, fmt.Errorf("backfill: no geocoder configured: %w", models.ErrInvalidArgument)
	}

	parties, err := m.store.PartiesMissingCoordinates(ctx, limit)
	if err != nil {
		return res, err
	}
	res.Candidates = len(parties)

	byAddress := make(map[string][]*models.Party)
	var order []string
	for _, p := range parties {
		key := strings.ToLower(normaliseText(p.Location))
		if m.unresolved.Contains(key) {
			res.Skipped++
			continue
		}
		if _, ok := byAddress[key]; !ok {
			order = append(order, key)
		}
		byAddress[key] = append(byAddress[key], p)
	}

	var mu sync.Mutex
	for _, key := range order {
		group := byAddress[key]
		submitted := pool.Submit(ctx, func(ctx context.Context) {
			pt, err := m.geocoder.Geocode(ctx, group[0].Location)
			updated, failed, unresolved := m.applyCoordinates(ctx, key, group, pt, err)

			mu.Lock()
			res.Updated += updated
			res.Failed += failed
			res.Unresolved += unresolved
			mu.Unlock()
		})
		if !submitted {
			break
		}
	}
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	m.logger.Info("[geocode] backfill: %d candidates, %d updated, %d unresolved, %d failed, %d skipped",
		res.Candidates, res.Updated, res.Unresolved, res.Failed, res.Skipped)
	return res, ctx.Err()
}

func (m *Marketplace) applyCoordinates(ctx context.Context, key string, group []*models.Party, pt geo.Point, err error) (updated, failed, unresolved int) {
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidArgument) {
			m.unresolved.Add(key)
			return 0, 0, len(group)
		}
		m.logger.Warn("[geocode] %q: %v", group[0].Location, err)
		return 0, len(group), 0
	}

	for _, p := range group {
		if err := m.store.UpdatePartyCoordinates(ctx, p.ID, pt.Lat, pt.Lon); err != nil {
			m.logger.Warn("[geocode] party %d: %v", p.ID, err)
			failed++
			continue
		}
		updated++
	}
	return updated, failed, 0
}
