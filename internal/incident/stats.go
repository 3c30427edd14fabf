package incident

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// HomeStats summarises the corpus for the dashboard. Today starts at
// midnight in the grouping timezone.
type HomeStats struct {
	TotalEvents   int64         `json:"totalEvents"`
	TotalMessages int64         `json:"totalMessages"`
	TodayMessages int64         `json:"todayMessages"`
	TodayCoords   [][2]*float64 `json:"todayCoords"` // [lng, lat] of the first TodayCoordsLimit reports
}

// HomeStats returns the dashboard counters, cached briefly and dropped on
// every mutation.
func (s *Service) HomeStats(ctx context.Context) (*HomeStats, error) {
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	cacheKey := "home:" + midnight.Format(time.DateOnly)

	if s.stats != nil {
		if cached, found := s.stats.Get(cacheKey); found {
			if stats, ok := cached.(*HomeStats); ok {
				return stats, nil
			}
		}
	}

	stats, err := s.computeHomeStats(ctx, midnight.UTC())
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		s.stats.Set(cacheKey, stats, cache.DefaultExpiration)
	}
	return stats, nil
}

func (s *Service) computeHomeStats(ctx context.Context, since time.Time) (*HomeStats, error) {
	reports := s.store.Reports()

	totalEvents, err := s.store.Events().Count(ctx)
	if err != nil {
		return nil, err
	}
	totalMessages, err := reports.Count(ctx)
	if err != nil {
		return nil, err
	}
	todayMessages, err := reports.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	coords, err := reports.CoordinatesSince(ctx, since, TodayCoordsLimit)
	if err != nil {
		return nil, err
	}

	stats := &HomeStats{
		TotalEvents:   totalEvents,
		TotalMessages: totalMessages,
		TodayMessages: todayMessages,
		TodayCoords:   make([][2]*float64, 0, len(coords)),
	}
	for _, c := range coords {
		stats.TodayCoords = append(stats.TodayCoords, [2]*float64{c.Lng, c.Lat})
	}
	return stats, nil
}
