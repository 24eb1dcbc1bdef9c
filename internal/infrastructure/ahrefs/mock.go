package ahrefs

import (
	"context"
	"fmt"
	"math"
	"time"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// MockClient generates deterministic, plausible metrics seeded by the domain
// name. Offline-safe default for local runs and demos.
type MockClient struct{}

var _ ports.MetricsFetcher = (*MockClient)(nil)

// NewMockClient returns the offline fetcher.
func NewMockClient() *MockClient { return &MockClient{} }

// seededRand returns a cheap deterministic generator for the given seed
// string. The same domain always yields the same metrics.
func seededRand(seed string) func() float64 {
	var hash int32
	for _, ch := range seed {
		hash = (hash << 5) - hash + ch
	}
	state := float64(hash)
	return func() float64 {
		state = math.Sin(state) * 10000
		return state - math.Floor(state)
	}
}

// FetchTraffic fabricates twelve months of history ending this month.
func (m *MockClient) FetchTraffic(_ context.Context, name string) ([]domain.TrafficPoint, error) {
	random := seededRand(name)
	now := time.Now().UTC()

	history := make([]domain.TrafficPoint, 0, 12)
	for i := 11; i >= 0; i-- {
		month := now.AddDate(0, -i, 0)
		history = append(history, domain.TrafficPoint{
			Month:   month.Format("2006-01"),
			Organic: int64(random() * 100000),
			Paid:    int64(random() * 20000),
		})
	}

	return history, nil
}

// FetchKeywords fabricates a small ranking-keyword set.
func (m *MockClient) FetchKeywords(_ context.Context, name string) ([]domain.KeywordEntry, error) {
	random := seededRand(name)

	count := 5 + int(random()*20)
	keywords := make([]domain.KeywordEntry, 0, count)
	for i := 0; i < count; i++ {
		keywords = append(keywords, domain.KeywordEntry{
			Keyword:    fmt.Sprintf("%s keyword %d", name, i+1),
			Volume:     int64(random() * 10000),
			Traffic:    int64(random() * 5000),
			Position:   1 + int(random()*99),
			Difficulty: random() * 100,
		})
	}

	return keywords, nil
}
