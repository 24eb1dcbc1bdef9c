package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"domainscan/internal/domain"
)

type fakeFetcher struct {
	traffic  []domain.TrafficPoint
	keywords []domain.KeywordEntry
	err      error
}

func (f *fakeFetcher) FetchTraffic(context.Context, string) ([]domain.TrafficPoint, error) {
	return f.traffic, f.err
}

func (f *fakeFetcher) FetchKeywords(context.Context, string) ([]domain.KeywordEntry, error) {
	return f.keywords, f.err
}

type captureStore struct {
	traffic  []domain.TrafficMetrics
	keywords []domain.KeywordMetrics
}

func (s *captureStore) InsertTraffic(_ context.Context, m domain.TrafficMetrics) error {
	s.traffic = append(s.traffic, m)
	return nil
}

func (s *captureStore) InsertKeywords(_ context.Context, m domain.KeywordMetrics) error {
	s.keywords = append(s.keywords, m)
	return nil
}

func (s *captureStore) CountCheckedSince(context.Context, time.Time) (int, error) {
	return 0, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(NewTrafficEnricher(&fakeFetcher{}, &captureStore{}))

	e, err := reg.Resolve(domain.KindTraffic)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e.Kind() != domain.KindTraffic {
		t.Fatalf("resolved wrong kind: %s", e.Kind())
	}

	if _, err := reg.Resolve(domain.KindKeywords); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

func TestTrafficEnricherPersistsHistory(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{traffic: []domain.TrafficPoint{
		{Month: "2026-07", Organic: 100, Paid: 5},
		{Month: "2026-08", Organic: 120, Paid: 0},
	}}
	store := &captureStore{}

	e := NewTrafficEnricher(fetcher, store)
	err := e.Enrich(context.Background(), domain.Domain{ID: "d1", Name: "example.com"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if len(store.traffic) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.traffic))
	}
	rec := store.traffic[0]
	if rec.DomainID != "d1" || len(rec.History) != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CheckedAt.IsZero() {
		t.Fatalf("checked_at not stamped")
	}
}

func TestKeywordsEnricherComputesTotals(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{keywords: []domain.KeywordEntry{
		{Keyword: "shoes", Traffic: 210},
		{Keyword: "boots", Traffic: 40},
	}}
	store := &captureStore{}

	e := NewKeywordsEnricher(fetcher, store)
	err := e.Enrich(context.Background(), domain.Domain{ID: "d2", Name: "example.com"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}

	if len(store.keywords) != 1 {
		t.Fatalf("expected 1 record, got %d", len(store.keywords))
	}
	rec := store.keywords[0]
	if rec.TotalKeywords != 2 || rec.TotalTraffic != 250 {
		t.Fatalf("totals not computed: %+v", rec)
	}
}

func TestEnricherPropagatesFetchError(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream down")
	e := NewKeywordsEnricher(&fakeFetcher{err: upstream}, &captureStore{})

	err := e.Enrich(context.Background(), domain.Domain{ID: "d3", Name: "example.com"})
	if !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}
