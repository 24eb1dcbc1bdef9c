package enrichment

import (
	"context"
	"fmt"
	"time"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// Enricher captures a single enrichment variant: fetch the kind-specific
// payload for one domain and persist its metrics record.
type Enricher interface {
	Kind() domain.EnrichmentKind
	Enrich(ctx context.Context, d domain.Domain) error
}

// Registry keeps a mapping from enrichment kinds to their implementations.
type Registry struct {
	enrichers map[domain.EnrichmentKind]Enricher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{enrichers: map[domain.EnrichmentKind]Enricher{}}
}

// Register adds or replaces an enricher implementation.
func (r *Registry) Register(e Enricher) {
	if r.enrichers == nil {
		r.enrichers = map[domain.EnrichmentKind]Enricher{}
	}
	r.enrichers[e.Kind()] = e
}

// Resolve returns an enricher by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.EnrichmentKind) (Enricher, error) {
	if e, ok := r.enrichers[kind]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("enrichment kind %s is not registered", kind)
}

// TrafficEnricher persists twelve months of traffic history per domain.
type TrafficEnricher struct {
	fetcher ports.MetricsFetcher
	store   ports.MetricsStore
	now     func() time.Time
}

// NewTrafficEnricher wires the upstream client and the metrics store.
func NewTrafficEnricher(fetcher ports.MetricsFetcher, store ports.MetricsStore) *TrafficEnricher {
	return &TrafficEnricher{fetcher: fetcher, store: store, now: time.Now}
}

var _ Enricher = (*TrafficEnricher)(nil)

// Kind identifies the traffic-history variant.
func (e *TrafficEnricher) Kind() domain.EnrichmentKind { return domain.KindTraffic }

// Enrich fetches the traffic history and appends the metrics record.
func (e *TrafficEnricher) Enrich(ctx context.Context, d domain.Domain) error {
	history, err := e.fetcher.FetchTraffic(ctx, d.Name)
	if err != nil {
		return fmt.Errorf("fetch traffic for %s: %w", d.Name, err)
	}

	err = e.store.InsertTraffic(ctx, domain.TrafficMetrics{
		DomainID:  d.ID,
		History:   history,
		CheckedAt: e.now(),
	})
	if err != nil {
		return fmt.Errorf("save traffic metrics for %s: %w", d.Name, err)
	}

	return nil
}

// KeywordsEnricher persists the ranking keywords per domain.
type KeywordsEnricher struct {
	fetcher ports.MetricsFetcher
	store   ports.MetricsStore
	now     func() time.Time
}

// NewKeywordsEnricher wires the upstream client and the metrics store.
func NewKeywordsEnricher(fetcher ports.MetricsFetcher, store ports.MetricsStore) *KeywordsEnricher {
	return &KeywordsEnricher{fetcher: fetcher, store: store, now: time.Now}
}

var _ Enricher = (*KeywordsEnricher)(nil)

// Kind identifies the organic-keywords variant.
func (e *KeywordsEnricher) Kind() domain.EnrichmentKind { return domain.KindKeywords }

// Enrich fetches the keyword list and appends the metrics record with totals.
func (e *KeywordsEnricher) Enrich(ctx context.Context, d domain.Domain) error {
	keywords, err := e.fetcher.FetchKeywords(ctx, d.Name)
	if err != nil {
		return fmt.Errorf("fetch keywords for %s: %w", d.Name, err)
	}

	var totalTraffic int64
	for _, kw := range keywords {
		totalTraffic += kw.Traffic
	}

	err = e.store.InsertKeywords(ctx, domain.KeywordMetrics{
		DomainID:      d.ID,
		Keywords:      keywords,
		TotalKeywords: len(keywords),
		TotalTraffic:  totalTraffic,
		CheckedAt:     e.now(),
	})
	if err != nil {
		return fmt.Errorf("save keyword metrics for %s: %w", d.Name, err)
	}

	return nil
}
