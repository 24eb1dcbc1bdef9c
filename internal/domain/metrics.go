package domain

import "time"

// EnrichmentKind selects which metrics schema and fetch path a job's domains
// go through.
type EnrichmentKind string

const (
	// KindTraffic pulls twelve months of organic/paid traffic history.
	KindTraffic EnrichmentKind = "traffic"
	// KindKeywords pulls the organic keywords the domain ranks for.
	KindKeywords EnrichmentKind = "keywords"
)

// Valid reports whether the kind is one of the known variants.
func (k EnrichmentKind) Valid() bool {
	return k == KindTraffic || k == KindKeywords
}

// TrafficPoint is one month of traffic for a domain.
type TrafficPoint struct {
	Month   string `json:"date"` // YYYY-MM
	Organic int64  `json:"organic_traffic"`
	Paid    int64  `json:"paid_traffic"`
}

// TrafficMetrics is the payload persisted for a traffic-kind domain.
// Append-only: one record per successful processing, never updated.
type TrafficMetrics struct {
	DomainID  string
	History   []TrafficPoint
	CheckedAt time.Time
}

// KeywordEntry is one ranking keyword returned by the upstream API.
type KeywordEntry struct {
	Keyword    string  `json:"keyword"`
	Volume     int64   `json:"volume"`
	Traffic    int64   `json:"traffic"`
	Position   int     `json:"position"`
	Difficulty float64 `json:"difficulty"`
}

// KeywordMetrics is the payload persisted for a keywords-kind domain.
type KeywordMetrics struct {
	DomainID      string
	Keywords      []KeywordEntry
	TotalKeywords int
	TotalTraffic  int64
	CheckedAt     time.Time
}
