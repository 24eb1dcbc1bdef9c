package ahrefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"domainscan/internal/domain"
	"domainscan/internal/ports"
)

// DefaultBaseURL is the v3 REST API root.
const DefaultBaseURL = "https://api.ahrefs.com/v3"

// Client talks to the Ahrefs v3 API for domain metrics.
type Client struct {
	baseURL    string
	apiKey     string
	country    string
	httpClient *http.Client
}

var _ ports.MetricsFetcher = (*Client)(nil)

// NewClient builds a reusable API client. An empty baseURL falls back to the
// production endpoint; country scopes keyword lookups (e.g. "nl").
func NewClient(baseURL, apiKey, country string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		country: country,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchTraffic pulls the last twelve months of organic and paid traffic,
// grouped monthly.
func (c *Client) FetchTraffic(ctx context.Context, name string) ([]domain.TrafficPoint, error) {
	today := time.Now().UTC()
	from := today.AddDate(0, -12, 0)

	raw, err := c.get(ctx, "site-explorer/metrics-history", url.Values{
		"target":           {name},
		"mode":             {"domain"},
		"date_from":        {from.Format("2006-01-02")},
		"date_to":          {today.Format("2006-01-02")},
		"history_grouping": {"monthly"},
		"output":           {"json"},
	})
	if err != nil {
		return nil, err
	}

	rows, err := extractRows(raw, "metrics")
	if err != nil {
		return nil, fmt.Errorf("metrics-history for %s: %w", name, err)
	}

	history := make([]domain.TrafficPoint, 0, len(rows))
	for _, row := range rows {
		month := stringField(row, "date", "month")
		if len(month) > 7 {
			month = month[:7]
		}
		history = append(history, domain.TrafficPoint{
			Month:   month,
			Organic: intField(row, "org_traffic", "organic_traffic"),
			Paid:    intField(row, "paid_traffic"),
		})
	}

	return history, nil
}

// FetchKeywords pulls the organic keywords the domain ranks for, ordered by
// traffic.
func (c *Client) FetchKeywords(ctx context.Context, name string) ([]domain.KeywordEntry, error) {
	params := url.Values{
		"target":   {name},
		"mode":     {"domain"},
		"select":   {"keyword,volume,traffic,position,difficulty"},
		"limit":    {"1000"},
		"order_by": {"traffic:desc"},
		"output":   {"json"},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	raw, err := c.get(ctx, "site-explorer/organic-keywords", params)
	if err != nil {
		return nil, err
	}

	rows, err := extractRows(raw, "keywords")
	if err != nil {
		return nil, fmt.Errorf("organic-keywords for %s: %w", name, err)
	}

	keywords := make([]domain.KeywordEntry, 0, len(rows))
	for _, row := range rows {
		keywords = append(keywords, domain.KeywordEntry{
			Keyword:    stringField(row, "keyword"),
			Volume:     intField(row, "volume"),
			Traffic:    intField(row, "traffic"),
			Position:   int(intField(row, "position")),
			Difficulty: floatField(row, "difficulty"),
		})
	}

	return keywords, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ahrefs api key is not configured: %w", ports.ErrAuth)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ahrefs %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("ahrefs %s (429): %w", path, ports.ErrRateLimited)
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("ahrefs %s (401): %w", path, ports.ErrAuth)
		case http.StatusForbidden:
			return nil, fmt.Errorf("ahrefs %s (403): %w", path, ports.ErrForbidden)
		}
		return nil, fmt.Errorf("ahrefs %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ahrefs response: %w", err)
	}

	return raw, nil
}

// extractRows tolerates the response shapes the API has been observed to
// return: a bare array, {"rows": [...]}, or a named key such as "metrics" or
// "keywords".
func extractRows(raw json.RawMessage, namedKey string) ([]map[string]json.RawMessage, error) {
	var direct []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("unexpected response: %w", err)
	}

	for _, key := range []string{namedKey, "rows"} {
		inner, ok := wrapper[key]
		if !ok {
			continue
		}
		var rows []map[string]json.RawMessage
		if err := json.Unmarshal(inner, &rows); err != nil {
			return nil, fmt.Errorf("unexpected %q shape: %w", key, err)
		}
		return rows, nil
	}

	keys := make([]string, 0, len(wrapper))
	for k := range wrapper {
		keys = append(keys, k)
	}
	return nil, fmt.Errorf("unexpected response format, keys: %s", strings.Join(keys, ", "))
}

func stringField(row map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

func intField(row map[string]json.RawMessage, keys ...string) int64 {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			return n
		}
		// Some fields arrive as floats.
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return int64(f)
		}
	}
	return 0
}

func floatField(row map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
	}
	return 0
}
