// Package search queries the Naver OpenAPI local search endpoint. It is
// the lightweight, browserless complement to the headless fetcher: good
// for store lookups and autocomplete, useless for reviews.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://openapi.naver.com/v1/search/local.json"
	defaultDisplay  = 5
)

// Item is one local search result. The API wraps store names in <b> tags
// around the matched query; Name strips them.
type Item struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Address     string `json:"address"`
	RoadAddress string `json:"roadAddress"`
	Link        string `json:"link"`
	MapX        string `json:"mapx"`
	MapY        string `json:"mapy"`
}

// Name returns the title with the API's emphasis markup removed.
func (i Item) Name() string {
	r := strings.NewReplacer("<b>", "", "</b>", "", "&amp;", "&")
	return r.Replace(i.Title)
}

type response struct {
	Total int    `json:"total"`
	Items []Item `json:"items"`
}

// Client calls the OpenAPI with application credentials.
type Client struct {
	httpClient *http.Client
	endpoint   string
	clientID   string
	secret     string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// New builds a Client from the registered application credentials.
func New(clientID, secret string, opts ...Option) (*Client, error) {
	if clientID == "" || secret == "" {
		return nil, fmt.Errorf("naver openapi credentials are required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultEndpoint,
		clientID:   clientID,
		secret:     secret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query shapes one local search call. Size and Page are clamped to the
// API's limits (display max 5); Sort accepts "random" or "comment" and
// defaults to relevance order when empty.
type Query struct {
	Keyword string
	Size    int
	Page    int
	Sort    string
}

// Local searches local businesses matching the query.
func (c *Client) Local(ctx context.Context, q Query) ([]Item, error) {
	if q.Keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	if q.Size <= 0 || q.Size > defaultDisplay {
		q.Size = defaultDisplay
	}
	if q.Page < 1 {
		q.Page = 1
	}

	params := url.Values{}
	params.Set("query", q.Keyword)
	params.Set("display", fmt.Sprintf("%d", q.Size))
	params.Set("start", fmt.Sprintf("%d", (q.Page-1)*q.Size+1))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build local search request: %w", err)
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("local search: unexpected status %d", resp.StatusCode)
	}
	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode local search response: %w", err)
	}
	return body.Items, nil
}
