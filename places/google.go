// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/utils/htmlutils"
	"github.com/jcodagnone/nearby/utils/httputils"
	"github.com/jcodagnone/nearby/utils/textutils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultGoogleBaseURL is the Google Maps web services endpoint.
	DefaultGoogleBaseURL = "https://maps.googleapis.com/maps/api"
	// DefaultGoogleRateLimit is the number of requests per second allowed.
	DefaultGoogleRateLimit = 10

	nearbySearchPath = "/place/nearbysearch/json"
	maxErrorBody     = 4 << 10
)

// GoogleClient queries the Google Places Nearby Search API. The API accepts
// a single type per request, so criteria with several tags fan out into
// parallel requests whose results are merged.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	trace      io.Writer
	maxResults int
}

// GoogleOption configures a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) GoogleOption {
	return func(c *GoogleClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) GoogleOption {
	return func(c *GoogleClient) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets the rate limit in requests per second. Zero or less
// disables limiting.
func WithRateLimit(requestsPerSecond int) GoogleOption {
	return func(c *GoogleClient) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)

			return
		}

		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTrace dumps every HTTP transaction to w. Ignored when WithHTTPClient is
// also given.
func WithTrace(w io.Writer) GoogleOption {
	return func(c *GoogleClient) {
		c.trace = w
	}
}

// WithMaxResults bounds the number of places returned per request. Zero
// means no bound.
func WithMaxResults(n int) GoogleOption {
	return func(c *GoogleClient) {
		c.maxResults = n
	}
}

// NewGoogleClient creates a Google Places client.
func NewGoogleClient(apiKey string, opts ...GoogleOption) (*GoogleClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google places API key is empty: %w", ErrInvalidArgument)
	}

	c := &GoogleClient{
		apiKey:  apiKey,
		baseURL: DefaultGoogleBaseURL,
		limiter: rate.NewLimiter(rate.Limit(DefaultGoogleRateLimit), DefaultGoogleRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: httputils.NewTransport(nil, map[string]string{"User-Agent": "nearby"}, c.trace),
		}
	}

	return c, nil
}

type googlePlace struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Types []string `json:"types"`
}

type googleNearbyResponse struct {
	HTMLAttributions []string      `json:"html_attributions"`
	Results          []googlePlace `json:"results"`
	Status           string        `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, REQUEST_DENIED, INVALID_REQUEST
	ErrorMessage     string        `json:"error_message"`
}

type googlePage struct {
	places       []*Place
	attributions []string
}

// QueryNearby implements Client.
func (c *GoogleClient) QueryNearby(ctx context.Context, q Query) (*SearchResult, error) {
	if q.Position == nil {
		return nil, &RepositoryError{Kind: KindNoLocation, Message: "no position supplied"}
	}

	types := q.Filter.Tags()
	if len(types) == 0 {
		types = []string{""}
	}

	pages := make([]googlePage, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range types {
		g.Go(func() error {
			page, err := c.nearbySearch(gctx, *q.Position, q.Radius, typ)
			if err != nil {
				return err
			}

			pages[i] = page

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergePages(pages), nil
}

func mergePages(pages []googlePage) *SearchResult {
	seenPlace := make(map[string]bool)
	seenAttr := make(map[string]bool)
	res := &SearchResult{Places: make([]*Place, 0)}

	for _, page := range pages {
		for _, p := range page.places {
			if seenPlace[p.ID] {
				continue
			}

			seenPlace[p.ID] = true
			res.Places = append(res.Places, p)
		}

		for _, a := range page.attributions {
			if seenAttr[a] {
				continue
			}

			seenAttr[a] = true
			res.Attributions = append(res.Attributions, a)
		}
	}

	return res
}

func (c *GoogleClient) nearbySearch(ctx context.Context, pos spatial.Point, radius float64, typ string) (googlePage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return googlePage{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", pos.Lat, pos.Lng))
	params.Set("radius", strconv.FormatFloat(radius, 'f', 0, 64))
	params.Set("key", c.apiKey)

	if typ != "" {
		params.Set("type", typ)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+nearbySearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return googlePage{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return googlePage{}, unavailable("calling google places", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return googlePage{}, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var apiResp googleNearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return googlePage{}, unavailable("decoding google places response", err)
	}

	if apiResp.Status != "OK" && apiResp.Status != "ZERO_RESULTS" {
		msg := "google places status " + apiResp.Status
		if apiResp.ErrorMessage != "" {
			msg += ": " + apiResp.ErrorMessage
		}

		return googlePage{}, &RepositoryError{Kind: KindUnavailable, Message: msg}
	}

	if c.maxResults > 0 && len(apiResp.Results) > c.maxResults {
		apiResp.Results = apiResp.Results[:c.maxResults]
	}

	attributions, err := htmlutils.PlainTexts(apiResp.HTMLAttributions)
	if err != nil {
		log.Printf("google places: ignoring attributions: %v", err)

		attributions = nil
	}

	page := googlePage{places: make([]*Place, 0, len(apiResp.Results)), attributions: attributions}
	for _, r := range apiResp.Results {
		page.places = append(page.places, r.toPlace(typ))
	}

	return page, nil
}

// toPlace converts a result. When the request asked for a type that type is
// the category, otherwise the first type Google reports.
func (r googlePlace) toPlace(requested string) *Place {
	category := requested
	if category == "" && len(r.Types) > 0 {
		category = textutils.NormalizeTag(r.Types[0])
	}

	return &Place{
		ID:       r.PlaceID,
		Name:     r.Name,
		Point:    spatial.Point{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		Category: category,
		Address:  r.Vicinity,
	}
}
