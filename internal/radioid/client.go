// Package radioid talks to the DMR user database API used to enrich radio IDs.
package radioid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://database.radioid.net/api/dmr/user/"

// Entry is one identity record from the API.
type Entry struct {
	ID       int    `json:"id"`
	Callsign string `json:"callsign"`
	Fname    string `json:"fname"`
	State    string `json:"state"`
}

// Client issues unauthenticated lookups with a bounded timeout. Calls are rate
// limited client-side; the upstream database is a shared public service.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func New(baseURL string, timeout time.Duration, perSec float64) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	limit := rate.Inf
	if perSec > 0 {
		limit = rate.Limit(perSec)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// LookupByID resolves a radio ID to its identity record. The results array
// holds zero or one entries; an empty array is not an error.
func (c *Client) LookupByID(ctx context.Context, id int) ([]Entry, error) {
	return c.lookup(ctx, "id", strconv.Itoa(id))
}

// LookupByCallsign returns every radio ID registered to a callsign.
func (c *Client) LookupByCallsign(ctx context.Context, callsign string) ([]Entry, error) {
	return c.lookup(ctx, "callsign", callsign)
}

func (c *Client) lookup(ctx context.Context, key, value string) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s?%s=%s", c.baseURL, key, url.QueryEscape(value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("radioid status %d for %s=%s", resp.StatusCode, key, value)
	}
	var data struct {
		Results []Entry `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	return data.Results, nil
}
