// Package geo resolves a client address to a country. Resolution is
// best-effort: the decision engine treats every resolver failure as a
// fail-open ALLOW, so providers return errors freely and never guess.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storegate/storegate-go/internal/ipaddr"
)

// Result is a successful country lookup.
type Result struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	IP          string `json:"ip"`
	IPVersion   int    `json:"ipVersion"`
}

// Resolver maps an address to a country.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (*Result, error)
}

// DefaultEndpoint is the public ip-api.com JSON endpoint.
const DefaultEndpoint = "http://ip-api.com/json"

// HTTPResolver resolves countries against an ip-api compatible JSON
// endpoint: GET <base>/<ip> returning {status, country, countryCode, query}.
type HTTPResolver struct {
	base   string
	client *http.Client
}

// NewHTTPResolver creates a resolver for the given endpoint base URL.
// An empty base falls back to DefaultEndpoint.
func NewHTTPResolver(base string) *HTTPResolver {
	if base == "" {
		base = DefaultEndpoint
	}
	return &HTTPResolver{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup implements Resolver.
func (r *HTTPResolver) Lookup(ctx context.Context, ip string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		Status      string `json:"status"`
		Country     string `json:"country"`
		CountryCode string `json:"countryCode"`
		Query       string `json:"query"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geo lookup returned malformed body: %w", err)
	}
	if body.Status != "success" {
		return nil, fmt.Errorf("geo lookup failed: %s", body.Message)
	}

	resolved := body.Query
	if resolved == "" {
		resolved = ip
	}
	return &Result{
		Country:     body.Country,
		CountryCode: body.CountryCode,
		IP:          resolved,
		IPVersion:   ipaddr.Version(resolved),
	}, nil
}
