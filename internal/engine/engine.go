// Package engine computes the access verdict for a storefront visitor.
package engine

import (
	"context"
	"net/http"

	"github.com/storegate/storegate-go/internal/crawler"
	"github.com/storegate/storegate-go/internal/geo"
	"github.com/storegate/storegate-go/internal/ipaddr"
	"github.com/storegate/storegate-go/internal/metrics"
	"github.com/storegate/storegate-go/internal/rules"
	"github.com/storegate/storegate-go/internal/util"
)

// Verdict reasons.
const (
	ReasonCrawler         = "crawler"
	ReasonGeoLookupFailed = "geo_lookup_failed"
	ReasonIPBlocked       = "ip_blocked"
	ReasonCountryBlocked  = "country_blocked"
	ReasonNotBlocked      = "not_blocked"
)

// Request carries everything the engine needs for one decision.
type Request struct {
	Shop       string
	UserAgent  string
	Header     http.Header
	RemoteAddr string
}

// Verdict is the decision for one request, with the full candidate and
// variant sets for observability and for the client to decide whether to
// prompt for email verification.
type Verdict struct {
	Allowed              bool     `json:"allowed"`
	Blocked              bool     `json:"blocked,omitempty"`
	Reason               string   `json:"reason"`
	Message              string   `json:"message"`
	IP                   string   `json:"ip"`
	IPVersion            int      `json:"ipVersion"`
	AllIPs               []string `json:"allIPs"`
	IPVariants           []string `json:"ipVariants"`
	Country              string   `json:"country,omitempty"`
	BlockedValue         string   `json:"blockedValue,omitempty"`
	RequiresVerification bool     `json:"requiresVerification,omitempty"`
}

// Engine orchestrates extraction, crawler detection, geo resolution and
// rule lookup into a final verdict. It performs no writes and holds no
// per-request state.
type Engine struct {
	store    rules.Store
	resolver geo.Resolver
	logger   *util.Logger
}

// New creates an engine.
func New(store rules.Store, resolver geo.Resolver, logger *util.Logger) *Engine {
	metrics.Init()
	return &Engine{store: store, resolver: resolver, logger: logger}
}

// Decide runs the decision state machine. It returns an error only for
// client input problems or a rule-store failure; every other condition
// resolves to a verdict.
func (e *Engine) Decide(ctx context.Context, req *Request) (*Verdict, error) {
	if req.Shop == "" {
		return nil, util.NewClientInputError("shop is required")
	}

	allIPs := ipaddr.ExtractAll(req.Header, req.RemoteAddr)
	if len(allIPs) == 0 {
		return nil, util.NewClientInputError("no resolvable client address")
	}

	primary := allIPs[0]
	verdict := &Verdict{
		IP:         primary,
		IPVersion:  ipaddr.Version(primary),
		AllIPs:     allIPs,
		IPVariants: expandAll(allIPs),
	}
	e.logger.Debugf("decision for shop=%s primary=%s candidates=%v", req.Shop, primary, allIPs)

	// Crawlers bypass all further checks: search and ad indexing must
	// never be blocked.
	if name, ok := crawler.Match(primary, req.UserAgent); ok {
		verdict.Allowed = true
		verdict.Reason = ReasonCrawler
		verdict.Message = "known crawler (" + name + ")"
		e.finish(req.Shop, verdict)
		return verdict, nil
	}

	// Fail-open on geo: an availability failure in a third-party service
	// must never itself produce a false block.
	geoResult, geoErr := e.resolver.Lookup(ctx, primary)
	if geoErr != nil {
		e.logger.Warnf("geo lookup failed for %s: %v", primary, geoErr)
		metrics.IncGeoFailure()
		verdict.Allowed = true
		verdict.Reason = ReasonGeoLookupFailed
		verdict.Message = "geolocation unavailable, allowing"
		e.finish(req.Shop, verdict)
		return verdict, nil
	}
	verdict.Country = geoResult.Country

	blocked, err := e.store.FindByValues(ctx, req.Shop, rules.ListBlock, rules.TypeIP, verdict.IPVariants)
	if err != nil {
		return nil, util.NewUpstreamError("rule store unavailable", err)
	}
	if blocked != nil {
		verdict.Blocked = true
		verdict.Reason = ReasonIPBlocked
		verdict.Message = "your IP address is blocked"
		verdict.BlockedValue = blocked.Value
		verdict.RequiresVerification = true
		e.finish(req.Shop, verdict)
		return verdict, nil
	}

	blocked, err = e.store.Find(ctx, req.Shop, rules.ListBlock, rules.TypeCountry, geoResult.Country)
	if err != nil {
		return nil, util.NewUpstreamError("rule store unavailable", err)
	}
	if blocked != nil {
		verdict.Blocked = true
		verdict.Reason = ReasonCountryBlocked
		verdict.Message = "access from your country is blocked"
		verdict.BlockedValue = blocked.Value
		verdict.RequiresVerification = true
		e.finish(req.Shop, verdict)
		return verdict, nil
	}

	verdict.Allowed = true
	verdict.Reason = ReasonNotBlocked
	verdict.Message = "access granted"
	e.finish(req.Shop, verdict)
	return verdict, nil
}

func (e *Engine) finish(shop string, v *Verdict) {
	metrics.IncDecision(v.Reason)
	if v.Blocked {
		e.logger.Infof("shop=%s ip=%s verdict=block reason=%s value=%s", shop, v.IP, v.Reason, v.BlockedValue)
	} else {
		e.logger.Infof("shop=%s ip=%s verdict=allow reason=%s", shop, v.IP, v.Reason)
	}
}

// expandAll expands every candidate address into its representation
// variants, ordered and deduplicated.
func expandAll(addrs []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, addr := range addrs {
		for _, variant := range ipaddr.Variants(addr) {
			if _, dup := seen[variant]; dup {
				continue
			}
			seen[variant] = struct{}{}
			out = append(out, variant)
		}
	}
	return out
}
