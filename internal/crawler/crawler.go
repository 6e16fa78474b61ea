// Package crawler classifies requests from known search and social
// crawlers so indexing traffic is never blocked.
package crawler

import (
	"strings"

	"github.com/storegate/storegate-go/internal/ipaddr"
)

// Range is a published crawler egress CIDR. The table is loaded once at
// process start and never mutated.
type Range struct {
	Name    string
	CIDR    string
	Version int
}

// User-agent substrings checked before the range table. The UA check is
// cheaper and covers crawlers whose egress IPs are not enumerated below.
var uaTokens = []string{
	"googlebot",
	"adsbot-google",
	"apis-google",
	"mediapartners-google",
	"bingbot",
	"facebookexternalhit",
	"facebot",
	"tiktok",
	"bytespider",
}

// Ranges is the static crawler egress table.
var Ranges = []Range{
	{Name: "google", CIDR: "66.249.0.0/16", Version: ipaddr.V4},
	{Name: "google", CIDR: "2001:4860:4801::/48", Version: ipaddr.V6},
	{Name: "bing", CIDR: "157.55.0.0/16", Version: ipaddr.V4},
	{Name: "bing", CIDR: "207.46.0.0/16", Version: ipaddr.V4},
	{Name: "bing", CIDR: "40.77.167.0/24", Version: ipaddr.V4},
	{Name: "meta", CIDR: "157.240.0.0/16", Version: ipaddr.V4},
	{Name: "meta", CIDR: "31.13.24.0/21", Version: ipaddr.V4},
	{Name: "meta", CIDR: "69.63.176.0/20", Version: ipaddr.V4},
	{Name: "meta", CIDR: "2a03:2880::/29", Version: ipaddr.V6},
	{Name: "bytedance", CIDR: "110.249.201.0/24", Version: ipaddr.V4},
	{Name: "bytedance", CIDR: "111.225.148.0/24", Version: ipaddr.V4},
}

// IsCrawler reports whether the request comes from a known crawler,
// either by user-agent token or by egress IP range.
func IsCrawler(addr, userAgent string) bool {
	_, ok := Match(addr, userAgent)
	return ok
}

// Match returns the crawler name when the request matches, checking the
// user-agent tokens first and then the range table. The first CIDR match
// of the address's version wins.
func Match(addr, userAgent string) (string, bool) {
	if ua := strings.ToLower(userAgent); ua != "" {
		for _, token := range uaTokens {
			if strings.Contains(ua, token) {
				return token, true
			}
		}
	}

	norm := ipaddr.Normalize(addr)
	version := ipaddr.Version(norm)
	if version == ipaddr.Invalid {
		return "", false
	}
	for _, r := range Ranges {
		if r.Version != version {
			continue
		}
		if ipaddr.MatchCIDR(norm, r.CIDR, version) {
			return r.Name, true
		}
	}
	return "", false
}
