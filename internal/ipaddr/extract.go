package ipaddr

import (
	"net"
	"net/http"
	"strings"
)

// Trust-ordered client address headers. cf-connecting-ip and
// true-client-ip are set by the CDN edge; x-forwarded-for accumulates
// one entry per proxy hop with the original client leftmost.
var trustedHeaders = []string{
	"Cf-Connecting-Ip",
	"True-Client-Ip",
	"X-Forwarded-For",
	"X-Real-Ip",
}

// ExtractAll returns the ordered, deduplicated set of normalized client
// addresses for a request: every trust header (all entries of
// x-forwarded-for) plus the transport peer address, most-trusted first.
// Unparseable candidates are skipped.
func ExtractAll(header http.Header, remoteAddr string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(candidate string) {
		addr := Normalize(candidate)
		if addr == "" || Version(addr) == Invalid {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	// A header may arrive on several lines when each proxy hop appends its
	// own; every line is consulted, and each line may itself hold a
	// comma-separated list.
	for _, name := range trustedHeaders {
		for _, value := range header.Values(name) {
			for _, entry := range strings.Split(value, ",") {
				add(entry)
			}
		}
	}

	// Transport peer, least trusted. RemoteAddr usually carries a port.
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	add(host)

	return out
}

// Primary returns the single most-trusted client address for a request,
// or "" when no candidate parses.
func Primary(header http.Header, remoteAddr string) string {
	if all := ExtractAll(header, remoteAddr); len(all) > 0 {
		return all[0]
	}
	return ""
}
