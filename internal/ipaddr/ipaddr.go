// Package ipaddr handles client address normalization, representation
// variants and CIDR membership for both IPv4 and IPv6.
//
// Stored rules may have been written against any textual form of an
// address (plain IPv4 or its ::ffff: mapped IPv6 twin), so everything in
// this package works on strings and keeps the matching
// representation-agnostic.
package ipaddr

import "strings"

// v4MappedPrefix is the textual prefix of an IPv4-mapped IPv6 literal.
const v4MappedPrefix = "::ffff:"

// Address versions. Invalid addresses are excluded from candidate sets,
// never treated as errors.
const (
	Invalid = 0
	V4      = 4
	V6      = 6
)

// Version classifies an address string. Anything with a colon is IPv6
// (this catches v4-mapped literals too), anything with a dot is IPv4,
// everything else is invalid.
func Version(addr string) int {
	if strings.Contains(addr, ":") {
		return V6
	}
	if strings.Contains(addr, ".") {
		return V4
	}
	return Invalid
}

// Normalize canonicalizes an address to a single textual form. An
// IPv4-mapped IPv6 literal (::ffff:a.b.c.d) is rewritten to its plain
// IPv4 form; everything else passes through trimmed.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if embedded, ok := unmap(addr); ok {
		return embedded
	}
	return addr
}

// Variants returns every textual form a stored rule might have used for
// addr: the address itself, plus the ::ffff: mapped form for IPv4, plus
// the embedded IPv4 form for a v4-mapped IPv6 literal.
func Variants(addr string) []string {
	switch Version(addr) {
	case V4:
		return []string{addr, v4MappedPrefix + addr}
	case V6:
		if embedded, ok := unmap(addr); ok {
			return []string{addr, embedded}
		}
		return []string{addr}
	}
	return nil
}

// unmap extracts the plain IPv4 form from a v4-mapped IPv6 literal.
func unmap(addr string) (string, bool) {
	if len(addr) <= len(v4MappedPrefix) {
		return "", false
	}
	if !strings.EqualFold(addr[:len(v4MappedPrefix)], v4MappedPrefix) {
		return "", false
	}
	embedded := addr[len(v4MappedPrefix):]
	if _, ok := parseV4(embedded); !ok {
		return "", false
	}
	return embedded, true
}
