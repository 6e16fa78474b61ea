package ipaddr

import (
	"strconv"
	"strings"
)

// MatchCIDR reports whether addr falls inside the given CIDR block.
// version selects the address family (V4 or V6); an addr or cidr that
// does not parse for that family yields false, never an error — CIDR
// checks are best-effort membership tests.
func MatchCIDR(addr, cidr string, version int) bool {
	slash := strings.IndexByte(cidr, '/')
	if slash < 0 {
		return false
	}
	base := cidr[:slash]
	prefixLen, err := strconv.Atoi(cidr[slash+1:])
	if err != nil || prefixLen < 0 {
		return false
	}

	switch version {
	case V4:
		return prefixLen <= 32 && matchV4(addr, base, prefixLen)
	case V6:
		return prefixLen <= 128 && matchV6(addr, base, prefixLen)
	}
	return false
}

// parseV4 parses a dotted quad into a big-endian 32-bit integer.
func parseV4(addr string) (uint32, bool) {
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var v uint32
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		v = v<<8 | uint32(n)
	}
	return v, true
}

func matchV4(addr, base string, prefixLen int) bool {
	a, ok := parseV4(addr)
	if !ok {
		return false
	}
	b, ok := parseV4(base)
	if !ok {
		return false
	}
	if prefixLen == 0 {
		return true
	}
	mask := ^uint32(0) << (32 - prefixLen)
	return a&mask == b&mask
}

// expandV6 expands an IPv6 literal into its eight 16-bit groups,
// filling a :: elision with zero groups and converting a trailing
// dotted quad (as in v4-mapped literals) into two groups.
func expandV6(addr string) ([8]uint16, bool) {
	var groups [8]uint16

	// Rewrite a trailing IPv4 tail into two hex groups.
	if strings.Contains(addr, ".") {
		colon := strings.LastIndexByte(addr, ':')
		if colon < 0 {
			return groups, false
		}
		v4, ok := parseV4(addr[colon+1:])
		if !ok {
			return groups, false
		}
		addr = addr[:colon+1] +
			strconv.FormatUint(uint64(v4>>16), 16) + ":" +
			strconv.FormatUint(uint64(v4&0xffff), 16)
	}

	var head, tail []string
	if i := strings.Index(addr, "::"); i >= 0 {
		left, right := addr[:i], addr[i+2:]
		if strings.Contains(right, "::") {
			return groups, false
		}
		head = splitGroups(left)
		tail = splitGroups(right)
		if len(head)+len(tail) > 7 {
			return groups, false
		}
	} else {
		head = splitGroups(addr)
		if len(head) != 8 {
			return groups, false
		}
	}

	parse := func(s string) (uint16, bool) {
		if s == "" || len(s) > 4 {
			return 0, false
		}
		n, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return 0, false
		}
		return uint16(n), true
	}

	for i, s := range head {
		g, ok := parse(s)
		if !ok {
			return groups, false
		}
		groups[i] = g
	}
	for i, s := range tail {
		g, ok := parse(s)
		if !ok {
			return groups, false
		}
		groups[8-len(tail)+i] = g
	}
	return groups, true
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

func matchV6(addr, base string, prefixLen int) bool {
	a, ok := expandV6(addr)
	if !ok {
		return false
	}
	b, ok := expandV6(base)
	if !ok {
		return false
	}

	full := prefixLen / 16
	for i := 0; i < full; i++ {
		if a[i] != b[i] {
			return false
		}
	}

	// Partial mask on the group that straddles the prefix boundary.
	if rem := prefixLen % 16; rem > 0 {
		mask := ^uint16(0) << (16 - rem)
		if a[full]&mask != b[full]&mask {
			return false
		}
	}
	return true
}
