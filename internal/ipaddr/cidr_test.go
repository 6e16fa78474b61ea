package ipaddr

import (
	"fmt"
	"testing"
)

func TestMatchCIDRSelf(t *testing.T) {
	// An address always matches a CIDR of itself at any prefix length.
	addrs := []string{"0.0.0.0", "1.2.3.4", "66.249.1.1", "255.255.255.255"}
	for _, addr := range addrs {
		for mask := 0; mask <= 32; mask++ {
			cidr := fmt.Sprintf("%s/%d", addr, mask)
			if !MatchCIDR(addr, cidr, V4) {
				t.Errorf("MatchCIDR(%q, %q) = false, want true", addr, cidr)
			}
		}
	}
}

func TestMatchCIDRV4(t *testing.T) {
	cases := []struct {
		addr, cidr string
		want       bool
	}{
		{"66.249.1.1", "66.249.0.0/16", true},
		{"66.248.1.1", "66.249.0.0/16", false},
		{"66.249.255.255", "66.249.0.0/16", true},
		{"157.240.1.1", "157.240.0.0/16", true},
		{"10.1.2.3", "10.0.0.0/8", true},
		{"11.1.2.3", "10.0.0.0/8", false},
		{"192.168.1.17", "192.168.1.16/31", true},
		{"192.168.1.18", "192.168.1.16/31", false},
		{"8.8.8.8", "0.0.0.0/0", true},
	}
	for _, tc := range cases {
		if got := MatchCIDR(tc.addr, tc.cidr, V4); got != tc.want {
			t.Errorf("MatchCIDR(%q, %q, 4) = %v, want %v", tc.addr, tc.cidr, got, tc.want)
		}
	}
}

func TestMatchCIDRV6(t *testing.T) {
	cases := []struct {
		addr, cidr string
		want       bool
	}{
		{"2001:4860:4801::1", "2001:4860:4801::/48", true},
		{"2001:4860:4802::1", "2001:4860:4801::/48", false},
		{"2a03:2880:f003:c07:face:b00c::2", "2a03:2880::/29", true},
		{"2a03:2900::1", "2a03:2880::/29", false},
		{"::1", "::1/128", true},
		{"::2", "::1/128", false},
		{"fe80::1234", "fe80::/10", true},
		{"::ffff:1.2.3.4", "::ffff:1.2.0.0/112", true},
		{"2001:db8::1", "::/0", true},
	}
	for _, tc := range cases {
		if got := MatchCIDR(tc.addr, tc.cidr, V6); got != tc.want {
			t.Errorf("MatchCIDR(%q, %q, 6) = %v, want %v", tc.addr, tc.cidr, got, tc.want)
		}
	}
}

func TestMatchCIDRParseFailures(t *testing.T) {
	// Parse failures are non-matches, never errors.
	cases := []struct {
		addr, cidr string
		version    int
	}{
		{"66.249.1.1", "66.249.0.0", V4},        // no prefix
		{"66.249.1.1", "66.249.0.0/xx", V4},     // bad prefix
		{"66.249.1.1", "66.249.0.0/33", V4},     // prefix too long
		{"66.249.1.1", "66.249.0.0/-1", V4},     // negative prefix
		{"not-an-ip", "66.249.0.0/16", V4},      // bad address
		{"66.249.1.1", "garbage/16", V4},        // bad base
		{"1.2.3.256", "1.2.3.0/24", V4},         // octet overflow
		{"2001::4860::1", "2001::/16", V6},      // double elision
		{"2001:zzzz::1", "2001::/16", V6},       // bad hex group
		{"2001:db8::1", "2001:db8::/129", V6},   // prefix too long
		{"66.249.1.1", "66.249.0.0/16", Invalid}, // unknown version
	}
	for _, tc := range cases {
		if MatchCIDR(tc.addr, tc.cidr, tc.version) {
			t.Errorf("MatchCIDR(%q, %q, %d) = true, want false", tc.addr, tc.cidr, tc.version)
		}
	}
}
