package crawler

import "testing"

func TestUserAgentMatchIgnoresIP(t *testing.T) {
	ua := "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	for _, ip := range []string{"8.8.8.8", "203.0.113.1", "not-an-ip", ""} {
		if !IsCrawler(ip, ua) {
			t.Errorf("IsCrawler(%q, googlebot UA) = false, want true", ip)
		}
	}
}

func TestIPRangeMatchWithoutUserAgentHint(t *testing.T) {
	cases := []struct {
		addr string
		name string
	}{
		{"66.249.1.1", "google"},
		{"2001:4860:4801::5", "google"},
		{"157.240.1.1", "meta"},
		{"157.55.39.10", "bing"},
		{"::ffff:66.249.1.1", "google"}, // mapped form normalized before lookup
	}
	for _, tc := range cases {
		name, ok := Match(tc.addr, "")
		if !ok || name != tc.name {
			t.Errorf("Match(%q) = %q, %v, want %q, true", tc.addr, name, ok, tc.name)
		}
	}
}

func TestNotACrawler(t *testing.T) {
	cases := []struct {
		addr, ua string
	}{
		{"8.8.8.8", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"},
		{"203.0.113.1", ""},
		{"2001:db8::1", "curl/8.0"},
		{"garbage", ""},
	}
	for _, tc := range cases {
		if IsCrawler(tc.addr, tc.ua) {
			t.Errorf("IsCrawler(%q, %q) = true, want false", tc.addr, tc.ua)
		}
	}
}

func TestRangeTableVersionsAreConsistent(t *testing.T) {
	for _, r := range Ranges {
		if r.Version != 4 && r.Version != 6 {
			t.Errorf("range %s/%s has invalid version %d", r.Name, r.CIDR, r.Version)
		}
	}
}
