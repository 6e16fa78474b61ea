package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPResolverLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/203.0.113.7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","country":"North Korea","countryCode":"KP","query":"203.0.113.7"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPResolver(srv.URL).Lookup(context.Background(), "203.0.113.7")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.Country != "North Korea" || res.CountryCode != "KP" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.IP != "203.0.113.7" || res.IPVersion != 4 {
		t.Errorf("unexpected address fields %+v", res)
	}
}

func TestHTTPResolverFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-success status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"api-level failure", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{{{`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			if _, err := NewHTTPResolver(srv.URL).Lookup(context.Background(), "10.0.0.1"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHTTPResolverNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // resolve against a dead server

	if _, err := NewHTTPResolver(srv.URL).Lookup(context.Background(), "10.0.0.1"); err == nil {
		t.Error("expected an error from a dead endpoint")
	}
}
