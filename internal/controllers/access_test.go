package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/storegate/storegate-go/internal/engine"
	"github.com/storegate/storegate-go/internal/geo"
	"github.com/storegate/storegate-go/internal/rules"
	"github.com/storegate/storegate-go/internal/token"
	"github.com/storegate/storegate-go/internal/util"
)

type stubResolver struct {
	result *geo.Result
	err    error
}

func (s *stubResolver) Lookup(_ context.Context, ip string) (*geo.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	res.IP = ip
	return &res, nil
}

func newAccessController(t *testing.T, store rules.Store, resolver geo.Resolver) (*AccessController, *token.Service) {
	t.Helper()
	logger := util.NewLogger("error")
	tokens, err := token.NewService("controller-test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	eng := engine.New(store, resolver, logger)
	return NewAccessController(eng, tokens, store, logger), tokens
}

func postJSON(handler http.HandlerFunc, path string, body map[string]interface{}, header http.Header) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.RemoteAddr = "10.0.0.1:49152"
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestVerifyIPBlocked(t *testing.T) {
	ctx := context.Background()
	store := rules.NewMemoryStore()
	store.Create(ctx, &rules.AccessRule{
		Shop: "a.myshopify.com", ListType: rules.ListBlock, Type: rules.TypeIP, Value: "203.0.113.9",
	})
	ac, _ := newAccessController(t, store, &stubResolver{result: &geo.Result{Country: "United States"}})

	header := http.Header{}
	header.Set("X-Forwarded-For", "203.0.113.9")
	w := postJSON(ac.VerifyIP, "/access/verify-ip", map[string]interface{}{
		"shop": "a.myshopify.com", "userAgent": "Mozilla/5.0",
	}, header)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["blocked"] != true {
		t.Errorf("body = %v", body)
	}
	if body["reason"] != engine.ReasonIPBlocked || body["requiresVerification"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestVerifyIPMissingShop(t *testing.T) {
	ac, _ := newAccessController(t, rules.NewMemoryStore(), &stubResolver{result: &geo.Result{Country: "United States"}})
	w := postJSON(ac.VerifyIP, "/access/verify-ip", map[string]interface{}{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyIPStoreFailure(t *testing.T) {
	ac, _ := newAccessController(t, &failingStore{rules.NewMemoryStore()}, &stubResolver{result: &geo.Result{Country: "United States"}})
	header := http.Header{}
	header.Set("X-Forwarded-For", "203.0.113.9")
	w := postJSON(ac.VerifyIP, "/access/verify-ip", map[string]interface{}{"shop": "a.myshopify.com"}, header)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "datastore offline") {
		t.Error("internal error detail leaked to the client")
	}
}

type failingStore struct {
	rules.Store
}

func (f *failingStore) FindByValues(context.Context, string, string, string, []string) (*rules.AccessRule, error) {
	return nil, errors.New("datastore offline")
}

func TestVerifyEmailIssuesCookie(t *testing.T) {
	ctx := context.Background()
	store := rules.NewMemoryStore()
	store.Create(ctx, &rules.AccessRule{
		Shop: "a.myshopify.com", ListType: rules.ListAllow, Type: rules.TypeEmail, Value: "vip@example.com",
	})
	ac, tokens := newAccessController(t, store, &stubResolver{result: &geo.Result{Country: "United States"}})

	w := postJSON(ac.VerifyEmail, "/access/verify-email", map[string]interface{}{
		"email": "vip@example.com", "shop": "a.myshopify.com",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["verified"] != true || body["accessGranted"] != true {
		t.Errorf("body = %v", body)
	}
	if body["expiresIn"] != float64(86400) {
		t.Errorf("expiresIn = %v", body["expiresIn"])
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "bypassToken" {
		t.Fatalf("cookies = %v", cookies)
	}
	c := cookies[0]
	if c.MaxAge != 86400 || c.Path != "/" || !c.Secure || c.SameSite != http.SameSiteNoneMode {
		t.Errorf("cookie attributes wrong: %+v", c)
	}

	// The cookie value is a usable bypass token.
	if status := tokens.Verify(c.Value, "a.myshopify.com"); !status.Valid {
		t.Errorf("issued cookie token does not verify: %+v", status)
	}
}

func TestVerifyEmailNotOnAllowlist(t *testing.T) {
	ac, _ := newAccessController(t, rules.NewMemoryStore(), &stubResolver{result: &geo.Result{Country: "United States"}})
	w := postJSON(ac.VerifyEmail, "/access/verify-email", map[string]interface{}{
		"email": "stranger@example.com", "shop": "a.myshopify.com",
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	body := decodeBody(t, w)
	if body["verified"] != false || body["accessGranted"] != false {
		t.Errorf("body = %v", body)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no cookie may be set on a failed verification")
	}
}

func TestVerifyTokenStatusCodes(t *testing.T) {
	ac, tokens := newAccessController(t, rules.NewMemoryStore(), &stubResolver{result: &geo.Result{Country: "United States"}})
	issued, err := tokens.Issue("a.myshopify.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Valid token.
	w := postJSON(ac.VerifyToken, "/access/verify-token", map[string]interface{}{
		"token": issued, "shop": "a.myshopify.com",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["valid"] != true || body["verified"] != true {
		t.Errorf("body = %v", body)
	}
	if body["remainingSeconds"] == nil || body["expiresAt"] == nil {
		t.Errorf("missing expiry fields: %v", body)
	}

	// Shop mismatch → 403.
	w = postJSON(ac.VerifyToken, "/access/verify-token", map[string]interface{}{
		"token": issued, "shop": "b.myshopify.com",
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("shop mismatch status = %d, want 403", w.Code)
	}
	body = decodeBody(t, w)
	if body["success"] != false || body["error"] != "token was issued for a different shop" {
		t.Errorf("shop mismatch body = %v", body)
	}

	// Garbage token → 401.
	w = postJSON(ac.VerifyToken, "/access/verify-token", map[string]interface{}{
		"token": "garbage", "shop": "a.myshopify.com",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid token status = %d, want 401", w.Code)
	}
	body = decodeBody(t, w)
	if body["success"] != false || body["error"] != "invalid token" {
		t.Errorf("invalid token body = %v", body)
	}

	// Missing fields → 400.
	w = postJSON(ac.VerifyToken, "/access/verify-token", map[string]interface{}{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fields status = %d, want 400", w.Code)
	}
}
