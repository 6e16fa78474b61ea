package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/storegate/storegate-go/internal/engine"
	"github.com/storegate/storegate-go/internal/metrics"
	"github.com/storegate/storegate-go/internal/rules"
	"github.com/storegate/storegate-go/internal/token"
	"github.com/storegate/storegate-go/internal/util"
)

// bypassCookieName is the cookie carrying the bypass token.
const bypassCookieName = "bypassToken"

// AccessController handles the visitor-facing verification endpoints.
type AccessController struct {
	engine *engine.Engine
	tokens *token.Service
	store  rules.Store
	logger *util.Logger
}

// NewAccessController creates a new access controller
func NewAccessController(eng *engine.Engine, tokens *token.Service, store rules.Store, logger *util.Logger) *AccessController {
	return &AccessController{
		engine: eng,
		tokens: tokens,
		store:  store,
		logger: logger,
	}
}

// VerifyIP handles POST /access/verify-ip
func (ac *AccessController) VerifyIP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Shop      string `json:"shop"`
		UserAgent string `json:"userAgent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, util.NewClientInputError("invalid JSON body"))
		return
	}

	userAgent := body.UserAgent
	if userAgent == "" {
		userAgent = r.UserAgent()
	}

	verdict, err := ac.engine.Decide(r.Context(), &engine.Request{
		Shop:       body.Shop,
		UserAgent:  userAgent,
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		var ae *util.AccessError
		if errors.As(err, &ae) && ae.Type == util.UpstreamError {
			ac.logger.Errorf("verify-ip failed: %v (%v)", err, ae.Details)
		}
		respondError(w, err)
		return
	}

	respond(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*engine.Verdict
	}{true, verdict})
}

// VerifyEmail handles POST /access/verify-email
func (ac *AccessController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		Shop  string `json:"shop"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, util.NewClientInputError("invalid JSON body"))
		return
	}
	if body.Email == "" || body.Shop == "" {
		respondError(w, util.NewClientInputError("email and shop are required"))
		return
	}

	rule, err := ac.store.Find(r.Context(), body.Shop, rules.ListAllow, rules.TypeEmail, body.Email)
	if err != nil {
		ac.logger.Errorf("verify-email rule lookup failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}
	if rule == nil {
		respond(w, http.StatusForbidden, map[string]interface{}{
			"success":       false,
			"verified":      false,
			"accessGranted": false,
		})
		return
	}

	bypass, err := ac.tokens.Issue(body.Shop)
	if err != nil {
		ac.logger.Errorf("token issuance failed: %v", err)
		respondError(w, util.NewUpstreamError("token issuance failed", err))
		return
	}
	metrics.IncTokenIssued()
	ac.logger.Infof("shop=%s email verified, bypass token issued", body.Shop)

	http.SetCookie(w, &http.Cookie{
		Name:     bypassCookieName,
		Value:    bypass,
		Path:     "/",
		MaxAge:   int(token.DefaultTTL / time.Second),
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	respond(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"verified":      true,
		"accessGranted": true,
		"bypassToken":   bypass,
		"expiresIn":     int(token.DefaultTTL / time.Second),
	})
}

// VerifyToken handles POST /access/verify-token
func (ac *AccessController) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
		Shop  string `json:"shop"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, util.NewClientInputError("invalid JSON body"))
		return
	}
	if body.Token == "" || body.Shop == "" {
		respondError(w, util.NewClientInputError("token and shop are required"))
		return
	}

	status := ac.tokens.Verify(body.Token, body.Shop)
	if !status.Valid {
		metrics.IncTokenRejected(status.Reason)
		switch status.Reason {
		case token.ReasonExpired:
			respondError(w, util.NewExpiredCredentialError("token expired"))
		case token.ReasonShopMismatch:
			respondError(w, util.NewAuthorizationError("token was issued for a different shop"))
		default:
			respondError(w, util.NewInvalidCredentialError("invalid token"))
		}
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"valid":            true,
		"verified":         true,
		"expiresAt":        status.ExpiresAt.UTC().Format(time.RFC3339),
		"remainingSeconds": int(status.Remaining / time.Second),
	})
}
