package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storegate/storegate-go/internal/rules"
	"github.com/storegate/storegate-go/internal/util"
)

// RulesController handles CRUD for one list (allowlist or blocklist).
type RulesController struct {
	store    rules.Store
	listType string
	logger   *util.Logger
}

// NewRulesController creates a controller bound to listType.
func NewRulesController(store rules.Store, listType string, logger *util.Logger) *RulesController {
	return &RulesController{
		store:    store,
		listType: listType,
		logger:   logger,
	}
}

// Get handles GET /access/{listType}?shop=
func (rc *RulesController) Get(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		respondError(w, util.NewClientInputError("shop is required"))
		return
	}

	list, err := rc.store.List(r.Context(), shop, rc.listType)
	if err != nil {
		rc.logger.Errorf("rule list failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rules":   list,
	})
}

// Post handles POST /access/{listType}
func (rc *RulesController) Post(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Shop  string  `json:"shop"`
		Type  string  `json:"type"`
		Value string  `json:"value"`
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, util.NewClientInputError("invalid JSON body"))
		return
	}
	if body.Shop == "" || body.Type == "" || body.Value == "" {
		respondError(w, util.NewClientInputError("shop, type and value are required"))
		return
	}
	if !rules.ValidType(body.Type) {
		respondError(w, util.NewClientInputError("type must be one of: IP Address, Country, Email"))
		return
	}

	rule := &rules.AccessRule{
		Shop:     body.Shop,
		ListType: rc.listType,
		Type:     body.Type,
		Value:    body.Value,
		Notes:    body.Notes,
	}
	if err := rc.store.Create(r.Context(), rule); err != nil {
		if errors.Is(err, rules.ErrDuplicate) {
			respondError(w, util.NewConflictError("an identical rule already exists"))
			return
		}
		rc.logger.Errorf("rule create failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}

	respond(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"rule":    rule,
	})
}

// Put handles PUT /access/{listType}
func (rc *RulesController) Put(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID    string  `json:"id"`
		Shop  string  `json:"shop"`
		Value string  `json:"value"`
		Notes *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, util.NewClientInputError("invalid JSON body"))
		return
	}
	if body.ID == "" || body.Shop == "" {
		respondError(w, util.NewClientInputError("id and shop are required"))
		return
	}

	rule, err := rc.store.Get(r.Context(), body.Shop, rc.listType, body.ID)
	if err != nil {
		rc.logger.Errorf("rule lookup failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}
	if rule == nil {
		respondError(w, util.NewNotFoundError("rule not found"))
		return
	}

	if body.Value != "" {
		rule.Value = body.Value
	}
	if body.Notes != nil {
		rule.Notes = body.Notes
	}
	if err := rc.store.Update(r.Context(), rule); err != nil {
		if errors.Is(err, rules.ErrDuplicate) {
			respondError(w, util.NewConflictError("an identical rule already exists"))
			return
		}
		rc.logger.Errorf("rule update failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rule":    rule,
	})
}

// Delete handles DELETE /access/{listType}?id=&shop=
func (rc *RulesController) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	shop := r.URL.Query().Get("shop")
	if id == "" || shop == "" {
		respondError(w, util.NewClientInputError("id and shop are required"))
		return
	}

	if err := rc.store.Delete(r.Context(), shop, rc.listType, id); err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			respondError(w, util.NewNotFoundError("rule not found"))
			return
		}
		rc.logger.Errorf("rule delete failed: %v", err)
		respondError(w, util.NewUpstreamError("rule store unavailable", err))
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": id,
	})
}
