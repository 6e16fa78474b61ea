package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storegate/storegate-go/internal/util"
)

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError maps an error to its status and a JSON body. Upstream
// failures keep their detail out of the response; the caller logs it.
func respondError(w http.ResponseWriter, err error) {
	status := util.StatusCode(err)
	body := map[string]interface{}{
		"success": false,
	}

	var ae *util.AccessError
	if errors.As(err, &ae) && ae.Type != util.UpstreamError {
		body["error"] = ae.Message
		if ae.Type == util.ExpiredCredentialError {
			body["expired"] = true
		}
	} else {
		body["error"] = "internal server error"
	}

	respond(w, status, body)
}
