package controllers

import (
	"net/http"
	"strconv"

	"github.com/storegate/storegate-go/internal/util"
)

// LogsController serves the in-memory log tail.
type LogsController struct {
	logger *util.Logger
}

// NewLogsController creates a new logs controller
func NewLogsController(logger *util.Logger) *LogsController {
	return &LogsController{logger: logger}
}

// Get handles GET /logs
func (lc *LogsController) Get(w http.ResponseWriter, r *http.Request) {
	startIndex := 0
	endIndex := -1 // all

	if s := r.URL.Query().Get("startIndex"); s != "" {
		if val, err := strconv.Atoi(s); err == nil {
			startIndex = val
		}
	}
	if s := r.URL.Query().Get("endIndex"); s != "" {
		if val, err := strconv.Atoi(s); err == nil {
			endIndex = val
		}
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"logs": lc.logger.GetEntries(startIndex, endIndex),
	})
}
