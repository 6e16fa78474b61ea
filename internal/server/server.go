package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/storegate/storegate-go/internal/config"
	"github.com/storegate/storegate-go/internal/controllers"
	"github.com/storegate/storegate-go/internal/engine"
	"github.com/storegate/storegate-go/internal/geo"
	"github.com/storegate/storegate-go/internal/metrics"
	"github.com/storegate/storegate-go/internal/rules"
	"github.com/storegate/storegate-go/internal/token"
	"github.com/storegate/storegate-go/internal/util"
)

// Server is the storegate HTTP server.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	logger     *util.Logger
	store      rules.Store
	resolver   geo.Resolver
}

// New creates a server from configuration. The signing secret is
// mandatory; datadir selects badger persistence over the in-memory
// store; geoDatabase selects the local MMDB resolver over the HTTP one.
func New(cfg *config.Config) (*Server, error) {
	logger := util.NewLogger(cfg.LogLevel)

	tokens, err := token.NewService(cfg.SigningSecret)
	if err != nil {
		return nil, err
	}

	var store rules.Store
	if cfg.Datadir != "" {
		store, err = rules.NewBadgerStore(cfg.Datadir)
		if err != nil {
			return nil, fmt.Errorf("failed to open rule store: %w", err)
		}
	} else {
		logger.Warn("no datadir configured, rules will not survive a restart")
		store = rules.NewMemoryStore()
	}

	var resolver geo.Resolver
	if cfg.GeoDatabase != "" {
		resolver, err = geo.OpenMMDB(cfg.GeoDatabase)
		if err != nil {
			store.Close()
			return nil, err
		}
	} else {
		resolver = geo.NewHTTPResolver(cfg.GeoEndpoint)
	}

	metrics.Init()

	s := &Server{
		config:   cfg,
		logger:   logger,
		store:    store,
		resolver: resolver,
	}

	router := s.createRouter(tokens)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

// createRouter creates the HTTP router
func (s *Server) createRouter(tokens *token.Service) http.Handler {
	router := mux.NewRouter()

	eng := engine.New(s.store, s.resolver, s.logger)
	access := controllers.NewAccessController(eng, tokens, s.store, s.logger)
	allowlist := controllers.NewRulesController(s.store, rules.ListAllow, s.logger)
	blocklist := controllers.NewRulesController(s.store, rules.ListBlock, s.logger)
	logs := controllers.NewLogsController(s.logger)

	router.HandleFunc("/", s.handleHome).Methods("GET")
	router.HandleFunc("/access/verify-ip", access.VerifyIP).Methods("POST")
	router.HandleFunc("/access/verify-email", access.VerifyEmail).Methods("POST")
	router.HandleFunc("/access/verify-token", access.VerifyToken).Methods("POST")

	for path, rc := range map[string]*controllers.RulesController{
		"/access/allowlist": allowlist,
		"/access/blocklist": blocklist,
	} {
		router.HandleFunc(path, rc.Get).Methods("GET")
		router.HandleFunc(path, rc.Post).Methods("POST")
		router.HandleFunc(path, rc.Put).Methods("PUT")
		router.HandleFunc(path, rc.Delete).Methods("DELETE")
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/logs", logs.Get).Methods("GET")
	router.HandleFunc("/config", s.handleConfig).Methods("GET")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "method not allowed",
		})
	})

	// Storefront scripts call these endpoints from arbitrary shop
	// domains, so CORS stays open unless configured otherwise.
	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: len(s.config.CORSOrigins) > 0,
	})

	return corsHandler.Handler(router)
}

// handleHome handles the home page
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"_links": map[string]interface{}{
			"verify-ip":    map[string]string{"href": "/access/verify-ip"},
			"verify-email": map[string]string{"href": "/access/verify-email"},
			"verify-token": map[string]string{"href": "/access/verify-token"},
			"allowlist":    map[string]string{"href": "/access/allowlist"},
			"blocklist":    map[string]string{"href": "/access/blocklist"},
			"config":       map[string]string{"href": "/config"},
			"metrics":      map[string]string{"href": "/metrics"},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleConfig handles the config endpoint
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s.config.Sanitized())
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Infof("storegate listening on http://%s:%d/", s.config.Host, s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully and releases the rule store and the
// geo database when one is open.
func (s *Server) Stop() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)

	if closeErr := s.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if closer, ok := s.resolver.(interface{ Close() error }); ok {
		if closeErr := closer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
