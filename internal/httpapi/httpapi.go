// Package httpapi implements the status/push HTTP interface: status
// JSON, config, and the push subscribe/suppress surface, plus a
// supplemented live-status WebSocket stream and an operator
// restart-failed hook.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arguslabs/argus-go/internal/pushmanager"
	"github.com/arguslabs/argus-go/internal/registry"
)

// Config carries the serving parameters for a Server.
type Config struct {
	Name        string
	BaseURL     string // default "/argus"
	CacheTTLSec int    // 0 disables caching
}

// Server wires the registry and push manager behind the HTTP routes.
type Server struct {
	cfg  Config
	reg  *registry.Registry
	push *pushmanager.Manager
	log  *zap.SugaredLogger

	httpServer *http.Server

	cacheMu   sync.Mutex
	cacheBody []byte
	cacheAt   time.Time
}

// New builds a Server listening on addr, serving routes under
// cfg.BaseURL (default "/argus").
func New(addr string, cfg Config, reg *registry.Registry, push *pushmanager.Manager, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/argus"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	s := &Server{cfg: cfg, reg: reg, push: push, log: log}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run blocks serving HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) route(path string) string {
	return s.cfg.BaseURL + path
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc(s.route("/status"), s.withCORS(s.handleStatus))
	mux.HandleFunc(s.route("/config.json"), s.withCORS(s.handleConfig))
	mux.HandleFunc(s.route("/push/vapid_public_key"), s.withCORS(s.handleVapidPublicKey))
	mux.HandleFunc(s.route("/push/subscribe"), s.withCORS(s.handleSubscribe))
	mux.HandleFunc(s.route("/push/unsubscribe"), s.withCORS(s.handleUnsubscribe))
	mux.HandleFunc(s.route("/push/suppress"), s.withCORS(s.handleSuppress))
	mux.HandleFunc(s.route("/push/unsuppress"), s.withCORS(s.handleUnsuppress))
	mux.HandleFunc(s.route("/push/suppressions"), s.withCORS(s.handleSuppressions))
	mux.HandleFunc(s.route("/ws"), s.handleStatusWS) // upgraded connections set their own headers
	mux.HandleFunc(s.route("/admin/restart_failed"), s.withCORS(s.handleRestartFailed))
}

func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusBody())
}

// statusBody returns the cached status JSON, regenerating it once
// cache_ttl_sec has elapsed since the last regeneration. cache_ttl_sec ==
// 0 disables caching entirely.
func (s *Server) statusBody() json.RawMessage {
	if s.cfg.CacheTTLSec <= 0 {
		return s.render()
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheBody != nil && time.Since(s.cacheAt) < time.Duration(s.cfg.CacheTTLSec)*time.Second {
		return s.cacheBody
	}
	body := s.render()
	s.cacheBody = body
	s.cacheAt = time.Now()
	return body
}

func (s *Server) render() json.RawMessage {
	data, err := json.Marshal(buildStatus(s.cfg.Name, s.reg))
	if err != nil {
		s.log.Errorw("marshal status failed", "error", err)
		return json.RawMessage(`{}`)
	}
	return data
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"base_url":    s.cfg.BaseURL,
		"name":        s.cfg.Name,
		"push_enabled": s.push != nil && s.push.Enabled(),
	})
}

func (s *Server) handleVapidPublicKey(w http.ResponseWriter, _ *http.Request) {
	if s.push == nil || !s.push.Enabled() {
		http.Error(w, "push disabled", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.push.VapidPublicKey()))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if s.push == nil || !s.push.Enabled() {
		http.Error(w, "push disabled", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var sub pushmanager.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil || sub.Endpoint == "" {
		http.Error(w, "invalid subscription", http.StatusBadRequest)
		return
	}
	if err := s.push.AddSubscription(sub); err != nil {
		s.log.Errorw("persist subscription failed", "error", err)
		http.Error(w, "failed to store subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Endpoint == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	removed, err := s.push.RemoveSubscription(body.Endpoint)
	if err != nil {
		s.log.Errorw("persist unsubscribe failed", "error", err)
		http.Error(w, "failed to remove subscription", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "subscription not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSuppress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		TestIDs []string `json:"test_ids"`
		Until   string   `json:"until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	until, err := time.Parse(statusTimeLayout, body.Until)
	if err != nil {
		http.Error(w, "invalid until timestamp", http.StatusBadRequest)
		return
	}
	for _, id := range body.TestIDs {
		if err := s.push.AddSuppression(id, until); err != nil {
			s.log.Errorw("persist suppression failed", "error", err)
			http.Error(w, "failed to store suppression", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUnsuppress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		TestIDs []string `json:"test_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	for _, id := range body.TestIDs {
		if err := s.push.RemoveSuppression(id); err != nil {
			s.log.Errorw("persist unsuppress failed", "error", err)
			http.Error(w, "failed to remove suppression", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSuppressions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.push.ListSuppressions())
}

// handleRestartFailed exposes the registry's restart_failed operator
// hook as a POST endpoint.
func (s *Server) handleRestartFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := s.reg.RestartFailed()
	writeJSON(w, http.StatusOK, map[string]any{"restarted": n})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
