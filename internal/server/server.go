package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/themxgroup/launchpad/internal/answer"
	"github.com/themxgroup/launchpad/internal/delivery"
	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/observability"
	"github.com/themxgroup/launchpad/internal/rfp"
)

// Config configures the HTTP server.
type Config struct {
	Addr    string
	Version string
	// WebhookSecret guards the POST endpoints via the X-Webhook-Secret
	// header. Empty disables the check, which is only sensible locally.
	WebhookSecret string
}

// Server serves the knowledge base API.
type Server struct {
	cfg       Config
	provider  llm.Provider
	answerer  *answer.Answerer
	deliverer delivery.Deliverer
	log       zerolog.Logger

	mu     sync.RWMutex
	checks map[string]HealthChecker
	ready  bool

	httpServer *http.Server
}

// New creates a Server. The deliverer may be nil when no delivery channel
// is configured; RFP drafts are then only returned in the response.
func New(cfg Config, provider llm.Provider, answerer *answer.Answerer, deliverer delivery.Deliverer, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{
		cfg:       cfg,
		provider:  provider,
		answerer:  answerer,
		deliverer: deliverer,
		log:       log,
		checks:    make(map[string]HealthChecker),
	}
}

// RegisterCheck adds a dependency health check.
func (s *Server) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler returns the route table. Split out from ListenAndServe so tests
// can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/version", s.handleVersion)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/ask", s.secured(s.handleAsk))
	mux.HandleFunc("/rfp", s.secured(s.handleRFP))
	return mux
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.SetReady(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// secured rejects POST-endpoint requests without the configured secret.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "POST required")
			return
		}
		if s.cfg.WebhookSecret != "" && r.Header.Get("X-Webhook-Secret") != s.cfg.WebhookSecret {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()

	resp := runChecks(ctx, s.cfg.Version, checks)
	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	resp := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ready {
		resp.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer    string         `json:"answer"`
	NoContext bool           `json:"no_context"`
	Sources   []matchPayload `json:"sources,omitempty"`
}

type matchPayload struct {
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, llm.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("answering failed")
		writeError(w, http.StatusBadGateway, "answering failed")
		return
	}

	resp := askResponse{Answer: result.Text, NoContext: result.NoContext}
	for _, m := range result.Matches {
		resp.Sources = append(resp.Sources, matchPayload{Source: m.Source(), Score: m.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

type rfpRequest struct {
	RFPText string `json:"rfp_text"`
	Email   string `json:"email,omitempty"`
}

type rfpResponse struct {
	Questions int    `json:"questions"`
	Answered  int    `json:"answered"`
	Report    string `json:"report"`
	Delivered bool   `json:"delivered"`
}

func (s *Server) handleRFP(w http.ResponseWriter, r *http.Request) {
	var req rfpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	questions, err := rfp.Breakdown(r.Context(), s.provider, req.RFPText)
	if err != nil {
		if errors.Is(err, llm.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("rfp breakdown failed")
		writeError(w, http.StatusBadGateway, "rfp breakdown failed")
		return
	}

	results := rfp.AnswerAll(r.Context(), s.answerer, questions, s.log)
	report := rfp.Report("RFP Response Draft", results)

	answered := 0
	for _, res := range results {
		if res.Err == nil && !res.Answer.NoContext {
			answered++
		}
	}

	resp := rfpResponse{Questions: len(questions), Answered: answered, Report: report}
	if req.Email != "" && s.deliverer != nil {
		msg := delivery.Message{To: req.Email, Subject: "RFP Response Draft", Body: report}
		if err := s.deliverer.Deliver(r.Context(), msg); err != nil {
			// The draft is in the response either way; a failed send is
			// logged, not fatal.
			s.log.Error().Err(err).Str("to", req.Email).Msg("rfp delivery failed")
		} else {
			resp.Delivered = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(msg)})
}
