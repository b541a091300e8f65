// Package api serves scout invocations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ppiankov/marketscout/internal/logging"
	"github.com/ppiankov/marketscout/internal/metrics"
	"github.com/ppiankov/marketscout/internal/model"
	"github.com/ppiankov/marketscout/internal/scout"
	"github.com/ppiankov/marketscout/internal/worker"
)

const maxRequestBytes = 64 << 10

// Scouter runs scout invocations
type Scouter interface {
	Scout(ctx context.Context, req scout.Request, onProgress worker.ProgressFunc) *model.Report
	Simulated() bool
}

// Server is the HTTP surface of marketscout
type Server struct {
	scouter  Scouter
	metrics  *metrics.Collector
	cfg      model.ServerConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewServer creates a server; collector may be nil
func NewServer(scouter Scouter, collector *metrics.Collector, cfg model.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		scouter:  scouter,
		metrics:  collector,
		cfg:      cfg,
		validate: newValidator(),
		logger:   logging.OrNop(logger),
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scout", s.handleScout)
		r.Get("/scout/stream", s.handleStream)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server starting", zap.String("addr", s.cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type scoutRequest struct {
	Query   string `json:"query" validate:"required"`
	Webhook string `json:"webhook" validate:"omitempty,url"`
	Save    bool   `json:"save"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

type progressEvent struct {
	Stage int    `json:"stage"`
	Name  string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "live"
	if s.scouter.Simulated() {
		mode = "simulated"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "mode": mode})
}

func (s *Server) handleScout(w http.ResponseWriter, r *http.Request) {
	var req scoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)

	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse(err))
		return
	}

	report := s.scouter.Scout(r.Context(), scout.Request{
		Query:   req.Query,
		Webhook: req.Webhook,
		Save:    req.Save,
	}, nil)

	writeJSON(w, http.StatusOK, report)
}

// handleStream runs a scout and reports the overall stage as server-sent
// events, ending with a single result event
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req := scoutRequest{
		Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		Webhook: strings.TrimSpace(r.URL.Query().Get("webhook")),
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var mu sync.Mutex
	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("encode event", zap.String("event", event), zap.Error(err))
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	report := s.scouter.Scout(r.Context(), scout.Request{Query: req.Query, Webhook: req.Webhook},
		func(stage model.Stage) {
			send("progress", progressEvent{Stage: int(stage), Name: stage.String()})
		})

	send("result", report)
}

func validationResponse(err error) errorResponse {
	resp := errorResponse{Error: "request validation failed"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			resp.Details = append(resp.Details, fieldError{Field: e.Field(), Message: validationMessage(e)})
		}
	}
	return resp
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "url":
		return "Must be a valid URL"
	default:
		return "Invalid value"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
