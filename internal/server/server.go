package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"ctastats/internal/model"
	"ctastats/internal/pipeline"
	"ctastats/internal/render"
	"ctastats/internal/sources"
	"ctastats/internal/store"
	"ctastats/internal/summary"
)

const shutdownTimeout = 10 * time.Second

type Config struct {
	Addr           string
	AllowedOrigins []string
	Chart          render.ChartOptions
}

// Server exposes the aggregated views over HTTP. Every request loads a
// fresh table through the loader.
type Server struct {
	loader pipeline.Loader
	config Config
	logger *zap.Logger
}

func New(loader pipeline.Loader, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{loader: loader, config: cfg, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/api/countries", s.countries)
	r.Get("/api/matrix", s.matrix)
	r.Get("/api/summary", s.summary)
	r.Get("/charts/{page:[0-9]+}.png", s.chart)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) countries(w http.ResponseWriter, r *http.Request) {
	table, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": table.Countries()})
}

func (s *Server) matrix(w http.ResponseWriter, r *http.Request) {
	result, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	table, ok := s.load(w, r)
	if !ok {
		return
	}
	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country != "" && !table.HasCountry(country) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: unknown country %q", pipeline.ErrInvalidParams, country))
		return
	}
	writeJSON(w, http.StatusOK, summary.Compute(table, country))
}

func (s *Server) chart(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, ok := s.aggregate(w, r)
	if !ok {
		return
	}
	if page < 1 || page > len(result.Pages) {
		writeError(w, http.StatusNotFound, fmt.Errorf("page %d not found (%d pages)", page, len(result.Pages)))
		return
	}

	opts := s.config.Chart
	opts.Labels = model.StatusLabels
	opts.Title = render.DefaultTitle(result.Matrix.Dimension(), result.Params.Country)
	opts.ValueLabels = result.Params.GroupBy == pipeline.GroupByYear

	var buf bytes.Buffer
	if err := render.Chart(&buf, result.Pages[page-1], opts); err != nil {
		s.logger.Error("render chart", zap.Int("page", page), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (model.Table, bool) {
	table, _, err := s.loader.Load(r.Context())
	if err != nil {
		s.logger.Warn("load table", zap.Error(err))
		writeError(w, statusFor(err), err)
		return model.Table{}, false
	}
	return table, true
}

func (s *Server) aggregate(w http.ResponseWriter, r *http.Request) (pipeline.Result, bool) {
	params, err := paramsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return pipeline.Result{}, false
	}
	table, ok := s.load(w, r)
	if !ok {
		return pipeline.Result{}, false
	}
	result, err := pipeline.Aggregate(table, params)
	if err != nil {
		writeError(w, statusFor(err), err)
		return pipeline.Result{}, false
	}
	return result, true
}

func paramsFromQuery(r *http.Request) (pipeline.Params, error) {
	query := r.URL.Query()
	params := pipeline.Params{
		GroupBy: pipeline.GroupBy(query.Get("group_by")),
		Country: query.Get("country"),
	}
	if raw := strings.TrimSpace(query.Get("rows_per_page")); raw != "" {
		rows, err := strconv.Atoi(raw)
		if err != nil {
			return pipeline.Params{}, fmt.Errorf("%w: rows_per_page %q is not a number", pipeline.ErrInvalidParams, raw)
		}
		if rows < 1 {
			return pipeline.Params{}, fmt.Errorf("%w: rows_per_page must be at least 1", pipeline.ErrInvalidParams)
		}
		params.RowsPerPage = rows
	}
	return params, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, sources.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNoSnapshot):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(value)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
