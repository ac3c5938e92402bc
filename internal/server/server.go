package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/iwvelando/batch-cost/internal/cache"
	"github.com/iwvelando/batch-cost/internal/config"
	"github.com/iwvelando/batch-cost/internal/costing"
	"github.com/iwvelando/batch-cost/internal/optimizer"
	"github.com/iwvelando/batch-cost/pkg/constants"
	"github.com/iwvelando/batch-cost/pkg/optimization"
	"github.com/iwvelando/batch-cost/pkg/output"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// RequestIDHeader carries the id assigned to every API call.
const RequestIDHeader = "X-Request-ID"

type contextKey int

const requestIDKey contextKey = iota

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string

	engine *costing.Engine
	cache  *cache.Cache
	solver *optimizer.Solver
}

// NewHandler constructs the HTTP handler that serves the pricing API. A nil
// cfg uses DefaultConfig.
func NewHandler(logger *zap.Logger, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	engine := costing.NewEngine(logger, cfg.Engine.ToEngineConfig())
	solver, err := optimizer.NewSolver(logger, engine)
	if err != nil {
		panic(fmt.Sprintf("failed to prepare markup solver: %v", err))
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		engine:        engine,
		cache:         cache.New(engine, cfg.CacheDuration(), logger),
		solver:        solver,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Route("/api", func(r chi.Router) {
		// Single request priced from a JSON body
		r.Post("/calculate", h.handleCalculate)

		// Batch file upload, every active batch priced
		r.Post("/calculate/upload", h.handleUpload)

		// Markup search for one request
		r.Post("/optimize", h.handleOptimize)

		r.Get("/currencies", h.handleCurrencies)
		r.Get("/cache", h.handleCacheStats)
		r.Delete("/cache", h.handleCacheClear)
		r.Get("/version", h.handleVersion)
	})

	if len(cfg.AllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         int((12 * time.Hour).Seconds()),
	}).Handler(r)
}

// requestLogger assigns each call an id, echoes it in the response headers
// and logs the outcome. A well-formed client-supplied id is kept.
func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

		h.logger.Info("request handled",
			zap.String("op", "server.request"),
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type calculationResponse struct {
	ID       string                  `json:"id"`
	Result   costing.BatchCostResult `json:"result"`
	Duration string                  `json:"duration"`
}

type uploadResponse struct {
	ID       string         `json:"id"`
	Batches  []batchOutcome `json:"batches"`
	CSV      string         `json:"csv"`
	Warnings []string       `json:"warnings,omitempty"`
	Duration string         `json:"duration"`
}

type batchOutcome struct {
	Name         string                   `json:"name"`
	Result       *costing.BatchCostResult `json:"result,omitempty"`
	Optimization *optimization.Summary    `json:"optimization,omitempty"`
	Error        *errorBody               `json:"error,omitempty"`
}

type optimizeRequest struct {
	Request   *costing.BatchRequest  `json:"request"`
	Optimizer config.OptimizerConfig `json:"optimizer"`
}

type optimizeResponse struct {
	ID           string                  `json:"id"`
	Optimization optimization.Summary    `json:"optimization"`
	Result       costing.BatchCostResult `json:"result"`
	Duration     string                  `json:"duration"`
}

type currencyInterval struct {
	Code     string `json:"code"`
	Interval string `json:"interval"`
}

type errorBody struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	ID    string    `json:"id"`
	Error errorBody `json:"error"`
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	start := time.Now()

	var req costing.BatchRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}

	result, err := h.cache.Calculate(&req)
	if err != nil {
		h.respondFailure(w, r, err, op)
		return
	}

	elapsed := time.Since(start)
	h.logger.Debug("batch calculated",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.String("batch", result.Name),
		zap.Float64("suggestedPrice", result.SuggestedPrice),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, calculationResponse{
		ID:       requestID(r),
		Result:   result,
		Duration: elapsed.String(),
	})
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpload"
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				errorBody{Message: fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize)}, op)
			return
		}
		h.respondError(w, r, http.StatusBadRequest, errorBody{Message: fmt.Sprintf("failed to parse upload: %v", err)}, op)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, errorBody{Message: "missing batch file"}, op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, r, http.StatusInternalServerError, errorBody{Message: fmt.Sprintf("failed to read batch file: %v", err)}, op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(&buf, config.ConfigType(header.Filename))
	if err != nil {
		h.respondError(w, r, http.StatusBadRequest, errorBody{Message: err.Error()}, op)
		return
	}
	warnings := cfg.ValidateConfiguration()

	calc, solver := h.calculatorsFor(cfg.Engine)
	optimize := parseBoolParam(r.URL.Query().Get("optimize"))

	var (
		outcomes []batchOutcome
		reports  []output.Report
	)
	for _, batch := range cfg.ActiveBatches() {
		req := batch.ToRequest(cfg.Common)
		outcome := batchOutcome{Name: req.Name}

		if optimize && batch.Optimizer != nil {
			solution, err := solver.Solve(req, *batch.Optimizer)
			if err != nil {
				_, body := classify(err)
				outcome.Error = &body
				outcomes = append(outcomes, outcome)
				continue
			}
			outcome.Result = &solution.Result
			outcome.Optimization = &solution.Summary
		} else {
			result, err := calc.Calculate(req)
			if err != nil {
				_, body := classify(err)
				outcome.Error = &body
				outcomes = append(outcomes, outcome)
				continue
			}
			outcome.Result = &result
		}

		outcomes = append(outcomes, outcome)
		reports = append(reports, output.Report{
			Currency:     req.Currency,
			Result:       *outcome.Result,
			Optimization: outcome.Optimization,
		})
	}

	var csvBuf bytes.Buffer
	if err := output.CsvFormat(&csvBuf, reports); err != nil {
		h.logger.Warn("failed to render CSV",
			zap.String("op", op),
			zap.Error(err),
		)
	}

	elapsed := time.Since(start)
	h.logger.Info("batch file priced",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int("batches", len(outcomes)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	if outcomes == nil {
		outcomes = []batchOutcome{}
	}
	h.writeJSON(w, http.StatusOK, uploadResponse{
		ID:       requestID(r),
		Batches:  outcomes,
		CSV:      csvBuf.String(),
		Warnings: warnings,
		Duration: elapsed.String(),
	})
}

// calculatorsFor returns the shared cached engine unless the uploaded file
// overrides engine constants, in which case a dedicated engine is built.
func (h *handler) calculatorsFor(section config.EngineSection) (cache.Calculator, *optimizer.Solver) {
	if section.IsDefault() {
		return h.cache, h.solver
	}
	engine := costing.NewEngine(h.logger, section.ToEngineConfig())
	solver, err := optimizer.NewSolver(h.logger, engine)
	if err != nil {
		return engine, h.solver
	}
	return engine, solver
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptimize"
	start := time.Now()

	var payload optimizeRequest
	if !h.decodeJSON(w, r, &payload, op) {
		return
	}
	if payload.Request == nil {
		h.respondError(w, r, http.StatusBadRequest, errorBody{Message: "missing request", Field: "request"}, op)
		return
	}

	solution, err := h.solver.Solve(payload.Request, payload.Optimizer)
	if err != nil {
		h.respondFailure(w, r, err, op)
		return
	}

	h.writeJSON(w, http.StatusOK, optimizeResponse{
		ID:           requestID(r),
		Optimization: solution.Summary,
		Result:       solution.Result,
		Duration:     time.Since(start).String(),
	})
}

func (h *handler) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	table := h.engine.Config().Currencies
	codes := table.Codes()
	intervals := make([]currencyInterval, 0, len(codes))
	for _, code := range codes {
		intervals = append(intervals, currencyInterval{Code: code, Interval: table[code]})
	}
	h.writeJSON(w, http.StatusOK, intervals)
}

func (h *handler) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	purged := h.cache.Purge()
	if purged > 0 {
		h.logger.Debug("expired cache entries purged",
			zap.String("op", "server.handleCacheStats"),
			zap.Int("purged", purged),
		)
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *handler) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decodeJSON reads a size-limited JSON body into dst. It writes the error
// response itself and reports whether decoding succeeded.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, r, http.StatusRequestEntityTooLarge,
				errorBody{Message: fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize)}, op)
			return false
		}
		h.respondError(w, r, http.StatusBadRequest, errorBody{Message: fmt.Sprintf("failed to decode request: %v", err)}, op)
		return false
	}
	return true
}

// classify maps an engine or solver error to a status and response body.
// Rejected requests are 400, valid requests that cannot be priced are 422.
func classify(err error) (int, errorBody) {
	var validationErr *costing.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, errorBody{
			Message: err.Error(),
			Kind:    validationErr.Kind.String(),
			Field:   validationErr.Field,
		}
	}
	var computationErr *costing.ComputationError
	if errors.As(err, &computationErr) {
		return http.StatusUnprocessableEntity, errorBody{
			Message: err.Error(),
			Kind:    computationErr.Kind.String(),
		}
	}
	return http.StatusBadRequest, errorBody{Message: err.Error()}
}

func (h *handler) respondFailure(w http.ResponseWriter, r *http.Request, err error, op string) {
	status, body := classify(err)
	h.respondError(w, r, status, body, op)
}

func (h *handler) respondError(w http.ResponseWriter, r *http.Request, status int, body errorBody, op string) {
	h.logger.Warn("request failed",
		zap.String("op", op),
		zap.String("requestId", requestID(r)),
		zap.Int("status", status),
		zap.String("kind", body.Kind),
		zap.String("error", body.Message),
	)

	h.writeJSON(w, status, errorResponse{ID: requestID(r), Error: body})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func parseBoolParam(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && parsed
}
