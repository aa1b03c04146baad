// Package httpapi serves the guardrail engine over HTTP.
//
// Verdicts are returned verbatim: 200 for an admitted operation, 422 for a
// rejected one. Malformed requests get 400 and lookup failures 503. Every
// response body carries api_version.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/roach88/guardrail/internal/guardrail"
	"github.com/roach88/guardrail/internal/ir"
	"github.com/roach88/guardrail/internal/logger"
	"github.com/roach88/guardrail/internal/taxonomy"
)

// VersionHeader lets a client declare the contract version it speaks.
const VersionHeader = "Guardrail-Api-Version"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Error codes used in error bodies. Verdict violations use ir codes.
const (
	ErrCodeMalformed = "MALFORMED_OPERATION"
	ErrCodeInternal  = "INTERNAL"
)

// Recorder persists verdicts. *store.Store implements it.
type Recorder interface {
	RecordVerdict(ctx context.Context, source string, v ir.Verdict) (int64, error)
}

// Options configures the router.
type Options struct {
	// Recorder, when set, receives every verdict under the source "http".
	Recorder Recorder
}

// Handler holds the engine behind the routes.
type Handler struct {
	engine   *guardrail.Engine
	recorder Recorder
}

// NewRouter builds the HTTP API around an engine.
func NewRouter(engine *guardrail.Engine, log zerolog.Logger, opts Options) http.Handler {
	h := &Handler{engine: engine, recorder: opts.Recorder}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Requests(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api/v1/guardrails", func(api chi.Router) {
		api.Use(checkVersion)
		api.Post("/validate", h.handleValidate)
		api.Post("/codes", h.handleCodes)
	})

	return r
}

// checkVersion rejects clients that declare an incompatible contract.
func checkVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ir.CheckAPIVersion(r.Header.Get(VersionHeader)); err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeMalformed, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	APIVersion    string `json:"api_version"`
	EngineVersion string `json:"engine_version"`
	Status        string `json:"status"`
	Policy        string `json:"policy"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		APIVersion:    ir.APIVersion,
		EngineVersion: ir.EngineVersion,
		Status:        "ok",
		Policy:        h.engine.Policy().Source,
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var env ir.OpEnvelope
	if err := decodeBody(w, r, &env); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformed, err)
		return
	}

	op, err := env.Op()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformed, err)
		return
	}

	verdict, err := h.engine.Validate(r.Context(), op)
	if err != nil {
		if fault, ok := guardrail.AsFault(err); ok {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("lookup unavailable")
			writeError(w, http.StatusServiceUnavailable, string(fault.Code), err)
			return
		}
		if errors.Is(err, guardrail.ErrMalformedOperation) {
			writeError(w, http.StatusBadRequest, ErrCodeMalformed, err)
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err)
		return
	}

	if h.recorder != nil {
		if _, err := h.recorder.RecordVerdict(r.Context(), "http", verdict); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("digest", verdict.Digest).Msg("verdict not recorded")
		}
	}

	writeJSON(w, verdictStatus(verdict.Admitted), verdict)
}

type codesRequest struct {
	Codes []string `json:"codes"`
}

type codesResponse struct {
	APIVersion string             `json:"api_version"`
	Valid      bool               `json:"valid"`
	Results    []taxonomy.Checked `json:"results"`
}

func (h *Handler) handleCodes(w http.ResponseWriter, r *http.Request) {
	var req codesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformed, err)
		return
	}
	if len(req.Codes) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeMalformed, fmt.Errorf("%w: codes list is required", ir.ErrMalformedOperation))
		return
	}

	resp := codesResponse{APIVersion: ir.APIVersion, Valid: true, Results: make([]taxonomy.Checked, 0, len(req.Codes))}
	for _, code := range req.Codes {
		checked := h.engine.Codes().Check(code)
		resp.Valid = resp.Valid && checked.Valid
		resp.Results = append(resp.Results, checked)
	}

	writeJSON(w, verdictStatus(resp.Valid), resp)
}

func verdictStatus(admitted bool) int {
	if admitted {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ir.ErrMalformedOperation, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", ir.ErrMalformedOperation)
	}
	return ir.DecodeJSONStrict(body, v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	APIVersion string    `json:"api_version"`
	Error      errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{
		APIVersion: ir.APIVersion,
		Error:      errorBody{Code: code, Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
