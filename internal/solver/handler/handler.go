// Package handler binds the solver service to HTTP.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/diagnostics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/solver"
	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/logger"
)

// Solver is the part of solver.Service the handler uses.
type Solver interface {
	Decompose(ctx context.Context, req solver.Request) (*diagnostics.Response, error)
	Dictionary() solver.DictionaryInfo
	Reload(ctx context.Context) (solver.DictionaryInfo, error)
}

// AnagramRequest is the JSON body of POST /api/anagram. TextBase64 carries
// raw bytes that are not valid UTF-8 and wins over Text when both are set.
type AnagramRequest struct {
	Text       string `json:"text"`
	TextBase64 string `json:"text_base64,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	MaxWords   int    `json:"max_words,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type Handler struct {
	solver Solver
	admin  func(http.Handler) http.Handler
	logger *slog.Logger
}

type Option func(*Handler)

// WithAdminGuard wraps operator routes (dictionary reload) in mw.
func WithAdminGuard(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.admin = mw }
}

func New(s Solver, opts ...Option) *Handler {
	h := &Handler{
		solver: s,
		logger: logger.WithComponent("anagram-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/anagram", h.Anagram)
	mux.HandleFunc("POST /api/v1/anagram", h.Anagram)
	mux.HandleFunc("GET /api/v1/dictionary/stats", h.DictionaryStats)
	var reload http.Handler = http.HandlerFunc(h.ReloadDictionary)
	if h.admin != nil {
		reload = h.admin(reload)
	}
	mux.Handle("POST /api/v1/dictionary/reload", reload)
}

func (h *Handler) Anagram(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, err := decodeRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.solver.Decompose(r.Context(), req)
	if err != nil {
		log.Warn("decompose failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "solver busy, try again"))
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DictionaryStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.solver.Dictionary())
}

func (h *Handler) ReloadDictionary(w http.ResponseWriter, r *http.Request) {
	info, err := h.solver.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("dictionary reload failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func decodeRequest(r *http.Request) (solver.Request, error) {
	var body AnagramRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		return solver.Request{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "malformed JSON body: %v", err)
	}
	if body.MaxWords < 0 || body.MaxResults < 0 {
		return solver.Request{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "max_words and max_results must not be negative")
	}

	text := []byte(body.Text)
	if body.TextBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(body.TextBase64)
		if err != nil {
			return solver.Request{}, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "text_base64: %v", err)
		}
		text = raw
	}
	return solver.Request{
		Text:       text,
		Encoding:   body.Encoding,
		MaxWords:   body.MaxWords,
		MaxResults: body.MaxResults,
	}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": msg})
}
