// Package server exposes form sessions over HTTP and WebSocket. A client
// creates a form with POST /forms, reads it with GET /forms/{id} and edits
// it live through GET /forms/{id}/ws.
package server

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gojson "github.com/goccy/go-json"

	"github.com/goliatone/go-jsonform/pkg/form"
	"github.com/goliatone/go-jsonform/pkg/jsonschema"
)

// Handler serves the form session routes.
type Handler struct {
	sessions *Manager
	cfg      Config
	logger   *slog.Logger
}

// NewHandler creates a handler over sessions.
func NewHandler(sessions *Manager, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{sessions: sessions, cfg: cfg, logger: logger}
}

// Routes returns the router with every route registered.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", h.createForm)
		r.Get("/{id}", h.getForm)
		r.Delete("/{id}", h.deleteForm)
		r.Get("/{id}/ws", h.serveWS)
	})
	return r
}

func (h *Handler) createForm(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultConfig().MaxBodyBytes
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", err.Error())
		return
	}
	payload, err := jsonschema.DecodeSchema(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	in, err := form.ResolveInputs(payload)
	if err != nil {
		code := "INVALID_INPUTS"
		if errors.Is(err, form.ErrNoSchema) {
			code = "NO_SCHEMA"
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}
	s, err := h.sessions.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_FORM", err.Error())
		return
	}
	h.logger.Debug("server: session created", "session", s.ID, "request", middleware.GetReqID(r.Context()))
	h.writeView(w, http.StatusCreated, s)
}

func (h *Handler) getForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, http.StatusOK, s)
}

func (h *Handler) deleteForm(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown form session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s := h.sessions.Get(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown form session")
		return nil, false
	}
	return s, true
}

// writeView encodes the session while holding its lock.
func (h *Handler) writeView(w http.ResponseWriter, status int, s *Session) {
	var (
		body []byte
		err  error
	)
	s.Do(func(f *form.Form) {
		body, err = gojson.Marshal(viewOf(s.ID, f))
	})
	if err != nil {
		h.logger.Error("server: encode form", "session", s.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "ENCODE", "cannot encode form")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(body))
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorData{Code: code, Message: message})
}
