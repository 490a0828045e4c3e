package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wellness/pkg/reminders"
)

// Reminder routes are served under both prefixes: /api/reminders is what the
// browser client calls.
var routePrefixes = []string{"/api/reminders", "/reminders"}

type server struct {
	service *reminders.Service
	log     *slog.Logger
}

func newRouter(svc *reminders.Service, log *slog.Logger) http.Handler {
	s := &server{service: svc, log: log}

	// Create the router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.healthz)
	router.Handle("/metrics", promhttp.Handler())
	for _, prefix := range routePrefixes {
		router.Route(prefix, s.reminderRoutes)
	}
	return router
}

func (s *server) reminderRoutes(r chi.Router) {
	// GET /user/{userId}?status=&category= - List a user's reminders
	r.Get("/user/{userId}", s.listByOwner)
	// GET /upcoming/{userId} - Today's remaining active reminders
	r.Get("/upcoming/{userId}", s.listUpcoming)
	// POST / - Create a reminder
	r.Post("/", s.create)
	r.Get("/{id}", s.get)
	// PUT /{id} - Partial update
	r.Put("/{id}", s.update)
	r.Delete("/{id}", s.delete)
	// PATCH /{id}/complete - Apply the completion transition
	r.Patch("/{id}/complete", s.complete)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.service.Backend(),
	})
}

func (s *server) listByOwner(w http.ResponseWriter, r *http.Request) {
	var f reminders.Filter
	// Any status other than "active" selects the inactive ones.
	if status := r.URL.Query().Get("status"); status != "" {
		f.Active = reminders.Bool(status == "active")
	}
	f.Category = r.URL.Query().Get("category")

	list, err := s.service.ListByOwner(r.Context(), chi.URLParam(r, "userId"), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) listUpcoming(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListUpcoming(r.Context(), chi.URLParam(r, "userId"), s.service.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	var in reminders.Input
	if !s.decode(w, r, &in) {
		return
	}
	rem, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	rem, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *server) update(w http.ResponseWriter, r *http.Request) {
	var p reminders.Patch
	if !s.decode(w, r, &p) {
		return
	}
	rem, err := s.service.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Reminder deleted successfully"})
}

func (s *server) complete(w http.ResponseWriter, r *http.Request) {
	rem, err := s.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rem)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	s.log.Warn("Error parsing request body", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "Invalid request body",
		Message: err.Error(),
	})
	return false
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	switch {
	case errors.Is(err, reminders.ErrValidation):
		s.log.Info("Rejected reminder request", "request_id", reqID, "path", r.URL.Path, "error", err)
		res := errorResponse{Error: "Validation failed", Message: err.Error()}
		var verr *reminders.ValidationError
		if errors.As(err, &verr) {
			res.Message = verr.Error()
		}
		writeJSON(w, http.StatusBadRequest, res)
	case errors.Is(err, reminders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found", Message: "Reminder not found"})
	default:
		s.log.Error("Reminder request failed", "request_id", reqID, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal server error",
			Message: err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
