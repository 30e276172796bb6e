package handlers

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires every endpoint under /api. Auth and health routes are
// public; everything else requires a bearer token.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestLogger)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	api.HandleFunc("/tasks", h.AuthMiddleware(h.ListTasks)).Methods(http.MethodGet)
	api.HandleFunc("/tasks", h.AuthMiddleware(h.CreateTask)).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.GetTask)).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.UpdateTask)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/tasks/{id}", h.AuthMiddleware(h.DeleteTask)).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/complete", h.AuthMiddleware(h.CompleteTask)).Methods(http.MethodPost)

	api.HandleFunc("/projects", h.AuthMiddleware(h.ListProjects)).Methods(http.MethodGet)
	api.HandleFunc("/projects", h.AuthMiddleware(h.CreateProject)).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", h.AuthMiddleware(h.GetProject)).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}", h.AuthMiddleware(h.UpdateProject)).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/projects/{id}", h.AuthMiddleware(h.DeleteProject)).Methods(http.MethodDelete)

	api.HandleFunc("/ws", h.AuthMiddleware(h.HandleWebSocket)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.HealthCheck(ctx); err != nil {
			h.logger().WithError(err).Warn("health check failed")
			sendJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is required by the websocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger().WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("request")
	})
}
