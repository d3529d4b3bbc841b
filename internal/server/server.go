package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier/internal/domain"
)

// maxBatchLookups bounds a single batch presence request.
const maxBatchLookups = 100

// Server is one delivery node's HTTP surface.
type Server struct {
	serverID  domain.ServerID
	registry  domain.Registry
	resolver  domain.Resolver
	jwtSecret []byte

	http *http.Server
}

// New wires the router and returns an unstarted server.
func New(serverID domain.ServerID, addr string, registry domain.Registry, resolver domain.Resolver, jwtSecret []byte) *Server {
	s := &Server{
		serverID:  serverID,
		registry:  registry,
		resolver:  resolver,
		jwtSecret: jwtSecret,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/groups/{groupId}/fanout", s.handleFanOut).Methods(http.MethodGet)
	r.HandleFunc("/presence/{userId}", s.handlePresence).Methods(http.MethodGet)
	r.HandleFunc("/presence/batch", s.handlePresenceBatch).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	r.Use(s.authMiddleware)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
	return s
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until the listener closes. Always returns a non-nil error;
// http.ErrServerClosed after a clean Shutdown.
func (s *Server) Start() error {
	log.Printf("server %s listening on %s", s.serverID, s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"server": s.serverID.String(),
	})
}

// handleFanOut resolves the delivery partition for one group.
func (s *Server) handleFanOut(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	if _, err := uuid.Parse(groupID); err != nil {
		http.Error(w, "invalid group id", http.StatusBadRequest)
		return
	}

	result, err := s.resolver.Resolve(r.Context(), domain.GroupID(groupID))
	if err != nil {
		fanoutRequests.WithLabelValues("error").Inc()
		log.Printf("fan-out for group %s: %v", groupID, err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "fan-out resolution failed", status)
		return
	}
	fanoutRequests.WithLabelValues("ok").Inc()
	if result.UnknownMembers > 0 {
		fanoutUnknownMembers.Add(float64(result.UnknownMembers))
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePresence reports one user's online state and last-seen time.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	presenceLookups.WithLabelValues("single").Inc()
	user := domain.UserID(mux.Vars(r)["userId"])

	status, err := s.registry.Status(r.Context(), user)
	if err != nil {
		log.Printf("presence lookup for %s: %v", user, err)
		http.Error(w, "presence lookup failed", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type batchPresenceRequest struct {
	UserIDs []domain.UserID `json:"user_ids"`
}

type batchPresenceResponse struct {
	Statuses []domain.PresenceStatus `json:"statuses"`
}

// handlePresenceBatch reports online state for up to maxBatchLookups
// users in one round trip.
func (s *Server) handlePresenceBatch(w http.ResponseWriter, r *http.Request) {
	presenceLookups.WithLabelValues("batch").Inc()

	var req batchPresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if len(req.UserIDs) == 0 || len(req.UserIDs) > maxBatchLookups {
		http.Error(w, "user_ids must contain between 1 and 100 entries", http.StatusBadRequest)
		return
	}

	resp := batchPresenceResponse{Statuses: make([]domain.PresenceStatus, 0, len(req.UserIDs))}
	for _, user := range req.UserIDs {
		status, err := s.registry.Status(r.Context(), user)
		if err != nil {
			log.Printf("presence lookup for %s: %v", user, err)
			http.Error(w, "presence lookup failed", http.StatusServiceUnavailable)
			return
		}
		resp.Statuses = append(resp.Statuses, status)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
