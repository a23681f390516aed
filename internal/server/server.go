// Package server provides the HTTP REST API for the outreach agent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/outreach-agent/internal/credentials"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/server/middleware"
	"github.com/jonathan/outreach-agent/internal/server/ratelimit"
)

// Invalidator drops a tenant's cached generation client after a credential
// change. Satisfied by the generation layer.
type Invalidator interface {
	Invalidate(tenantID uuid.UUID)
}

// CampaignStore is the persistence surface the handlers use. Satisfied by
// db.DB.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *db.Campaign) error
	GetCampaign(ctx context.Context, id, ownerID uuid.UUID) (*db.Campaign, error)
	ListCampaigns(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]db.Campaign, int, error)
	DeleteCampaign(ctx context.Context, id, ownerID uuid.UUID) (string, error)
	ListFollowUps(ctx context.Context, campaignID, ownerID uuid.UUID) ([]db.FollowUp, error)
	UpsertTenantCredentials(ctx context.Context, ownerID uuid.UUID, sendEmail string, encSecret, encGenKey []byte) error
	Ping(ctx context.Context) error
}

// Documents stores uploaded résumés. Satisfied by docstore.Store.
type Documents interface {
	Save(filename string, data []byte) (string, error)
	Delete(path string) error
}

// CampaignRunner is the engine surface exposed over HTTP. Satisfied by
// engine.Engine.
type CampaignRunner interface {
	Retry(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.Campaign, error)
	SendFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.FollowUp, error)
}

// Queue hands accepted campaigns to the background workers. Satisfied by
// engine.Dispatcher.
type Queue interface {
	Enqueue(campaignID, ownerID uuid.UUID) bool
}

// Deps holds the collaborators the server routes requests to.
type Deps struct {
	DB         CampaignStore
	Docs       Documents
	Engine     CampaignRunner
	Dispatcher Queue
	Generator  Invalidator
	Cipher     *credentials.Cipher
	JWT        *JWTService
}

// Server is the HTTP front end.
type Server struct {
	httpServer  *http.Server
	deps        Deps
	rateLimiter *ratelimit.Limiter
}

// New creates a server with its routes wired.
func New(port int, deps Deps) *Server {
	s := &Server{
		deps:        deps,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
	}

	auth := middleware.AuthMiddleware(deps.JWT.AsTokenValidator())

	mux := http.NewServeMux()
	mux.Handle("POST /campaigns", auth(http.HandlerFunc(s.handleCreateCampaign)))
	mux.Handle("GET /campaigns", auth(http.HandlerFunc(s.handleListCampaigns)))
	mux.Handle("GET /campaigns/{id}", auth(http.HandlerFunc(s.handleGetCampaign)))
	mux.Handle("DELETE /campaigns/{id}", auth(http.HandlerFunc(s.handleDeleteCampaign)))
	mux.Handle("POST /campaigns/{id}/retry", auth(http.HandlerFunc(s.handleRetryCampaign)))
	mux.Handle("GET /campaigns/{id}/follow-ups", auth(http.HandlerFunc(s.handleListFollowUps)))
	mux.Handle("POST /campaigns/{id}/follow-up", auth(http.HandlerFunc(s.handleSendFollowUp)))
	mux.Handle("PUT /credentials", auth(http.HandlerFunc(s.handleUpsertCredentials)))
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start listens until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[server] error: %v", err)
		}
	}()

	<-stop
	log.Println("[server] shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	log.Println("[server] stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit enforces per-client request limits
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth reports liveness, including database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.DB.Ping(ctx); err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response with the mapped status code
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("[server] internal error: %v", err)
		s.jsonResponse(w, status, map[string]string{"error": "internal server error"})
		return
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

// extractClientID extracts the client identifier from the request. For now
// this is the IP from RemoteAddr; X-Forwarded-For would need a trusted proxy
// list first.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
