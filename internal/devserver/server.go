package devserver

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server is the development backend: the full REST and WebSocket surface the
// client package talks to, backed by a pluggable Store.
type Server struct {
	store     Store
	jwtSecret string
	hub       *Hub
	fanout    *Fanout
	router    *mux.Router

	fanoutCtx    context.Context
	cancelFanout context.CancelFunc
}

type Options struct {
	Store      Store
	JWTSecret  string
	CORSOrigin string

	// Fanout is optional; when set, published chat messages go through Redis
	// so other instances deliver them too.
	Fanout *Fanout
}

func NewServer(opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:        opts.Store,
		jwtSecret:    opts.JWTSecret,
		hub:          NewHub(),
		fanout:       opts.Fanout,
		fanoutCtx:    ctx,
		cancelFanout: cancel,
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware(opts.CORSOrigin))

	// Public routes
	router.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/auth/register", s.handleRegister).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/login", s.handleLogin).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/items", s.handleListItems).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}", s.handleGetItem).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/items/{id}/reviews", s.handleItemReviews).Methods("GET", "OPTIONS")

	// WebSocket
	router.HandleFunc("/ws/chat", s.handleWS).Methods("GET")

	// Protected routes
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(s.requireAuth)

	protected.HandleFunc("/users/me", s.handleMe).Methods("GET")
	protected.HandleFunc("/items", s.handleCreateItem).Methods("POST")
	protected.HandleFunc("/items/{id}", s.handleUpdateItem).Methods("PUT")
	protected.HandleFunc("/rentals", s.handleCreateRental).Methods("POST")
	protected.HandleFunc("/rentals", s.handleListRentals).Methods("GET")
	protected.HandleFunc("/rentals/{id}/{action}", s.handleRentalDecision).Methods("POST")
	protected.HandleFunc("/reviews", s.handleCreateReview).Methods("POST")
	protected.HandleFunc("/payments/confirm", s.handleConfirmPayment).Methods("POST")
	protected.HandleFunc("/chat/rooms", s.handleListRooms).Methods("GET")
	protected.HandleFunc("/chat/rooms", s.handleOpenRoom).Methods("POST")
	protected.HandleFunc("/chat/rooms/{id}/messages", s.handleRoomMessages).Methods("GET")

	s.router = router
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the hub and, when configured, the Redis fan-out consumer. It
// returns immediately; Shutdown stops both.
func (s *Server) Run() {
	go s.hub.Run()
	if s.fanout != nil {
		go s.fanout.Run(s.fanoutCtx, s.hub.BroadcastToRoom)
	}
}

func (s *Server) Shutdown() {
	s.cancelFanout()
	s.hub.Shutdown()
	if s.fanout != nil {
		s.fanout.Close()
	}
}

// deliver is the single egress point for chat messages. With a fan-out every
// instance (this one included) picks the message up off Redis; without one
// the local hub broadcasts directly.
func (s *Server) deliver(roomID string, data []byte) {
	if s.fanout != nil {
		if err := s.fanout.Publish(roomID, data); err != nil {
			slog.Error("fanout publish failed", "error", err, "room_id", roomID)
		}
		return
	}
	s.hub.BroadcastToRoom(roomID, data)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Hijack passes through so the WebSocket upgrade keeps working behind the
// logging middleware.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

func corsMiddleware(origin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
