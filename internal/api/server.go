// Package api exposes the application service over HTTP and WebSocket.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"bozorlik/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	serviceName    = "Bozorlik AI"
	serviceVersion = "2.2.0"
)

// Server routes HTTP requests to the application service.
type Server struct {
	app      *app.App
	dataPath string
	router   chi.Router
	upgrader websocket.Upgrader
	hub      *hub
}

// NewServer builds the router. dataPath is reported by /health.
func NewServer(a *app.App, dataPath string) *Server {
	s := &Server{
		app:      a,
		dataPath: dataPath,
		router:   chi.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		hub: newHub(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(allowAllOrigins)

	s.setupRoutes(s.router)
	return s
}

func (s *Server) setupRoutes(r chi.Router) {
	r.Get("/", s.HandleRoot)
	r.Get("/health", s.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.HandleChat)

		r.Get("/list/{user_id}", s.HandleListGet)
		r.Delete("/list/{user_id}", s.HandleListClear)
		r.Post("/list/{user_id}/edit", s.HandleListEdit)
		r.Post("/list/{user_id}/toggle", s.HandleListToggle)

		r.Post("/expense", s.HandleExpense)
		r.Post("/parse_amount", s.HandleParseAmount)

		r.Get("/analytics/{user_id}", s.HandleAnalytics)
		r.Get("/analytics/{user_id}/expenses", s.HandleExpenses)
		r.Get("/analytics/{user_id}/list/{list_id}", s.HandleListDetails)

		r.Post("/share", s.HandleShare)
		r.Get("/shared/{token}", s.HandleShared)

		r.Get("/prices/search", s.HandlePriceSearch)
		r.Post("/set-language", s.HandleSetLanguage)
	})

	r.Get("/ws/{user_id}", s.HandleWebSocket)
}

// Handle mounts an extra handler, e.g. the Telegram webhook.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.router.Handle(pattern, h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close drops every open WebSocket connection.
func (s *Server) Close() {
	s.hub.closeAll()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
