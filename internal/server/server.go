// Package server is the local caching proxy in front of the sticker
// gallery API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stixly/stixly/internal/dashboard"
	"github.com/stixly/stixly/internal/gallery"
	"github.com/stixly/stixly/internal/likes"
	"github.com/stixly/stixly/internal/loader"
	"github.com/stixly/stixly/internal/profile"
	"github.com/stixly/stixly/internal/similar"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)

	// BotToken enables init data validation on /api and /ws routes.
	BotToken       string
	InitDataMaxAge time.Duration
}

// Deps are the feature services mounted by the server. Nil services are
// not mounted.
type Deps struct {
	Gallery    *gallery.Gallery
	Swipe      *gallery.SwipeFeed
	Likes      *likes.Service
	Snapshots  *profile.SnapshotStore
	Flags      *profile.Flags
	Loader     *loader.Loader
	StickerURL func(fileID string) string
	Dashboard  *dashboard.Dashboard
	Similar    *similar.Index
}

// Server serves the gallery proxy.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all feature routes mounted.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*", "https://web.telegram.org"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Telegram-Init-Data"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	d := s.deps

	// Browsers fetch these without custom headers.
	if d.Dashboard != nil {
		r.Get("/dashboard", d.Dashboard.ServeHTTP)
	}
	if d.Loader != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(2 * time.Minute))
			loader.RegisterRoutes(r, d.Loader, d.StickerURL)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireInitData(s.cfg.BotToken, s.cfg.InitDataMaxAge))

		if d.Dashboard != nil {
			d.Dashboard.RegisterSocket(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if d.Gallery != nil {
				gallery.RegisterRoutes(r, d.Gallery, d.Swipe)
			}
			if d.Likes != nil {
				likes.RegisterRoutes(r, d.Likes)
			}
			if d.Snapshots != nil && d.Flags != nil {
				profile.RegisterRoutes(r, d.Snapshots, d.Flags)
			}
			if d.Dashboard != nil {
				d.Dashboard.RegisterAPI(r)
			}
			if d.Similar != nil {
				similar.RegisterRoutes(r, d.Similar)
			}
		})
	})

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("stixly server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
