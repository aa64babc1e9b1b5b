package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"wtt/internal/capture"
	"wtt/internal/config"
	"wtt/internal/ics"
	appLog "wtt/internal/log"
	"wtt/internal/timetable"
	"wtt/internal/widget"
)

// Server hosts timetable editing sessions: the editor page, the pointer API
// the browser shim talks to, read-only views and ICS import/export.
type Server struct {
	cfg      *config.Config
	store    *Store
	fetcher  *ics.Fetcher
	capturer capture.Capturer
	presets  []timetable.Preset
	policy   widget.Policy
	router   chi.Router
}

// embeddedStatic holds the pointer shim and the grid stylesheet.
//
//go:embed static
var embeddedStatic embed.FS

// Option customizes a Server.
type Option func(*Server)

// WithCapturer replaces the headless Chromium capturer.
func WithCapturer(c capture.Capturer) Option { return func(s *Server) { s.capturer = c } }

// WithFetcher replaces the remote ICS fetcher.
func WithFetcher(f *ics.Fetcher) Option { return func(s *Server) { s.fetcher = f } }

// WithStore shares a session store (e.g. with the sweeper).
func WithStore(st *Store) Option { return func(s *Server) { s.store = st } }

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    NewStore(),
		fetcher:  ics.NewFetcher(nil),
		capturer: capture.Chromium{},
		presets:  cfg.TimetablePresets(),
		policy:   widget.ParsePolicy(cfg.Policy),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store exposes the session store.
func (s *Server) Store() *Store { return s.store }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		r.Use(s.basicAuthMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", s.staticFileServer())
	r.Get("/view", s.handleView)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleEditorPage)
		r.Get("/grid", s.handleGridFragment)
	})

	r.Route("/api", func(r chi.Router) {
		limit := httprate.LimitByIP(s.cfg.RateLimit, time.Second)

		r.With(limit).Get("/summary", s.handleSummary)
		r.With(limit).Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			// pointer events have their own budget; a dropped up/cancel strands the gesture
			r.With(httprate.LimitByIP(s.cfg.PointerRateLimit, time.Second)).Post("/pointer", s.handlePointer)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/presets/{preset}", s.handlePreset)
				r.Post("/clear", s.handleClear)
				r.Post("/open", s.handleOpen)
				r.Post("/close", s.handleClose)
				r.Post("/save", s.handleSave)
				r.Post("/import", s.handleImport)
				r.Get("/availability.ics", s.handleExport)
				r.Get("/preview.png", s.handlePreview)
			})
		})
	})

	return r
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// 빈 사용자명 또는 비밀번호가 설정된 경우에는 비활성화로 취급한다.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health 는 항상 무인증으로 노출한다.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="WTT", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Serve runs the HTTP server and the idle-session sweeper until ctx is
// cancelled, then shuts both down gracefully.
func Serve(ctx context.Context, cfg *config.Config, opts ...Option) error {
	store := NewStore()
	sweeper, err := StartSweeper(store, cfg.SweepCron, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	s := NewServer(cfg, append([]Option{WithStore(store)}, opts...)...)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "policy", cfg.Policy)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded shim and stylesheet under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
