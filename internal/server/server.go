package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/model"
	"github.com/hevcd/hevcd/internal/task"
)

// Timeouts for the HTTP server itself. Artifact downloads can be large, so
// there is no write timeout; the pipeline enforces its own deadlines.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownGrace     = 10 * time.Second
)

// Queue accepts new download jobs.
type Queue interface {
	Enqueue(url, rename string) model.Task
	Active() int
}

// CookieManager is the credential surface the API needs: where the cookie
// file lives, whether it validates, and which browser stores are available.
type CookieManager interface {
	CookiesPath() string
	DetectBrowserStores() []string
	ValidateFile() cookies.Validation
	HasCredentials() bool
}

// Config wires the API server to the task store, the orchestrator queue and
// the cookie manager.
type Config struct {
	Store          *task.Store
	Queue          Queue
	Cookies        CookieManager
	ListenAddr     string
	FrontendOrigin string
	Logger         *logrus.Entry
}

func (c *Config) defaults() {
	if c.FrontendOrigin == "" {
		c.FrontendOrigin = "*"
	}
	if c.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(logger)
	}
}

// Server is the HTTP API front end.
type Server struct {
	store   *task.Store
	queue   Queue
	cookies CookieManager
	origin  string
	logger  *logrus.Entry

	httpServer *http.Server
}

// New creates the API server and registers its routes.
func New(cfg Config) *Server {
	cfg.defaults()

	s := &Server{
		store:   cfg.Store,
		queue:   cfg.Queue,
		cookies: cfg.Cookies,
		origin:  cfg.FrontendOrigin,
		logger:  cfg.Logger.WithField("svc", "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/download", s.handleDownload)
	mux.HandleFunc("GET /api/status/{taskID}", s.handleStatus)
	mux.HandleFunc("GET /files/{filename}", s.handleFile)
	mux.HandleFunc("DELETE /api/cleanup/{taskID}", s.handleCleanup)
	mux.HandleFunc("POST /api/upload-cookies", s.handleUploadCookies)
	mux.HandleFunc("GET /api/browser-cookies", s.handleBrowserCookies)
	mux.HandleFunc("GET /api/troubleshoot", s.handleTroubleshoot)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.cors(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving the API until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("API listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// cors tags every response for the configured frontend origin and resolves
// preflight requests without touching the mux.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
