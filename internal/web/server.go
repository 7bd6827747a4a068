package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/config"
	"github.com/platescan/platescan/internal/history"
	"github.com/platescan/platescan/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the collaborators shared by the pages and the JSON API.
// Auth may be nil, in which case the /api/auth routes report INVALID_REQUEST.
type Deps struct {
	Analyzer ops.Analyzer
	History  *history.Store
	Auth     auth.Provider
}

// NewServer creates and configures the HTTP server for the meal pages and JSON API.
func NewServer(deps Deps, cfg *config.Config, version, bind string, port int) *http.Server {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatalf("failed to create static sub-FS: %v", err)
	}

	if deps.History == nil {
		deps.History = history.New()
	}

	h := &Handlers{
		client:   deps.Analyzer,
		history:  deps.History,
		auth:     deps.Auth,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version),
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/meals", http.StatusFound)
	})
	mux.HandleFunc("GET /meals", h.HandleList)
	mux.HandleFunc("GET /meals/{id}", h.HandleDetail)

	// JSON API
	mux.HandleFunc("POST /api/analyze", h.HandleAPIAnalyze)
	mux.HandleFunc("POST /api/normalize", h.HandleAPINormalize)
	mux.HandleFunc("POST /api/swap", h.HandleAPISwap)
	mux.HandleFunc("POST /api/history", h.HandleAPISave)
	mux.HandleFunc("GET /api/history", h.HandleAPIList)
	mux.HandleFunc("GET /api/history/{id}", h.HandleAPIGet)
	mux.HandleFunc("DELETE /api/history", h.HandleAPIClear)
	mux.HandleFunc("POST /api/auth/signup", h.HandleAPISignUp)
	mux.HandleFunc("POST /api/auth/signin", h.HandleAPISignIn)
	mux.HandleFunc("POST /api/auth/signout", h.HandleAPISignOut)
	mux.HandleFunc("POST /api/onboarding", h.HandleAPIOnboarding)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: withCORS(cfg.AllowedOrigins, securityHeaders(mux)),
	}
}

// withCORS allows cross-origin calls from the configured origins.
// With no origins configured the handler is returned unchanged (same-origin only).
func withCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         600,
	})
	return c.Handler(next)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("platescan running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
