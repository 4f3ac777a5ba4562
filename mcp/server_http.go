package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
)

// HTTPOptions configure the remote surface. An empty APIKey disables auth on /mcp;
// a nil Metrics handler leaves /metrics unmounted.
type HTTPOptions struct {
	Addr    string
	APIKey  string
	Metrics http.Handler
}

// NewHandler routes /healthz, /metrics and the streamable MCP endpoint.
func NewHandler(deps Deps, opts HTTPOptions) http.Handler {
	mcpServer := server.NewStreamableHTTPServer(NewServer(deps), server.WithStateLess(true))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	var mcpHandler http.Handler = mcpServer
	if opts.APIKey != "" {
		mcpHandler = bearerAuth(opts.APIKey, mcpServer)
	}
	r.Handle("/mcp", mcpHandler)
	return r
}

// ServeHTTP listens until ctx is cancelled, then shuts down gracefully.
func ServeHTTP(ctx context.Context, deps Deps, opts HTTPOptions) error {
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      NewHandler(deps, opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", opts.Addr).Bool("auth", opts.APIKey != "").Msg("MCP HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func bearerAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			http.Error(w, `{"error":"missing Authorization header"}`, http.StatusUnauthorized)
			return
		}
		token, found := strings.CutPrefix(auth, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp", error="invalid_token"`)
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
