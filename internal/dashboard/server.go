// Package dashboard serves the operational HTTP surface: a liveness
// probe and read-only JSON views of registered users and their spend.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleybot/parley/internal/store"
	"github.com/parleybot/parley/internal/usage"
)

// StartOpts holds configuration for the status server.
type StartOpts struct {
	Store      store.Store
	Calculator *usage.Calculator
	Port       int
	Out        io.Writer
}

// Start launches the status HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("dashboard: store is required")
	}
	if opts.Calculator == nil {
		return fmt.Errorf("dashboard: calculator is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts.Store, opts.Calculator)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Status server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
