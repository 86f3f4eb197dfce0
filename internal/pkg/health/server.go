package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vodeneev/oddsmerge/internal/pkg/health/handlers"
)

const defaultReadHeaderTimeout = 5 * time.Second

func init() {
	handlers.SetGetEventsFunc(GetEvents)
	handlers.SetGetEventsByNameFunc(GetEventsByName)
	handlers.SetRunStatusFunc(lastRunStatus)
}

// NewMux wires every endpoint of the service.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/ping", handlers.HandlePing)
	mux.HandleFunc("/health", handlers.HandleHealth)

	// Prometheus
	mux.Handle("/metrics", promhttp.Handler())

	// Last resolution run; ?name= filters by team or league
	mux.HandleFunc("/events", handlers.HandleEvents)

	return mux
}

// Run serves the endpoints on addr until ctx is done.
func Run(ctx context.Context, addr string, service string, readHeaderTimeout time.Duration) {
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
}

// AddrFor returns the listen address of a port; 0 means disabled.
func AddrFor(port int) (string, bool) {
	if port <= 0 {
		return "", false
	}
	return fmt.Sprintf(":%d", port), true
}
