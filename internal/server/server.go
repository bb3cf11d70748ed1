package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/izzyreal/resethook/internal/hook"
	"github.com/izzyreal/resethook/internal/protocol"
)

// HistoryReader lists recorded hook runs. *store.Store satisfies it.
type HistoryReader interface {
	ListRuns(ctx context.Context, limit int) ([]protocol.RunRecord, error)
}

type hookServer struct {
	// mu serializes hook invocations.
	mu      sync.Mutex
	plugin  *hook.Plugin
	history HistoryReader
}

func Run(ctx context.Context, plugin *hook.Plugin, history HistoryReader) error {
	addr := envOrDefault("RESETHOOK_SERVER_ADDR", ":8113")

	s := &hookServer{plugin: plugin, history: history}
	srv := &http.Server{
		Addr:              addr,
		Handler:           buildRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopMDNS := startMDNSAdvertiser(addr, plugin)
	defer stopMDNS()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("resethook server started", "addr", addr, "cleanup_event", plugin.CleanupEvent())
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		slog.Info("resethook server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		slog.Info("resethook server stopped")
		return nil
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
