package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/izzyreal/resethook/internal/config"
	"github.com/izzyreal/resethook/internal/hook"
	"github.com/izzyreal/resethook/internal/protocol"
	"github.com/izzyreal/resethook/internal/server"
	"github.com/izzyreal/resethook/internal/store"
	"github.com/izzyreal/resethook/internal/version"
)

// exitBuildFailed is what the build host reads as a failed step.
const exitBuildFailed = 1

func main() {
	initLogging()

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"run"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "run":
		var failed bool
		failed, err = runHook(ctx, args[1:], os.Stderr)
		if err == nil && failed {
			stop()
			os.Exit(exitBuildFailed)
		}
	case "serve":
		err = serve(ctx)
	case "history":
		err = history(ctx, args[1:], os.Stdout)
	case "version":
		fmt.Println(version.Current())
		return
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "resethook: %v\n", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("RESETHOOK_LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runHook handles one lifecycle event and reports whether the build step failed.
func runHook(ctx context.Context, args []string, stderr io.Writer) (bool, error) {
	cfg, source, err := config.LoadFromEnv()
	if err != nil {
		return false, err
	}
	slog.Debug("config loaded", "source", source)

	event := cfg.CleanupEvent()
	if len(args) > 0 {
		if event, err = protocol.ParseEvent(args[0]); err != nil {
			return false, err
		}
	}

	plugin, db, err := newPlugin(cfg)
	if err != nil {
		return false, err
	}
	if db != nil {
		defer db.Close()
	}

	utils := hook.Utils{Build: hook.BuildUtils{FailBuild: func(message string) {
		fmt.Fprintf(stderr, "resethook: build failed: %s\n", message)
	}}}
	result, err := plugin.Handle(ctx, event, utils)
	if err != nil {
		return false, err
	}
	return result.Failed(), nil
}

func serve(ctx context.Context) error {
	cfg, _, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	plugin, db, err := newPlugin(cfg)
	if err != nil {
		return err
	}
	if db == nil {
		return server.Run(ctx, plugin, nil)
	}
	defer db.Close()
	return server.Run(ctx, plugin, db)
}

func history(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, _, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.HistoryDB) == "" {
		return fmt.Errorf("run history is not enabled (set history_db or RESETHOOK_HISTORY_DB)")
	}
	db, err := store.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) > 0 && args[0] == "flush" {
		n, err := db.FlushRuns(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "history flushed: removed=%d\n", n)
		return nil
	}

	limit := 0
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil || limit < 0 {
			return fmt.Errorf("invalid history limit %q", args[0])
		}
	}
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		line := fmt.Sprintf("%d\t%s\t%s\t%s", run.ID, run.StartedUTC.Format("2006-01-02T15:04:05Z"), run.Event, run.Status)
		if run.Message != "" {
			line += "\t" + run.Message
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// newPlugin opens the history store when one is configured; the caller closes it.
func newPlugin(cfg config.File) (*hook.Plugin, *store.Store, error) {
	path := strings.TrimSpace(cfg.HistoryDB)
	if path == "" {
		return hook.NewPlugin(cfg), nil, nil
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return hook.NewPlugin(cfg, hook.WithRecorder(db)), db, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `resethook - build lifecycle cleanup hook

Usage:
  resethook <command>

Commands:
  run [event]      Run the hook for onInit or onPreBuild (default: configured event)
  serve            Serve hooks over HTTP for the build host
  history [limit]  Print recorded hook runs (history flush clears them)
  version          Print the version
  help             Show this help
`)
}
