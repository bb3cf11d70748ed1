package server

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/izzyreal/resethook/internal/hook"
	"github.com/izzyreal/resethook/internal/protocol"
	"github.com/izzyreal/resethook/internal/server/httpx"
	"github.com/izzyreal/resethook/internal/version"
)

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	httpx.WriteJSON(w, http.StatusOK, protocol.ServerInfoResponse{
		Name:       "resethook",
		APIVersion: 1,
		Version:    version.Current(),
		Hostname:   strings.TrimSpace(host),
	})
}

func (s *hookServer) hookHandler(w http.ResponseWriter, r *http.Request) {
	event, err := protocol.ParseEvent(chi.URLParam(r, "event"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The HTTP caller is the host; a failed build is carried in the result.
	utils := hook.Utils{Build: hook.BuildUtils{FailBuild: func(message string) {
		slog.Warn("build step failed", "event", event, "message", message)
	}}}
	result, err := s.plugin.Handle(r.Context(), event, utils)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.HookResponse{Result: result})
}

func (s *hookServer) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		httpx.WriteError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("list hook runs", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.RunsResponse{Runs: runs})
}
