package protocol

import (
	"fmt"
	"strings"
	"time"
)

type Event string

const (
	EventOnInit     Event = "onInit"
	EventOnPreBuild Event = "onPreBuild"
)

func NormalizeEvent(event string) string {
	return strings.ToLower(strings.TrimSpace(event))
}

func ParseEvent(event string) (Event, error) {
	switch NormalizeEvent(event) {
	case "oninit", "init":
		return EventOnInit, nil
	case "onprebuild", "prebuild":
		return EventOnPreBuild, nil
	default:
		return "", fmt.Errorf("unknown lifecycle event %q (want %s or %s)", strings.TrimSpace(event), EventOnInit, EventOnPreBuild)
	}
}

const (
	TargetStatusAbsent  = "absent"
	TargetStatusRemoved = "removed"
	TargetStatusFailed  = "failed"
)

const (
	HookStatusSucceeded = "succeeded"
	HookStatusFailed    = "failed"
	HookStatusSkipped   = "skipped"
)

type TargetResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HookResult struct {
	Event       Event          `json:"event"`
	Status      string         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Targets     []TargetResult `json:"targets,omitempty"`
	StartedUTC  time.Time      `json:"started_utc"`
	FinishedUTC time.Time      `json:"finished_utc"`
}

func (r HookResult) Failed() bool {
	return r.Status == HookStatusFailed
}

type HookResponse struct {
	Result HookResult `json:"result"`
}

type RunRecord struct {
	ID int64 `json:"id"`
	HookResult
}

type RunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

type ServerInfoResponse struct {
	Name       string `json:"name"`
	APIVersion int    `json:"api_version"`
	Version    string `json:"version"`
	Hostname   string `json:"hostname,omitempty"`
}
