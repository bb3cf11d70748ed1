package hook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/izzyreal/resethook/internal/config"
	"github.com/izzyreal/resethook/internal/protocol"
)

// BuildUtils is the part of the host utility object the hook uses.
type BuildUtils struct {
	FailBuild FailFunc
}

type Utils struct {
	Build BuildUtils
}

// Recorder persists hook results. *store.Store satisfies it.
type Recorder interface {
	RecordRun(ctx context.Context, result protocol.HookResult) (int64, error)
}

type Plugin struct {
	cfg      config.File
	resetter Resetter
	recorder Recorder
	home     func() (string, error)
	now      func() time.Time
}

type Option func(*Plugin)

func WithResetter(r Resetter) Option {
	return func(p *Plugin) { p.resetter = r }
}

func WithRecorder(r Recorder) Option {
	return func(p *Plugin) { p.recorder = r }
}

// WithHome overrides HOME lookup.
func WithHome(home string) Option {
	return func(p *Plugin) {
		p.home = func() (string, error) {
			if strings.TrimSpace(home) == "" {
				return "", errHomeUnset
			}
			return home, nil
		}
	}
}

func NewPlugin(cfg config.File, opts ...Option) *Plugin {
	p := &Plugin{
		cfg:  cfg,
		home: homeDir,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if strings.TrimSpace(p.cfg.FailMessage) == "" {
		p.cfg.FailMessage = config.DefaultFailMessage
	}
	return p
}

func (p *Plugin) Config() config.File {
	return p.cfg
}

func (p *Plugin) CleanupEvent() protocol.Event {
	return p.cfg.CleanupEvent()
}

// Handle runs the hook for event. Build failures go through utils.Build.FailBuild
// and are reflected in the result; the returned error is reserved for events the
// plugin does not know.
func (p *Plugin) Handle(ctx context.Context, event protocol.Event, utils Utils) (protocol.HookResult, error) {
	ev, err := protocol.ParseEvent(string(event))
	if err != nil {
		return protocol.HookResult{}, err
	}

	result := protocol.HookResult{Event: ev, StartedUTC: p.now()}
	if ev != p.CleanupEvent() {
		slog.Info("lifecycle check, no cleanup on this event", "event", ev, "cleanup_event", p.CleanupEvent())
		result.Status = protocol.HookStatusSkipped
		result.FinishedUTC = p.now()
		return result, nil
	}

	slog.Info("running cleanup before toolchain setup", "event", ev)
	result.Status = protocol.HookStatusSucceeded

	failed := false
	fail := func(message string) {
		if failed {
			return
		}
		failed = true
		result.Status = protocol.HookStatusFailed
		result.Message = message
		if utils.Build.FailBuild != nil {
			utils.Build.FailBuild(message)
		}
	}

	targets, err := p.targets()
	if err != nil {
		slog.Error("resolve reset targets failed", "event", ev, "error", err)
		fail(fmt.Sprintf("%s: %v", p.cfg.FailMessage, err))
	}
	for _, target := range targets {
		tr := p.resetter.Reset(target, p.cfg.FailMessage, fail)
		result.Targets = append(result.Targets, tr)
		if tr.Status == protocol.TargetStatusFailed {
			break
		}
	}

	result.FinishedUTC = p.now()
	p.record(ctx, result)
	return result, nil
}

func (p *Plugin) targets() ([]string, error) {
	home, err := p.home()
	if err != nil {
		return nil, err
	}
	return resolveTargets(home, p.cfg)
}

func (p *Plugin) record(ctx context.Context, result protocol.HookResult) {
	if p.recorder == nil {
		return
	}
	if _, err := p.recorder.RecordRun(ctx, result); err != nil {
		slog.Warn("record hook run failed", "event", result.Event, "error", err)
	}
}
