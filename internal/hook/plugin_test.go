package hook

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/izzyreal/resethook/internal/config"
	"github.com/izzyreal/resethook/internal/protocol"
)

type failRecorder struct {
	messages []string
}

func (f *failRecorder) utils() Utils {
	return Utils{Build: BuildUtils{FailBuild: func(msg string) { f.messages = append(f.messages, msg) }}}
}

type memoryRecorder struct {
	results []protocol.HookResult
	err     error
}

func (m *memoryRecorder) RecordRun(_ context.Context, result protocol.HookResult) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.results = append(m.results, result)
	return int64(len(m.results)), nil
}

func TestHandleRemovesFlutterDirOnInit(t *testing.T) {
	home := t.TempDir()
	flutterDir := filepath.Join(home, "flutter")
	if err := os.MkdirAll(filepath.Join(flutterDir, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(flutterDir, "bin", "flutter"), []byte("x"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	fr := &failRecorder{}
	p := NewPlugin(config.Default(), WithHome(home))
	res, err := p.Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != protocol.HookStatusSucceeded {
		t.Fatalf("status=%q want succeeded", res.Status)
	}
	if len(fr.messages) != 0 {
		t.Fatalf("unexpected build failures: %q", fr.messages)
	}
	if _, err := os.Lstat(flutterDir); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("flutter dir still present: %v", err)
	}
	if len(res.Targets) != 1 || res.Targets[0].Status != protocol.TargetStatusRemoved {
		t.Fatalf("unexpected targets: %+v", res.Targets)
	}
}

func TestHandleTwiceIsIdempotent(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "flutter"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	fr := &failRecorder{}
	p := NewPlugin(config.Default(), WithHome(home))
	for i := 0; i < 2; i++ {
		res, err := p.Handle(context.Background(), protocol.EventOnInit, fr.utils())
		if err != nil {
			t.Fatalf("Handle #%d: %v", i, err)
		}
		if res.Status != protocol.HookStatusSucceeded {
			t.Fatalf("Handle #%d status=%q", i, res.Status)
		}
	}
	if len(fr.messages) != 0 {
		t.Fatalf("unexpected build failures: %q", fr.messages)
	}
}

func TestHandleMissingTargetLeavesHomeUntouched(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ".bashrc"), []byte("export X=1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fr := &failRecorder{}
	res, err := NewPlugin(config.Default(), WithHome(home)).Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != protocol.HookStatusSucceeded || len(fr.messages) != 0 {
		t.Fatalf("status=%q failures=%q", res.Status, fr.messages)
	}
	if len(res.Targets) != 1 || res.Targets[0].Status != protocol.TargetStatusAbsent {
		t.Fatalf("unexpected targets: %+v", res.Targets)
	}
	if _, err := os.Stat(filepath.Join(home, ".bashrc")); err != nil {
		t.Fatalf("unrelated file touched: %v", err)
	}
}

func TestHandleRemovalErrorFailsBuildOnce(t *testing.T) {
	home := t.TempDir()
	for _, dir := range []string{"flutter", "sdk"} {
		if err := os.MkdirAll(filepath.Join(home, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	cfg := config.Default()
	cfg.Targets = []string{"flutter", "sdk"}

	removeCalls := 0
	p := NewPlugin(cfg, WithHome(home), WithResetter(Resetter{Remove: func(string) error {
		removeCalls++
		return fs.ErrPermission
	}}))
	fr := &failRecorder{}
	res, err := p.Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fr.messages) != 1 || fr.messages[0] != config.DefaultFailMessage {
		t.Fatalf("fail messages=%q want exactly one default message", fr.messages)
	}
	if res.Status != protocol.HookStatusFailed || res.Message != config.DefaultFailMessage {
		t.Fatalf("unexpected result: %+v", res)
	}
	if removeCalls != 1 || len(res.Targets) != 1 {
		t.Fatalf("expected run to stop after first failure, removeCalls=%d targets=%+v", removeCalls, res.Targets)
	}
}

func TestHandleUnsetHomeFailsBuild(t *testing.T) {
	fr := &failRecorder{}
	p := NewPlugin(config.Default(), WithHome(""))
	res, err := p.Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(fr.messages) != 1 || !strings.Contains(fr.messages[0], "HOME is not set") {
		t.Fatalf("fail messages=%q", fr.messages)
	}
	if res.Status != protocol.HookStatusFailed || len(res.Targets) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleNonCleanupEventIsCheckOnly(t *testing.T) {
	home := t.TempDir()
	flutterDir := filepath.Join(home, "flutter")
	if err := os.MkdirAll(flutterDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rec := &memoryRecorder{}
	p := NewPlugin(config.Default(), WithHome(home), WithRecorder(rec))
	res, err := p.Handle(context.Background(), protocol.EventOnPreBuild, Utils{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != protocol.HookStatusSkipped {
		t.Fatalf("status=%q want skipped", res.Status)
	}
	if _, err := os.Stat(flutterDir); err != nil {
		t.Fatalf("pre-build check must not delete: %v", err)
	}
	if len(rec.results) != 0 {
		t.Fatalf("skipped events should not be recorded: %+v", rec.results)
	}
}

func TestHandleConfiguredPreBuildEvent(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "flutter"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := config.Default()
	cfg.Hook = string(protocol.EventOnPreBuild)
	p := NewPlugin(cfg, WithHome(home))

	res, err := p.Handle(context.Background(), protocol.EventOnInit, Utils{})
	if err != nil || res.Status != protocol.HookStatusSkipped {
		t.Fatalf("onInit: status=%q err=%v", res.Status, err)
	}
	res, err = p.Handle(context.Background(), protocol.EventOnPreBuild, Utils{})
	if err != nil || res.Status != protocol.HookStatusSucceeded {
		t.Fatalf("onPreBuild: status=%q err=%v", res.Status, err)
	}
}

func TestHandleUnknownEvent(t *testing.T) {
	_, err := NewPlugin(config.Default(), WithHome(t.TempDir())).Handle(context.Background(), protocol.Event("onSuccess"), Utils{})
	if err == nil {
		t.Fatal("expected unknown event error")
	}
}

func TestHandleRecordsResultAndToleratesRecorderErrors(t *testing.T) {
	home := t.TempDir()
	rec := &memoryRecorder{}
	p := NewPlugin(config.Default(), WithHome(home), WithRecorder(rec))
	if _, err := p.Handle(context.Background(), protocol.EventOnInit, Utils{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(rec.results) != 1 || rec.results[0].Event != protocol.EventOnInit {
		t.Fatalf("unexpected recorded results: %+v", rec.results)
	}

	broken := &memoryRecorder{err: errors.New("disk full")}
	fr := &failRecorder{}
	res, err := NewPlugin(config.Default(), WithHome(home), WithRecorder(broken)).Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil || res.Status != protocol.HookStatusSucceeded || len(fr.messages) != 0 {
		t.Fatalf("recorder error leaked: status=%q err=%v failures=%q", res.Status, err, fr.messages)
	}
}

func TestHandleNilFailBuildDoesNotPanic(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "flutter"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := NewPlugin(config.File{Version: 1, Targets: []string{"flutter"}}, WithHome(home), WithResetter(Resetter{Remove: func(string) error { return fs.ErrPermission }}))
	res, err := p.Handle(context.Background(), protocol.EventOnInit, Utils{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != protocol.HookStatusFailed || res.Message != config.DefaultFailMessage {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleKeepsDataBehindSymlinkedDir(t *testing.T) {
	home := t.TempDir()
	outside := t.TempDir()
	precious := filepath.Join(outside, "precious")
	if err := os.MkdirAll(precious, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(home, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	cfg := config.File{Version: 1, Patterns: []string{"link/*"}}
	fr := &failRecorder{}
	res, err := NewPlugin(cfg, WithHome(home)).Handle(context.Background(), protocol.EventOnInit, fr.utils())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Status != protocol.HookStatusSucceeded || len(res.Targets) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := os.Stat(precious); err != nil {
		t.Fatalf("data outside home was touched: %v", err)
	}
}

func TestHandleDotPatternKeepsHome(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ".profile"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := config.File{Version: 1, Patterns: []string{"."}}
	if _, err := NewPlugin(cfg, WithHome(home)).Handle(context.Background(), protocol.EventOnInit, Utils{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".profile")); err != nil {
		t.Fatalf("home was wiped: %v", err)
	}
}
