package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/pkg/bridge/bridgetest"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/logging"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNopLogger())}, opts...)
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

func TestApp_New(t *testing.T) {
	app := newTestApp(t)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

func TestApp_Kinds_Singleton(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{}))

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]*kinds.Registry, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			reg, err := app.Kinds()
			if err != nil {
				t.Errorf("Kinds() failed: %v", err)
				return
			}
			results[idx] = reg
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Fatal("Kinds() returned different registries")
		}
	}
	if results[0].Source() != "embedded" {
		t.Errorf("Source() = %q, want embedded", results[0].Source())
	}
}

func TestApp_Kinds_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.yaml")
	if err := os.WriteFile(path, kinds.Embedded(), 0o600); err != nil {
		t.Fatal(err)
	}
	app := newTestApp(t, WithConfig(&Config{KindsFile: path}))

	reg, err := app.Kinds()
	if err != nil {
		t.Fatalf("Kinds() failed: %v", err)
	}
	if reg.Source() != path {
		t.Errorf("Source() = %q, want %q", reg.Source(), path)
	}

	app = newTestApp(t, WithConfig(&Config{KindsFile: filepath.Join(t.TempDir(), "missing.yaml")}))
	if _, err := app.Kinds(); err == nil {
		t.Error("Kinds() with a missing file succeeded")
	}
}

func TestApp_Bridge_FromSettings(t *testing.T) {
	t.Setenv("BRIDGE_URL", "http://127.0.0.1:1/rest/1/token/")
	app := newTestApp(t)

	b1, err := app.Bridge()
	if err != nil {
		t.Fatalf("Bridge() failed: %v", err)
	}
	b2, _ := app.Bridge()
	if b1 != b2 {
		t.Error("Bridge() returned different instances")
	}
}

func TestApp_Bridge_Unconfigured(t *testing.T) {
	t.Setenv("BRIDGE_URL", "")
	app := newTestApp(t)

	_, err := app.Bridge()
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Bridge() error = %v, want *ConfigError", err)
	}
	if _, err := app.NewSession(""); err == nil {
		t.Error("NewSession() without a bridge succeeded")
	}
}

func TestApp_NewSession(t *testing.T) {
	fake := bridgetest.New().
		Respond("placement.info", map[string]any{"ID": "6443"}).
		Respond("crm.deal.get", map[string]any{"OPPORTUNITY": "1200", "UF_CRM_PRICE_RATE": "10"})
	app := newTestApp(t, WithBridge(fake))

	s, err := app.NewSession(kinds.DefaultKind, recordsync.WithID("page-1"))
	if err != nil {
		t.Fatalf("NewSession() failed: %v", err)
	}
	if s.ID() != "page-1" {
		t.Errorf("ID() = %q, want page-1", s.ID())
	}
	if err := s.Start(context.Background(), identity.Env{}); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if s.State() != recordsync.StateReady {
		t.Errorf("State() = %s, want ready", s.State())
	}
}

func TestApp_Execute(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{LogOutput: "discard"}))

	var out bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "-o", "json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, out.String())
	}
	if info["version"] != "1.0.0" {
		t.Errorf("version = %q, want 1.0.0", info["version"])
	}
}

func TestApp_Execute_BadFormat(t *testing.T) {
	app := newTestApp(t, WithConfig(&Config{LogOutput: "discard"}))
	if err := app.Execute(context.Background(), []string{"kinds", "-o", "xml"}); err == nil {
		t.Error("Execute() with -o xml succeeded")
	}
}
