package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/sharedstore/internal/config"
	"github.com/vango-dev/sharedstore/internal/errors"
	"github.com/vango-dev/sharedstore/pkg/inspect"
	"github.com/vango-dev/sharedstore/pkg/store"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, modify func(*config.Config)) string {
	t.Helper()
	cfg := config.New()
	cfg.Metrics.Enabled = false
	cfg.Log.Level = "warn"
	if modify != nil {
		modify(cfg)
	}
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionShort(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version output = %q, want %q", out, version)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "config", "init", "--dir", dir)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", cfg.Name, filepath.Base(dir))
	}
	if v, ok := cfg.Store.Initial["clicked"]; !ok || v != false {
		t.Errorf("Store.Initial = %v", cfg.Store.Initial)
	}

	_, _, err = execute(t, "config", "init", "--dir", dir)
	if !errors.HasCode(err, errors.CodeConfigExists) {
		t.Fatalf("second init err = %v, want %s", err, errors.CodeConfigExists)
	}

	if _, _, err := execute(t, "config", "init", "--dir", dir, "--force"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	path := writeConfig(t, nil)
	if _, _, err := execute(t, "config", "validate", "--config", path); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := writeConfig(t, func(c *config.Config) { c.Store.ChangePolicy = "sometimes" })
	_, _, err := execute(t, "config", "validate", "--config", bad)
	if !errors.HasCode(err, errors.CodeConfigChangePolicy) {
		t.Fatalf("validate err = %v, want %s", err, errors.CodeConfigChangePolicy)
	}
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Name = "shown" })

	out, _, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("show output is not JSON: %v\n%s", err, out)
	}
	if decoded["name"] != "shown" {
		t.Errorf("name = %v", decoded["name"])
	}
}

func TestDemo(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) {
		c.Store.Initial = map[string]any{"clicked": false, "item": "book"}
	})

	out, errOut, err := execute(t, "demo", "--config", path)
	if err != nil {
		t.Fatalf("demo: %v\n%s", err, errOut)
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("demo output is not JSON: %v\n%s", err, out)
	}
	if state["clicked"] != true || state["item"] != "book" {
		t.Errorf("state = %v", state)
	}
	if !strings.Contains(errOut, "clicked=true") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestDemoMissingConfig(t *testing.T) {
	_, _, err := execute(t, "demo", "--config", filepath.Join(t.TempDir(), "nope.json"))
	if !errors.HasCode(err, errors.CodeConfigNotFound) {
		t.Fatalf("err = %v, want %s", err, errors.CodeConfigNotFound)
	}
}

func TestServeDisabledInspector(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Inspector.Enabled = false })

	_, _, err := execute(t, "serve", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "inspector is disabled") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "debug"

	logger, err := newLogger(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["store"] != cfg.Name {
		t.Errorf("record = %v", rec)
	}
}

func TestReportPanics(t *testing.T) {
	var errOut bytes.Buffer
	cfg := config.New()
	cfg.Metrics.Enabled = false

	s, err := newStore(context.Background(), cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), &errOut)
	if err != nil {
		t.Fatal(err)
	}
	s.SubscribeFunc(func(ev store.Event) {
		if !ev.Initial() {
			panic("boom")
		}
	})

	s.Set("a", 1)

	if !strings.Contains(errOut.String(), errors.CodeListenerPanic) {
		t.Errorf("panic report missing code:\n%s", errOut.String())
	}
	if !strings.HasSuffix(errOut.String(), "(set of a)\n") || strings.Count(errOut.String(), "\n") != 1 {
		t.Errorf("panic report should be one line naming the mutation:\n%s", errOut.String())
	}
	if v, _ := s.Get("a"); v != 1 {
		t.Errorf("a = %v, want 1", v)
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s := store.New(store.WithInitial(map[string]any{"x": 1}))
	insp := inspect.New(s, inspect.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, insp, logger)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not stop")
	}
	if s.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after shutdown", s.Subscribers())
	}
}

func TestErrorsList(t *testing.T) {
	out, _, err := execute(t, "errors")
	if err != nil {
		t.Fatal(err)
	}
	for _, code := range errors.GetAllCodes() {
		if !strings.Contains(out, code) {
			t.Errorf("errors output missing %s:\n%s", code, out)
		}
	}
}

func TestErrorsExplain(t *testing.T) {
	out, _, err := execute(t, "errors", "s004")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"S004: Invalid inspector port", "Category: config", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, _, err := execute(t, "errors", "S999"); err == nil {
		t.Error("expected an error for an unknown code")
	}
}

func TestJSONErrors(t *testing.T) {
	bad := writeConfig(t, func(c *config.Config) { c.Store.ChangePolicy = "sometimes" })

	cmd := rootCmd()
	cmd.SetArgs([]string{"--json-errors", "config", "validate", "--config", bad})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected validate to fail")
	}

	var buf bytes.Buffer
	printError(&buf, cmd, err)

	var decoded map[string]any
	if jerr := json.Unmarshal(buf.Bytes(), &decoded); jerr != nil {
		t.Fatalf("output is not JSON: %v\n%s", jerr, buf.String())
	}
	if decoded["category"] != "config" || decoded["message"] == "" {
		t.Errorf("decoded = %v", decoded)
	}

	// Without the flag the boxed format is used.
	plain := rootCmd()
	buf.Reset()
	printError(&buf, plain, err)
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("plain output = %q", buf.String())
	}
}

func TestMain(m *testing.M) {
	errors.DisableColors()
	os.Exit(m.Run())
}
