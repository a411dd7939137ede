package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Remote() {
		t.Fatalf("Remote() = true, want local store by default (APIBind %q)", cfg.APIBind)
	}
	if cfg.ListenBind != defaultListenBind {
		t.Fatalf("ListenBind = %q, want %q", cfg.ListenBind, defaultListenBind)
	}

	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if !strings.HasPrefix(cfg.DBPath, home) {
		t.Fatalf("DBPath = %q, want it under HOME %q", cfg.DBPath, home)
	}
	if cfg.LogLevel != zapcore.InfoLevel {
		t.Fatalf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.RefreshInterval() != 0 {
		t.Fatalf("RefreshInterval = %v, want disabled", cfg.RefreshInterval())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_bind = "  10.0.0.5:9999  "
listen_bind = " 0.0.0.0:8000 "
db_path = "  ~/boats.db  "
log_dir = "  ~/.marina/logs  "
log_level = " debug "
metrics_bind = " 127.0.0.1:9489 "
bridge_bind = "127.0.0.1:7490"
refresh_seconds = 15
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "10.0.0.5:9999" || !cfg.Remote() {
		t.Fatalf("APIBind = %q, want %q", cfg.APIBind, "10.0.0.5:9999")
	}
	if cfg.ListenBind != "0.0.0.0:8000" {
		t.Fatalf("ListenBind = %q, want 0.0.0.0:8000", cfg.ListenBind)
	}
	if cfg.DBPath != filepath.Join(home, "boats.db") {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, filepath.Join(home, "boats.db"))
	}
	if !strings.HasPrefix(cfg.LogDir, home) {
		t.Fatalf("LogDir = %q, want it under HOME %q", cfg.LogDir, home)
	}
	if cfg.LogPath() != filepath.Join(cfg.LogDir, "marina.log") {
		t.Fatalf("LogPath = %q, want marina.log under LogDir", cfg.LogPath())
	}
	if cfg.LogLevel != zapcore.DebugLevel {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.MetricsBind != "127.0.0.1:9489" || cfg.BridgeBind != "127.0.0.1:7490" {
		t.Fatalf("MetricsBind = %q BridgeBind = %q, want trimmed binds", cfg.MetricsBind, cfg.BridgeBind)
	}
	if cfg.RefreshInterval() != 15*time.Second {
		t.Fatalf("RefreshInterval = %v, want 15s", cfg.RefreshInterval())
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_bind = "   "
log_dir = ""
log_level = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBind != "" {
		t.Fatalf("APIBind = %q, want empty", cfg.APIBind)
	}
	wantLogDir, err := expandPath(defaultLogDir)
	if err != nil {
		t.Fatalf("expandPath(defaultLogDir) returned error: %v", err)
	}
	if cfg.LogDir != wantLogDir {
		t.Fatalf("LogDir = %q, want %q", cfg.LogDir, wantLogDir)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("LogLevel = %v, want %v", cfg.LogLevel, defaultLogLevel)
	}
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"toml", `api_bind = [`, "parse config"},
		{"log level", `log_level = "chatty"`, "log_level"},
		{"refresh", `refresh_seconds = -5`, "refresh_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load returned nil error, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestLogPath_DefaultsWhenLogDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/marina.log")) {
		t.Fatalf("LogPath = %q, want it to end with /marina.log", got)
	}
}
