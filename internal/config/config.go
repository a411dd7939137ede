package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
)

// Config holds the settings marina reads from config.toml.
type Config struct {
	// APIBind is the remote boat service. Empty means the local store.
	APIBind string
	// ListenBind is where `marina serve` exposes the boat API.
	ListenBind     string
	DBPath         string
	LogDir         string
	LogLevel       zapcore.Level
	MetricsBind    string
	BridgeBind     string
	RefreshSeconds int
}

const (
	defaultConfigPath = "~/.config/marina/config.toml"
	defaultDBPath     = "~/.local/share/marina/marina.db"
	defaultLogDir     = "~/.local/share/marina/logs"
	defaultListenBind = "127.0.0.1:7489"
	defaultLogLevel   = zapcore.InfoLevel
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ListenBind: defaultListenBind,
		DBPath:     mustExpand(defaultDBPath),
		LogDir:     mustExpand(defaultLogDir),
		LogLevel:   defaultLogLevel,
	}
}

// Load locates and parses the marina config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBind        string `toml:"api_bind"`
		ListenBind     string `toml:"listen_bind"`
		DBPath         string `toml:"db_path"`
		LogDir         string `toml:"log_dir"`
		LogLevel       string `toml:"log_level"`
		MetricsBind    string `toml:"metrics_bind"`
		BridgeBind     string `toml:"bridge_bind"`
		RefreshSeconds int    `toml:"refresh_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.APIBind = strings.TrimSpace(raw.APIBind)
	cfg.MetricsBind = strings.TrimSpace(raw.MetricsBind)
	cfg.BridgeBind = strings.TrimSpace(raw.BridgeBind)

	if v := strings.TrimSpace(raw.ListenBind); v != "" {
		cfg.ListenBind = v
	}
	if v := strings.TrimSpace(raw.DBPath); v != "" {
		cfg.DBPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		level, err := zapcore.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	if raw.RefreshSeconds < 0 {
		return Config{}, fmt.Errorf("parse config: refresh_seconds must not be negative, got %d", raw.RefreshSeconds)
	}
	cfg.RefreshSeconds = raw.RefreshSeconds

	return cfg, nil
}

// Remote reports whether the grid talks to a boat service over HTTP.
func (c Config) Remote() bool {
	return c.APIBind != ""
}

// RefreshInterval is the auto-refresh period; zero disables it.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// LogPath returns the path of the marina log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/marina.log")
	}
	return filepath.Join(c.LogDir, "marina.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
