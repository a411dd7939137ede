// Package config loads marina's TOML configuration file.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/marina/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or blank, use defaults
//
// # TOML Format
//
//	api_bind = ""                       # remote boat API; empty = local sqlite store
//	listen_bind = "127.0.0.1:7489"      # address for `marina serve`
//	db_path = "~/.local/share/marina/marina.db"
//	log_dir = "~/.local/share/marina/logs"
//	log_level = "info"
//	metrics_bind = "127.0.0.1:9489"     # empty = no /metrics endpoint
//	bridge_bind = "127.0.0.1:7490"      # empty = no websocket selection bridge
//	refresh_seconds = 30                # 0 = no auto refresh
//
// Every value is trimmed. Paths get tilde expansion and are made absolute.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, TOML parse errors, an unknown log_level and a negative
// refresh_seconds. A missing file is not an error.
package config
