// Package app is marina's composition root.
//
// # Run
//
// Run wires the grid TUI:
//
//  1. Load config (~/.config/marina/config.toml) and build the zap logger,
//     which writes to <log_dir>/marina.log so the terminal stays clean
//  2. Pick the record service: the remote boat API when api_bind is set,
//     otherwise the local sqlite catalog (migrated and seeded on first use)
//  3. Build the grid controller with a notifier that both logs and feeds the
//     UI toast line, the in-process selection bus and Prometheus observers
//  4. Optionally start the /metrics server (metrics_bind) and the websocket
//     selection bridge (bridge_bind)
//  5. Start the auto-refresh poller when refresh_seconds (or -refresh) is set
//  6. Search the last used filter key from prefs and run the bubbletea UI
//  7. On exit, store the final filter key back into prefs
//
// # Poller
//
// StartPoller calls Refresh on the controller every interval. Ticks that find
// the controller busy are skipped so an auto refresh never piles onto a
// search or save. Consecutive failures double the wait, capped at 30s; the
// first success resets it.
//
// # Serve
//
// Serve exposes the local catalog over HTTP (GET /api/boats,
// POST /api/boats/batch, GET /api/boat-types, GET /health) on listen_bind,
// logging to stderr. A second marina pointed at it with api_bind exercises
// the remote transport end to end.
package app
