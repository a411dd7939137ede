package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/five82/marina/internal/binding"
	"github.com/five82/marina/internal/boatapi"
	"github.com/five82/marina/internal/bus"
	"github.com/five82/marina/internal/catalog"
	"github.com/five82/marina/internal/config"
	"github.com/five82/marina/internal/grid"
	"github.com/five82/marina/internal/logging"
	"github.com/five82/marina/internal/metrics"
	"github.com/five82/marina/internal/notify"
	"github.com/five82/marina/internal/prefs"
	"github.com/five82/marina/internal/records"
	"github.com/five82/marina/internal/save"
	"github.com/five82/marina/internal/selection"
	"github.com/five82/marina/internal/ui"
)

// Options configure the marina application.
type Options struct {
	ConfigPath   string
	PrefsPath    string // empty uses default ~/.config/marina/prefs.toml
	RefreshEvery int    // seconds; zero uses refresh_seconds from config
}

// recordService is the record transport behind the grid: the local sqlite
// catalog or the remote boat API.
type recordService interface {
	binding.Fetcher
	save.Persister
}

type backend struct {
	records   recordService
	boatTypes ui.BoatTypeLister
	close     func() error
}

// Run boots the grid TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogPath())
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Warn("close backend failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := ui.NewEvents()
	m := metrics.New()
	b := bus.New(logger.Named("bus"))

	ctrl := grid.New(grid.Options{
		Fetcher:        be.records,
		Persister:      be.records,
		Notifier:       notify.Multi{notify.Log{Logger: logger.Named("notify")}, events},
		Publisher:      b,
		Channel:        selection.BoatChannel,
		Logger:         logger.Named("grid"),
		FetchObserver:  m,
		CommitObserver: m,
	})
	defer ctrl.Close()

	defer m.WatchSignal(ctrl.Signal())()
	defer ctrl.Subscribe(events.Loading)()
	defer ctrl.OnResultChange(events.Result)()
	defer b.Subscribe(selection.BoatChannel, m.SelectionPublished)()

	if cfg.MetricsBind != "" {
		go func() {
			if err := metrics.NewServer(cfg.MetricsBind, m, logger.Named("metrics")).Run(ctx); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	if cfg.BridgeBind != "" {
		bridge := bus.NewBridge(logger.Named("bridge"))
		defer bridge.Close()
		defer bridge.Attach(b, selection.BoatChannel)()
		go func() {
			if err := serveHTTP(ctx, cfg.BridgeBind, bridge, logger.Named("bridge")); err != nil {
				logger.Warn("selection bridge stopped", zap.Error(err))
			}
		}()
	}

	interval := cfg.RefreshInterval()
	if opts.RefreshEvery > 0 {
		interval = time.Duration(opts.RefreshEvery) * time.Second
	}
	StartPoller(ctx, ctrl, interval, logger.Named("poller"))

	ctrl.Search(ctx, records.FilterKey(userPrefs.LastFilter))

	runErr := ui.Run(ui.Options{
		Context:   ctx,
		Grid:      ctrl,
		Events:    events,
		BoatTypes: be.boatTypes,
		Logger:    logger.Named("ui"),
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogPath(),
	})

	saveLastFilter(opts.PrefsPath, ctrl.FilterKey(), logger)
	return runErr
}

// Serve runs the boat API over the local catalog until ctx is cancelled.
func Serve(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	mux := http.NewServeMux()
	mux.Handle("/api/", boatapi.NewHandler(store, logger.Named("api")))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return serveHTTP(ctx, cfg.ListenBind, mux, logger.Named("http"))
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	if cfg.Remote() {
		client, err := boatapi.NewClient(cfg.APIBind)
		if err != nil {
			return backend{}, fmt.Errorf("init boat api client: %w", err)
		}
		logger.Info("using remote boat service", zap.String("api_bind", cfg.APIBind))
		return backend{
			records:   client,
			boatTypes: client.FetchBoatTypes,
			close:     func() error { return nil },
		}, nil
	}

	store, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return backend{}, err
	}
	return backend{
		records:   store,
		boatTypes: store.BoatTypes,
		close:     store.Close,
	}, nil
}

func openCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (*catalog.Store, error) {
	store, err := catalog.OpenStore(cfg.DBPath, logger.Named("catalog"))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := catalog.Seed(ctx, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info("using local catalog", zap.String("db_path", cfg.DBPath))
	return store, nil
}

func saveLastFilter(path string, key records.FilterKey, logger *zap.Logger) {
	p, _ := prefs.Load(path)
	if p.LastFilter == string(key) {
		return
	}
	p.LastFilter = string(key)
	if err := prefs.Save(path, p); err != nil {
		logger.Warn("save prefs failed", zap.Error(err))
	}
}

// serveHTTP serves handler on addr until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
