package echobot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/echobot/internal/echobot/config"
	"github.com/kiosk404/echobot/internal/echobot/service/adapter/console"
	confstore "github.com/kiosk404/echobot/internal/echobot/service/config"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
	"github.com/kiosk404/echobot/internal/echobot/service/plugin/builtin"
	"github.com/kiosk404/echobot/pkg/logger"
)

const (
	httpShutdownTimeout = 5 * time.Second
	appShutdownTimeout  = 15 * time.Second
)

type botServer struct {
	cfg   *config.Config
	store *confstore.Store
	app   *plugin.App

	status  *http.Server
	console *console.Driver
}

type preparedBotServer struct {
	*botServer
}

func createBotServer(ctx context.Context, cfg *config.Config) (*botServer, error) {
	store, err := confstore.Load(cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin config: %w", err)
	}

	builder := plugin.NewAppBuilder().WithConfig(store)

	// Built-in plugins are configured from the plugins.* options; the bridge
	// reads its own section from the config store during build.
	inTreeRegistry := builtin.NewInTreeRegistry(builtin.Options{
		Plugins: cfg.PluginOptions,
		Storage: cfg.StorageOptions,
		Metrics: cfg.MetricsOptions,
	})
	if err := inTreeRegistry.ApplyTo(builder); err != nil {
		return nil, fmt.Errorf("failed to register in-tree plugins: %w", err)
	}

	app, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build plugin application: %w", err)
	}
	logger.Info("[Echobot] plugin application built (%d plugins: %v)", len(app.Plugins()), app.PluginNames())

	return &botServer{cfg: cfg, store: store, app: app}, nil
}

func (s *botServer) PrepareRun() preparedBotServer {
	if s.cfg.ServerOptions.Enabled {
		gin.SetMode(s.cfg.ServerOptions.Mode)
		engine := gin.New()
		initRouter(engine, &routerDeps{
			app:       s.app,
			token:     s.cfg.ServerOptions.Token,
			profiling: s.cfg.ServerOptions.Profiling,
		})
		s.status = &http.Server{
			Addr:              s.cfg.ServerOptions.Address(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	if s.cfg.ConsoleOptions.Enabled {
		s.console = console.New(s.app, s.cfg.ConsoleOptions, os.Stdin, os.Stdout)
	}

	if s.cfg.ConfigFile != "" {
		err := s.store.Watch(func(e fsnotify.Event) {
			logger.Info("[Echobot] config file %s changed (%s); plugin changes apply on restart", e.Name, e.Op)
		})
		if err != nil {
			logger.Warn("[Echobot] cannot watch config file: %v", err)
		}
	}
	return preparedBotServer{s}
}

// Run starts the application and blocks until ctx is done or console input
// ends, then shuts everything down.
func (s preparedBotServer) Run(ctx context.Context) error {
	if err := s.app.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.status != nil {
		go func() {
			logger.Info("[Echobot] status server listening on %s", s.status.Addr)
			if err := s.status.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("[Echobot] status server: %v", err)
			}
		}()
	}

	consoleDone := make(chan struct{})
	if s.console != nil {
		go func() {
			defer close(consoleDone)
			if err := s.console.Run(ctx); err != nil {
				logger.Error("[Echobot] console: %v", err)
			}
			logger.Info("[Echobot] console input ended")
			cancel()
		}()
	} else {
		close(consoleDone)
	}

	<-ctx.Done()
	logger.Info("[Echobot] shutting down")
	<-consoleDone
	return s.shutdown()
}

func (s preparedBotServer) shutdown() error {
	var errs []error
	if s.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		if err := s.status.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("status server: %w", err))
		}
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), appShutdownTimeout)
	defer cancel()
	if err := s.app.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
