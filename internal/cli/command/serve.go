package command

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/calderhale/keepsake-go/internal/config"
	"github.com/calderhale/keepsake-go/internal/infra/confloader"
	"github.com/calderhale/keepsake-go/internal/infra/shutdown"
	"github.com/calderhale/keepsake-go/internal/server/httpserver"
	"github.com/calderhale/keepsake-go/internal/telemetry/logger"
	"github.com/calderhale/keepsake-go/internal/telemetry/metric"
)

// shutdownTimeout bounds connection draining and engine teardown.
const shutdownTimeout = 15 * time.Second

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only diagnostics HTTP server over a saves directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overriding server.addr",
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	// The serve command is a long-running process, so it logs like one:
	// the configured level and format rather than the quiet CLI default.
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	if c.Bool("verbose") {
		logger.SetLevel("debug")
	}

	rt, err := assemble(cfg, engineOptions{journal: true}, log)
	if err != nil {
		return err
	}

	router, err := httpserver.NewRouter(&httpserver.RouterConfig{
		Engine:    rt.engine,
		Journal:   rt.journal,
		Metrics:   metric.Global(),
		Logger:    log,
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	})
	if err != nil {
		rt.Close()
		return err
	}
	srv := httpserver.New(cfg.Server.Addr, router)

	// Hooks run newest first: the server drains before the engine and
	// journal close under it.
	sh := shutdown.NewHandler(shutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		rt.Close()
		return nil
	})
	sh.OnShutdown(srv.Shutdown)

	if path := c.String("config"); path != "" {
		if err := watchLogLevel(path, log, sh); err != nil {
			log.Warn("config watch unavailable", "path", path, "error", err)
		}
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("diagnostics server listening",
			"addr", cfg.Server.Addr,
			"saves_dir", cfg.Saves.Dir,
			"history", rt.journal != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			listenErr <- err
			sh.Trigger()
		}
	}()

	if err := sh.Wait(); err != nil {
		return err
	}
	select {
	case err := <-listenErr:
		return err
	default:
		return nil
	}
}

// watchLogLevel applies log.level changes from the config file while
// the server runs. Other settings stay fixed until restart.
func watchLogLevel(path string, log *slog.Logger, sh *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}

	w.OnChange(func(changed string) {
		fresh, err := config.Load(changed)
		if err != nil {
			log.Warn("config reload failed", "path", changed, "error", err)
			return
		}
		logger.SetLevel(fresh.Log.Level)
		log.Info("log level applied", "level", fresh.Log.Level)
	})
	w.StartAsync()

	sh.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return nil
}
