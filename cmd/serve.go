package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
	"github.com/rubiojr/cardex/pkg/api"
	"github.com/rubiojr/cardex/pkg/config"
	"github.com/rubiojr/cardex/pkg/log"
	"github.com/rubiojr/cardex/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var serveLog = log.ForService("serve")

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web server with the search API and profile pages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides config)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if host := c.String("host"); host != "" {
				cfg.Server.Host = host
			}
			if port := c.Int("port"); port > 0 {
				cfg.Server.Port = port
			}
			return serve(ctx, cfg, c.String("config"), c.Bool("debug"))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, configPath string, debugFlag bool) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	svc := search.NewService(store)
	svc.SetLimits(cfg.SearchLimits())

	var limiter *api.RateLimiter
	if cfg.RateLimit.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		defer func() {
			if err := rdb.Close(); err != nil {
				serveLog.Warnf("failed to close redis client: %v", err)
			}
		}()
		limiter = api.NewRateLimiter(api.NewRedisCounter(rdb), cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration)
		serveLog.Infof("Rate limiting search to %d requests per %s via %s",
			cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration, cfg.RateLimit.RedisAddr)
	}

	srv := api.NewServer(api.Options{
		Store:          store,
		Search:         svc,
		BaseURL:        cfg.Server.BaseURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		QueryTimeout:   cfg.Storage.QueryTimeout.Duration,
		Limiter:        limiter,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serveLog.Infof("Starting web server on http://%s", cfg.Addr())
		serveLog.Infof("  GET /search - Search page")
		serveLog.Infof("  GET /{country}/{username} - Public profile")
		serveLog.Infof("  GET /api/search - Search API")
		serveLog.Infof("  GET /api/search/ws - Search session (websocket)")
		serveLog.Infof("  GET /api/profiles/{country}/{username}[/vcard] - Profile API")
		serveLog.Infof("  GET /health, /ready, /metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		serveLog.Infof("Shutting down web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		reload := func() {
			if err := reloadSearchConfig(configPath, svc, debugFlag); err != nil {
				serveLog.Warnf("Failed to reload configuration: %v", err)
			}
		}
		return watchConfig(gctx, configPath, reload)
	})

	return g.Wait()
}

// reloadSearchConfig applies the parts of the configuration that can change
// without a restart: search limits and the debug flag.
func reloadSearchConfig(configPath string, svc *search.Service, debugFlag bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	svc.SetLimits(cfg.SearchLimits())
	log.SetGlobalDebug(debugFlag || cfg.Debug)
	l := svc.Limits()
	serveLog.Infof("Configuration reloaded: default_limit=%d max_limit=%d debug=%t", l.Default, l.Max, debugFlag || cfg.Debug)
	return nil
}

// watchConfig calls reload whenever configPath changes until ctx is done.
// Watch failures are logged and disable reloading.
func watchConfig(ctx context.Context, configPath string, reload func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		serveLog.Warnf("failed to create config file watcher: %v", err)
		return nil
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			serveLog.Warnf("failed to close config file watcher: %v", err)
		}
	}()

	if err := watcher.Add(configPath); err != nil {
		serveLog.Warnf("failed to watch config file %s: %v", configPath, err)
		return nil
	}
	serveLog.Infof("Watching config file for changes: %s", configPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			serveLog.Debugf("Config file changed: %s (event: %s)", event.Name, event.Op)

			// Editors often replace the file atomically, which drops the watch.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					serveLog.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					serveLog.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			serveLog.Warnf("Config file watcher error: %v", err)
		}
	}
}
