// Command canvas-host runs the widget layer's host surface: the
// cross-context broadcast bridge, canvas configuration delivery and
// metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/widget_layer/canvas"
	"github.com/R3E-Network/widget_layer/configstore"
	"github.com/R3E-Network/widget_layer/internal/config"
	"github.com/R3E-Network/widget_layer/internal/metrics"
	"github.com/R3E-Network/widget_layer/pkg/logger"
	"github.com/R3E-Network/widget_layer/platform/api"
	"github.com/R3E-Network/widget_layer/platform/bus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("canvas-host exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Host, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	pageBus := bus.New()
	broadcast := bus.NewBroadcast(rdb, pageBus, cfg.Channel, log)
	if err := broadcast.Start(ctx); err != nil {
		return err
	}
	defer broadcast.Close()
	log.Info("broadcast channel up", "channel", cfg.Channel, "channelID", broadcast.ChannelID())

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	collector := metrics.NewCollector()
	bridge := bus.NewBridge(broadcast, log)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	r.Handle("/bridge", bridge)
	r.Get("/canvas/{canvasID}/config", func(w http.ResponseWriter, req *http.Request) {
		doc, err := store.Canvas(req.Context(), chi.URLParam(req, "canvasID"))
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, configstore.ErrNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStore picks the canvas-config source: local Postgres when a DSN is
// configured, the backend otherwise.
func buildStore(ctx context.Context, cfg *config.Host) (canvas.ConfigSource, func(), error) {
	if cfg.PostgresDSN != "" {
		pg, err := configstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	}

	client := api.NewClient(api.Config{BaseURL: cfg.APIBaseURL})
	return configstore.NewHTTPStore(client, cfg.AppKey), func() {}, nil
}
