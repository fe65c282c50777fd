package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/sentinel-sea/internal/api"
	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/ingestion"
	"github.com/mr1hm/sentinel-sea/internal/intake"
	"github.com/mr1hm/sentinel-sea/internal/logging"
	"github.com/mr1hm/sentinel-sea/internal/metrics"
	"github.com/mr1hm/sentinel-sea/internal/notify"
	"github.com/mr1hm/sentinel-sea/internal/postgrest"
	"github.com/mr1hm/sentinel-sea/internal/reference"
	"github.com/mr1hm/sentinel-sea/internal/report"
	"github.com/mr1hm/sentinel-sea/internal/repository"
	"github.com/mr1hm/sentinel-sea/internal/review"
	"github.com/mr1hm/sentinel-sea/internal/simulation"
	"github.com/mr1hm/sentinel-sea/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "mode", cfg.Mode())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingest is what the pollers write to; store is what analysts see.
	ingest, store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to initialize store: %v", err)
	}
	defer ingest.Close()

	index := geo.NewIndex(geo.DefaultMPAs())
	catalogue := reference.New(store, index, cfg.Cache.TTL)
	if err := catalogue.Refresh(ctx); err != nil {
		slog.Warn("error loading reference data, using built-in areas", "error", err)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		logging.Fatalf("Failed to register metrics: %v", err)
	}

	broadcaster := stream.NewBroadcaster()
	m.TrackSubscribers(broadcaster.SubscriberCount)

	feed := stream.NewFeed(cfg.FeedLimit())
	recent, err := store.ListDetections(ctx, repository.Filter{Limit: cfg.FeedLimit()})
	if err != nil {
		slog.Warn("error loading recent detections", "error", err)
	}
	feed.Reset(recent)

	var alerter ingestion.Alerter = notify.Nop{}
	var mqttClient mqtt.Client
	if cfg.MQTT.Enabled {
		a, client, err := notify.Dial(cfg.MQTT)
		if err != nil {
			slog.Warn("MQTT alerts disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			alerter, mqttClient = a, client
		}
	}

	mgr := ingestion.NewManager(cfg, ingest, broadcaster,
		ingestion.WithSources(ingestion.DefaultSources(cfg, ingest, time.Now().UTC())...),
		ingestion.WithIndex(index),
		ingestion.WithAlerter(alerter),
		ingestion.WithRecorder(m),
	)

	handler := api.NewHandler(api.Deps{
		Config:      cfg,
		Store:       store,
		Broadcaster: broadcaster,
		Feed:        feed,
		Ingestion:   mgr,
		Reviewer:    review.NewReviewer(store, broadcaster, m, review.WithWatcher(mgr)),
		Intake:      intake.New(store, index, broadcaster, intake.WithWatcher(mgr), intake.WithAlerter(alerter)),
		Catalogue:   catalogue,
		Reports:     report.NewGenerator(store, m),
	})

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Report-Total"},
		AllowCredentials: false,
	}))
	router.Use(m.Middleware())
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))
	router.GET("/metrics", gin.WrapH(m.Handler()))
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	err = serve(ctx, srv, mgr, broadcaster.Close,
		func(ctx context.Context) { feed.Run(ctx, broadcaster) },
		func(ctx context.Context) { catalogue.Run(ctx, cfg.Cache.TTL) },
	)
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	if err != nil {
		logging.Fatalf("%v", err)
	}
	slog.Info("shutdown complete")
}

type ingester interface {
	Start(ctx context.Context)
	Stop()
}

// serve runs srv, ingestion and the background loops until ctx is done or
// the listener fails. Ingestion and loops share the group context, so a
// listener failure stops them too. closeStreams runs before the server
// drains connections.
func serve(ctx context.Context, srv *http.Server, mgr ingester, closeStreams func(), loops ...func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)
	mgr.Start(gctx)
	for _, loop := range loops {
		g.Go(func() error {
			loop(gctx)
			return nil
		})
	}
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		mgr.Stop()
		closeStreams()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// openStore returns the store ingestion writes to and the store analysts
// use. They differ only in mock mode, where analyst writes are refused.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, repository.Store, error) {
	switch cfg.Mode() {
	case config.ModeHosted:
		client := postgrest.New(cfg.Backend.URL, cfg.Backend.Key, cfg.Backend.Timeout, nil)
		return client, client, nil

	case config.ModeSQLite:
		db, err := repository.NewSQLiteDB(cfg.DB.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil

	default:
		mem := repository.NewMemoryStore()
		seeded, err := ingestion.Seed(ctx, mem, simulation.NewGenerator(cfg.Mock.Seed), cfg.Mock.InitialCount, time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("seeded mock detections", "count", len(seeded))
		return mem, repository.ReadOnly(mem), nil
	}
}
