// cmd/terrario/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/alerting"
	"github.com/alegjs044/Gecko-house-sub000/internal/api"
	"github.com/alegjs044/Gecko-house-sub000/internal/auth"
	"github.com/alegjs044/Gecko-house-sub000/internal/config"
	"github.com/alegjs044/Gecko-house-sub000/internal/envstate"
	"github.com/alegjs044/Gecko-house-sub000/internal/ingest"
	"github.com/alegjs044/Gecko-house-sub000/internal/mqtt"
	"github.com/alegjs044/Gecko-house-sub000/internal/realtime"
	"github.com/alegjs044/Gecko-house-sub000/internal/storage"
	"github.com/alegjs044/Gecko-house-sub000/internal/thresholds"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := config.LoadConfig(*configPath); err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}
	cfg := &config.AppConfig

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	db, err := storage.Connect(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	if err := storage.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("ensuring schema", zap.Error(err))
	}
	store := storage.NewStore(db, logger,
		cfg.Pipeline.RetentionCap, cfg.Pipeline.PruneBatch, cfg.Pipeline.PruneChance)

	// --- Realtime ---
	hub := realtime.NewHub(
		time.Duration(cfg.Pipeline.InactivityTimeoutSecs)*time.Second,
		time.Duration(cfg.Pipeline.DisconnectGraceSecs)*time.Second,
		logger,
	)

	// --- Ingestion pipeline ---
	state := envstate.New()
	table := thresholds.NewTable(cfg.Thresholds)
	evaluator := thresholds.NewEvaluator(table, state, logger)
	mailer := alerting.NewSMTPMailer(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	dispatcher := alerting.NewDispatcher(store, mailer, logger)
	pipeline := ingest.NewPipeline(
		state, evaluator,
		ingest.NewCriticalMemory(cfg.Pipeline.Epsilon),
		ingest.NewPendingBuffer(),
		store, dispatcher, hub, hub.Presence(), logger,
	)

	// --- MQTT ---
	broker := mqtt.NewClient(
		cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Username, cfg.MQTT.Password,
		cfg.MQTT.QOS, logger)
	if err := broker.Connect(); err != nil {
		logger.Fatal("connecting to mqtt broker", zap.Error(err))
	}
	defer broker.Close()
	hub.SetPublisher(broker.Publish)
	if err := broker.Subscribe(func(topic, payload string) {
		pipeline.HandleMessage(ctx, topic, payload)
	}); err != nil {
		logger.Fatal("subscribing", zap.Error(err))
	}

	// --- Periodic jobs ---
	// Each job logs its own failures; Recover keeps a panicking cycle
	// from killing the scheduler.
	scheduler := cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	flushSpec := fmt.Sprintf("*/%d * * * * *", cfg.Pipeline.FlushIntervalSecs)
	if _, err := scheduler.AddFunc(flushSpec, func() {
		pipeline.FlushPending(ctx)
	}); err != nil {
		logger.Fatal("scheduling buffer flush", zap.Error(err))
	}
	sweepSpec := fmt.Sprintf("*/%d * * * * *", cfg.Pipeline.SweepIntervalSecs)
	if _, err := scheduler.AddFunc(sweepSpec, hub.Presence().Sweep); err != nil {
		logger.Fatal("scheduling liveness sweep", zap.Error(err))
	}
	pruneSpec := fmt.Sprintf("0 */%d * * * *", cfg.Pipeline.PruneIntervalMins)
	if _, err := scheduler.AddFunc(pruneSpec, func() {
		store.PruneAll(ctx)
	}); err != nil {
		logger.Fatal("scheduling retention prune", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// --- HTTP server ---
	authManager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)
	handler := api.NewHandler(store, hub, authManager, cfg.Pipeline.HistoryLimit, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: api.SetupRouter(handler, authManager),
	}

	go func() {
		logger.Info("starting http server", zap.Int("port", cfg.Server.HTTPPort))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	logger.Info("stopped")
}
