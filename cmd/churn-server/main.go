package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/churn-explainer/internal/api"
	"github.com/miradorstack/churn-explainer/internal/cache"
	"github.com/miradorstack/churn-explainer/internal/classifier"
	"github.com/miradorstack/churn-explainer/internal/config"
	"github.com/miradorstack/churn-explainer/internal/dataset"
	"github.com/miradorstack/churn-explainer/internal/engine"
	"github.com/miradorstack/churn-explainer/internal/explain"
	"github.com/miradorstack/churn-explainer/internal/metrics"
	"github.com/miradorstack/churn-explainer/internal/rest"
	"github.com/miradorstack/churn-explainer/internal/services"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("starting churn-explainer",
		slog.String("http", cfg.Server.HTTPAddress),
		slog.String("grpc", cfg.Server.GRPCAddress),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ds, err := dataset.Load(cfg.Data.Path)
	if err != nil {
		logger.Error("failed to load dataset", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("dataset loaded", slog.Int("customers", ds.Len()))

	sources := make([]classifier.Source, 0, len(cfg.Models.Artifacts))
	for _, a := range cfg.Models.Artifacts {
		sources = append(sources, classifier.Source{Name: a.Name, Label: a.Label, Path: a.Path})
	}
	registry, err := classifier.LoadRegistry(cfg.Models.Dir, sources, cfg.Models.Aggregate, logger)
	if err != nil {
		logger.Error("failed to load models", slog.Any("error", err))
		os.Exit(1)
	}

	importances, err := explain.LoadImportances(cfg.Explanation.ImportancesPath, logger)
	if err != nil {
		logger.Error("failed to load feature importances", slog.Any("error", err))
		os.Exit(1)
	}

	cacheProvider := cache.Open(cfg.Cache, logger)
	defer cacheProvider.Close()

	generator, err := explain.NewChatGenerator(explain.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to create chat client", slog.Any("error", err))
		os.Exit(1)
	}
	explainer := explain.NewExplainer(generator, explain.Options{
		Importances: importances,
		TopFeatures: cfg.Explanation.TopFeatures,
		Threshold:   cfg.Explanation.RiskThreshold,
		Model:       generator.Model(),
		Cache:       cacheProvider,
		CacheTTL:    cfg.Cache.TTL,
	}, logger)

	pipeline := engine.NewPipeline(logger, registry, ds, explainer, cfg.Explanation.RiskThreshold)
	predictionService := services.NewPredictionService(logger, pipeline, registry, ds)

	grpcServer, err := api.NewServer(cfg.Server, predictionService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := rest.NewEcho(rest.NewPredictionHandler(predictionService, logger))
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := e.Start(cfg.Server.HTTPAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := grpcServer.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}
	grpcServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("churn-explainer stopped", slog.Duration("p95_latency", predictionService.LatencyP95()))
}

