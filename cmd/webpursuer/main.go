package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleister1102/webpursuer/internal/ai"
	"github.com/aleister1102/webpursuer/internal/classifier"
	"github.com/aleister1102/webpursuer/internal/config"
	"github.com/aleister1102/webpursuer/internal/datastore"
	"github.com/aleister1102/webpursuer/internal/extractor"
	"github.com/aleister1102/webpursuer/internal/limiter"
	"github.com/aleister1102/webpursuer/internal/logger"
	"github.com/aleister1102/webpursuer/internal/monitor"
	"github.com/aleister1102/webpursuer/internal/notifier"
	"github.com/aleister1102/webpursuer/internal/schedule"
)

func main() {
	flags := parseFlags()

	gCfg, err := config.LoadGlobalConfig(flags.configPath)
	if err != nil {
		log.Fatalf("[FATAL] Could not load configuration: %v", err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Could not initialize logger: %v", err)
	}
	zLogger.Info().Msg("WebPursuer starting")

	store, err := datastore.NewStore(gCfg.StorageConfig, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to open datastore")
	}
	defer func() {
		if err := store.Close(); err != nil {
			zLogger.Error().Err(err).Msg("Failed to close datastore")
		}
	}()

	loc := gCfg.Location()

	// Content source: headless browser when enabled, plain HTTP otherwise.
	var source monitor.ContentSource
	var browser *extractor.BrowserManager
	if gCfg.BrowserConfig.Enabled {
		browser = extractor.NewBrowserManager(gCfg.BrowserConfig, zLogger)
		if err := browser.Start(); err != nil {
			zLogger.Fatal().Err(err).Msg("Failed to start headless browser")
		}
		defer browser.Stop()
		source = extractor.NewContentExtractor(browser, gCfg.ExtractorConfig, zLogger)
	} else {
		zLogger.Warn().Msg("Headless browser disabled, falling back to static extraction (interactions unsupported)")
		source = extractor.NewStaticExtractor(&http.Client{Timeout: 30 * time.Second}, zLogger)
	}

	var aiClient *ai.Client
	if gCfg.AIConfig.Enabled {
		aiClient, err = ai.NewClient(gCfg.AIConfig, zLogger)
		if err != nil {
			zLogger.Fatal().Err(err).Msg("Failed to initialize AI client")
		}
		zLogger.Info().Str("model", gCfg.AIConfig.Model).Msg("AI client initialized")
	}

	// A nil *ai.Client must stay nil as an interface value.
	var aiCapability classifier.AICapability
	if aiClient != nil {
		aiCapability = aiClient
	}

	sink := notifier.NewWebhookNotifier(gCfg.NotificationConfig, zLogger, nil)
	changeClassifier := classifier.NewChangeClassifier(aiCapability, zLogger)
	orchestrator := monitor.NewCheckOrchestrator(source, changeClassifier, store, sink, zLogger)

	var reporter monitor.ReportRunner
	if gCfg.ReportConfig.Enabled && aiClient != nil {
		reporter = monitor.NewReporter(gCfg.ReportConfig, store, aiClient, sink, loc, zLogger)
	}

	guard := limiter.NewGuard(gCfg.LimiterConfig, zLogger)
	evaluator := schedule.NewEvaluator(loc)

	// Standing searches need the AI capability; without it they stay dormant.
	var searches monitor.SearchCycle
	if aiClient != nil {
		searches = monitor.NewSearchRunner(store, aiClient, sink, evaluator, zLogger)
	}

	service := monitor.NewService(gCfg.SchedulerConfig, store, evaluator, orchestrator, guard, searches, reporter, zLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	service.Start(ctx)

	sig := <-sigChan
	zLogger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()
	service.Stop()
	zLogger.Info().Msg("WebPursuer stopped")
}
