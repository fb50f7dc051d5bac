// coachd is the conversational coaching service: an HTTP API and an
// optional Telegram surface over a shared turn-orchestration pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/sunnylabs/coachd/internal/config"
	"github.com/sunnylabs/coachd/internal/convo"
	"github.com/sunnylabs/coachd/internal/logger"
	"github.com/sunnylabs/coachd/internal/profile"
	"github.com/sunnylabs/coachd/internal/prompt"
	"github.com/sunnylabs/coachd/internal/router"
	"github.com/sunnylabs/coachd/internal/scheduler"
	"github.com/sunnylabs/coachd/internal/server"
	"github.com/sunnylabs/coachd/internal/speech"
	"github.com/sunnylabs/coachd/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	// A missing .env file is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Starting coachd", "addr", cfg.Server.Addr, "primary_model", cfg.AI.PrimaryModel)

	db, err := profile.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "error", err, "path", cfg.Database.Path)
		return 1
	}
	defer profile.CloseDB(db)

	store := profile.NewStore(db, log)

	openaiCaller := router.NewOpenAICaller(cfg.AI.APIKey, cfg.AI.BaseURL, log)
	callers := map[string]router.Caller{
		router.ProviderOpenAI: openaiCaller,
	}
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err := router.NewGeminiCaller(ctx, cfg.AI.GeminiAPIKey, log)
		if err != nil {
			log.Error("Failed to create Gemini client", "error", err)
			return 1
		}
		callers[router.ProviderGemini] = gemini
	}

	modelRouter := router.New(router.Config{
		PrimaryModel:  cfg.AI.PrimaryModel,
		FallbackModel: cfg.AI.FallbackModel,
		MaxTokens:     cfg.AI.MaxTokens,
		CallTimeout:   cfg.AI.CallTimeout,
	}, callers, log)

	composer := prompt.NewComposer(cfg.Prompt.Path, log)
	orch := convo.New(store, composer, modelRouter, log)

	speechSvc := speech.New(openaiCaller.Client(), speech.Config{
		TTSModel: cfg.Speech.TTSModel,
		STTModel: cfg.Speech.STTModel,
		VoiceEN:  cfg.Speech.VoiceEN,
		VoiceVI:  cfg.Speech.VoiceVI,
	}, log)

	sched, err := scheduler.New(log, cfg.Scheduler.MaintenanceCron, store)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	httpSrv := server.New(cfg.Server, log, orch, store, speechSvc)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpSrv.Run(gCtx)
	})

	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Telegram.Token, log, orch, store, speechSvc)
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return 1
		}
		g.Go(func() error {
			return tg.Run(gCtx)
		})
	}

	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Error("Scheduler shutdown failed", "error", err)
		}
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Service stopped due to error", "error", err)
		return 1
	}

	log.Info("Service stopped gracefully")
	return 0
}
