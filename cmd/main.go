package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	"ytnotes/internal/bot"
	"ytnotes/internal/config"
	"ytnotes/internal/database"
	"ytnotes/internal/notes"
	"ytnotes/internal/report"
	"ytnotes/internal/scheduler"
	"ytnotes/internal/session"
	"ytnotes/internal/summarizer"
	"ytnotes/internal/youtube"
)

func main() {
	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	sessions := session.NewStore(cfg.MaxSessions, cfg.SessionTTL)
	transcripts := youtube.NewTranscriptClient(cfg.TranscriptLanguage, log)
	notesService := notes.NewService(transcripts, initSummarizer(ctx, cfg, log), sessions, log)

	botInst, err := bot.New(
		cfg.Token,
		db,
		notesService,
		report.NewRenderer(cfg.PDFFontPath),
		cfg.AllowedUsers,
		log,
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers),
		"pdfFont", cfg.PDFFontPath != "")

	sched := scheduler.New(ctx, sessions, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.HourlyPruneSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.HourlyPruneSpec,
		"sessionTTL", cfg.SessionTTL.String(),
		"maxSessions", cfg.MaxSessions)

	go func() {
		botInst.Start(ctx)
	}()
	log.InfoContext(ctx, "Bot is started",
		"updateTimeoutSeconds", bot.BotUpdateTimeout)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initSummarizer(ctx context.Context, cfg config.Config, log *slog.Logger) summarizer.Summarizer {
	if cfg.Provider == config.ProviderOpenAI {
		log.InfoContext(ctx, "OpenAI summarizer is initialized",
			"provider", cfg.Provider,
			"model", cfg.OpenAIModel)

		return summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	log.InfoContext(ctx, "Gemini summarizer is initialized",
		"provider", cfg.Provider,
		"model", cfg.GeminiModel)

	return summarizer.NewGeminiSummarizer(cfg.GoogleAPIKey, cfg.GeminiModel)
}
