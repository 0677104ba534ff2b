package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karashiiro/discord-llm-demobot/common/logger"
	"github.com/karashiiro/discord-llm-demobot/common/otel"
	"github.com/karashiiro/discord-llm-demobot/core/config"
	"github.com/karashiiro/discord-llm-demobot/internal/discord"
	httpapi "github.com/karashiiro/discord-llm-demobot/internal/http"
	"github.com/karashiiro/discord-llm-demobot/internal/llm"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)
	slog.Info("demobot starting", "env", cfg.Env, "model", cfg.LLM.Model)

	client, err := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		slog.Error("failed to create completion client", "error", err)
		os.Exit(1)
	}

	bot, err := discord.NewBot(cfg.Discord.Token, client, cfg.History.Limit)
	if err != nil {
		slog.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}
	if err := bot.Open(); err != nil {
		slog.Error("failed to connect to discord gateway", "error", err)
		os.Exit(1)
	}
	slog.Info("discord session opened")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(bot.Ready)
	go func() {
		slog.Info("probe server starting", "port", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			slog.Error("probe server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	if err := bot.Close(); err != nil {
		slog.Error("closing discord session", "error", err)
	}

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}

	slog.Info("shutdown complete")
}
