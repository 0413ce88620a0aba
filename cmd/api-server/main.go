package main

import (
	"log/slog"
	"os"

	"portfolioanalytics/internal/app"
	"portfolioanalytics/internal/config"
	"portfolioanalytics/pkg/contracts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Starting "+app.AppName,
		slog.String("version", contracts.Version),
		slog.String("address", cfg.Server.Address()))

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
