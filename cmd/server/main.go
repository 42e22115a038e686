package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/buildbio/internal/logging"
	"github.com/dmitrijs2005/buildbio/internal/server"
	"github.com/dmitrijs2005/buildbio/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	// a .env file is optional; it only seeds BUILDBIO_* variables
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
