package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/openpmca/webinstaller/internal/logging"
	"github.com/openpmca/webinstaller/internal/market"
	"github.com/openpmca/webinstaller/internal/storecli"
)

func main() {

	ctx := context.Background()
	cfg := storecli.LoadConfig(os.Args[1:])

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	client := market.NewClient(cfg.MarketBaseURL, cfg.MarketRequestTimeout, logger)

	app := storecli.NewApp(cfg, client)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
