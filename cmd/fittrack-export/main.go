// Command fittrack-export dumps all training data as a single JSON
// document, suitable for backup or migration between drivers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/meltforce/fittrack/internal/config"
	"github.com/meltforce/fittrack/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	outPath := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	export, err := storage.ExportAll(ctx, store, time.Now())
	if err != nil {
		log.Error("export failed", "error", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Error("failed to create output file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		log.Error("failed to write export", "error", err)
		os.Exit(1)
	}

	log.Info("export complete",
		"templates", len(export.Templates),
		"sets", len(export.CompletedSets),
		"weight_entries", len(export.WeightHistory))
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return storage.NewPostgres(ctx, cfg.Database.DSN())
	default:
		return storage.NewSQLite(ctx, cfg.Database.Path)
	}
}
