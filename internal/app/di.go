package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xau-data/internal/kaggle"
	"xau-data/internal/publish"
	"xau-data/internal/source"
)

// ProvideConfig loads config from environment (for Wire).
func ProvideConfig() *Config {
	return LoadConfig()
}

// ProvideCreds resolves Kaggle credentials (for Wire).
func ProvideCreds() (kaggle.Creds, error) {
	return kaggle.LoadCreds()
}

// ProvideKaggleClient builds the API client (for Wire).
func ProvideKaggleClient(creds kaggle.Creds) *kaggle.Client {
	return kaggle.NewClient(creds)
}

// ProvideFetcher creates the configured source fetcher (for Wire).
// Caller must call Close() when shutting down.
func ProvideFetcher(cfg *Config) (source.Fetcher, func(), error) {
	switch strings.ToLower(cfg.Source) {
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f, err := source.NewPostgresFetcher(ctx, cfg.DatabaseURL, cfg.Symbol)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	case "export":
		if cfg.ExportPath == "" {
			return nil, nil, fmt.Errorf("SOURCE=export requires EXPORT_PATH")
		}
		trigger := &source.CommandTrigger{
			Command: cfg.ExportCmd,
			Args:    cfg.ExportArgs,
			Path:    cfg.ExportPath,
			Timeout: cfg.ExportTimeout,
		}
		f := source.NewExportFetcher(trigger, cfg.ExportPath)
		return f, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source: %s. Options: postgres, export", cfg.Source)
	}
}

// ProvidePublisher builds the Kaggle publisher for the configured collection
// (for Wire).
func ProvidePublisher(cfg *Config, client *kaggle.Client) publish.Publisher {
	return publish.NewKaggle(client, cfg.DatasetSlug)
}

// ProvideRunner assembles the orchestrator (for Wire).
func ProvideRunner(cfg *Config, f source.Fetcher, p publish.Publisher, client *kaggle.Client, creds kaggle.Creds) *Runner {
	return &Runner{
		Cfg:        cfg,
		Fetcher:    f,
		Publisher:  p,
		Downloader: client,
		Creds:      creds,
	}
}
