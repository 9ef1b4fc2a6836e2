package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"xau-data/internal/descriptor"
	"xau-data/internal/faults"
	"xau-data/internal/kaggle"
	"xau-data/internal/merge"
	"xau-data/internal/model"
	"xau-data/internal/publish"
	"xau-data/internal/saver"
	"xau-data/internal/snapshot"
	"xau-data/internal/source"
)

// Step names the stages of one update run.
type Step string

const (
	StepPrepare          Step = "PREPARE"
	StepFetchBaseline    Step = "FETCH_BASELINE"
	StepAcquireIncrement Step = "ACQUIRE_INCREMENT"
	StepMerge            Step = "MERGE"
	StepAttachDescriptor Step = "ATTACH_DESCRIPTOR"
	StepPublish          Step = "PUBLISH"
	StepDone             Step = "DONE"
	StepAborted          Step = "ABORTED"
)

// Downloader fetches the published baseline dataset into a directory.
// Satisfied by *kaggle.Client.
type Downloader interface {
	DownloadDataset(ctx context.Context, slug, destDir string) error
}

// metadataFetcher is the optional Downloader extension for pulling the
// dataset descriptor separately from the data bundle.
type metadataFetcher interface {
	DownloadMetadata(ctx context.Context, slug, destDir string) error
}

// Runner executes one linear update run:
// PREPARE → FETCH_BASELINE → ACQUIRE_INCREMENT → MERGE → ATTACH_DESCRIPTOR →
// PUBLISH → DONE, aborting on unrecoverable failure.
type Runner struct {
	Cfg        *Config
	Fetcher    source.Fetcher
	Publisher  publish.Publisher
	Downloader Downloader
	Creds      kaggle.Creds
	Log        *slog.Logger
}

// Run performs one update. A nil return covers both "published" and "nothing
// to do"; any error means the run reached ABORTED.
func (r *Runner) Run(ctx context.Context) error {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run", uuid.NewString()[:8])
	log.Info("starting updater", "source", r.Fetcher.Name(), "dataset", r.Cfg.DatasetSlug)

	// PREPARE: the merged dir is exclusively owned by this run, clear it.
	log.Info("step", "step", StepPrepare)
	if err := os.RemoveAll(r.Cfg.MergedDir); err != nil {
		return r.abort(log, StepPrepare, err)
	}
	if err := os.MkdirAll(r.Cfg.MergedDir, 0755); err != nil {
		return r.abort(log, StepPrepare, err)
	}
	if err := os.MkdirAll(r.Cfg.DataDir, 0755); err != nil {
		return r.abort(log, StepPrepare, err)
	}
	if path, err := kaggle.EnsureConfigFile(r.Creds); err != nil {
		log.Warn("cannot provision kaggle config file", "error", err)
	} else if path != "" {
		log.Info("wrote kaggle config", "path", path)
	}

	// FETCH_BASELINE: download failure degrades to stale-baseline mode when a
	// usable local snapshot exists.
	log.Info("step", "step", StepFetchBaseline)
	stale := false
	if err := r.Downloader.DownloadDataset(ctx, r.Cfg.DatasetSlug, r.Cfg.DataDir); err != nil {
		log.Warn("baseline download failed, checking local data", "error", err)
		stale = true
	}
	targetName, err := resolveTargetFile(r.Cfg.DataDir, r.Cfg.TargetFile)
	if err != nil {
		if stale {
			return r.abort(log, StepFetchBaseline,
				faults.Preconditionf("baseline download failed and no local snapshot in %s", r.Cfg.DataDir))
		}
		return r.abort(log, StepFetchBaseline, err)
	}
	if stale {
		log.Info("running in stale-baseline mode", "file", targetName)
	}
	baselinePath := filepath.Join(r.Cfg.DataDir, targetName)

	existing, err := snapshot.Read(baselinePath)
	if err != nil && !errors.Is(err, faults.ErrNoSnapshot) {
		return r.abort(log, StepFetchBaseline, err)
	}
	hwm := merge.HighWaterMark(existing)
	log.Info("baseline loaded", "file", targetName, "rows", len(existing), "last", formatMark(hwm))

	// ACQUIRE_INCREMENT: nothing new short-circuits to DONE.
	log.Info("step", "step", StepAcquireIncrement)
	incoming, err := r.Fetcher.FetchSince(ctx, hwm)
	if err != nil {
		return r.abort(log, StepAcquireIncrement, err)
	}
	if len(incoming) == 0 {
		log.Info("no new data, nothing to publish", "step", StepDone)
		return nil
	}
	warnInsanePrices(log, incoming)

	// MERGE
	log.Info("step", "step", StepMerge)
	res := merge.Merge(existing, incoming)
	if res.NoUpdate() {
		log.Info("no rows newer than high-water-mark, nothing to publish",
			"fetched", len(incoming), "last", formatMark(res.HighWaterMark), "step", StepDone)
		return nil
	}
	mergedPath := filepath.Join(r.Cfg.MergedDir, targetName)
	if err := saver.SaveAtomic(saver.CSVSaver{}, res.Bars, mergedPath); err != nil {
		return r.abort(log, StepMerge, err)
	}
	log.Info("merged snapshot written", "path", mergedPath, "rows", len(res.Bars), "appended", res.Appended)
	if err := r.writeMirror(log, res.Bars, mergedPath); err != nil {
		return r.abort(log, StepMerge, err)
	}

	// ATTACH_DESCRIPTOR: when the baseline bundle carried no descriptor, try
	// the metadata endpoint before synthesizing a default.
	log.Info("step", "step", StepAttachDescriptor)
	if _, err := descriptor.Load(r.Cfg.DataDir); err != nil {
		if mf, ok := r.Downloader.(metadataFetcher); ok {
			if err := mf.DownloadMetadata(ctx, r.Cfg.DatasetSlug, r.Cfg.DataDir); err != nil {
				log.Warn("cannot fetch dataset metadata, synthesizing descriptor", "error", err)
			}
		}
	}
	d, err := descriptor.Ensure(r.Cfg.DataDir, r.Cfg.MergedDir, r.Cfg.DatasetSlug, r.Cfg.DatasetTitle)
	if err != nil {
		return r.abort(log, StepAttachDescriptor, err)
	}

	// PUBLISH
	note := "Auto-update: " + time.Now().Format("2006-01-02 15:04")
	log.Info("step", "step", StepPublish, "target", r.Publisher.Name(), "note", note)
	if err := r.Publisher.Publish(ctx, r.Cfg.MergedDir, d, note); err != nil {
		return r.abort(log, StepPublish, err)
	}

	log.Info("upload complete", "step", StepDone, "appended", res.Appended, "rows", len(res.Bars))
	return nil
}

func (r *Runner) abort(log *slog.Logger, step Step, err error) error {
	log.Error("run aborted", "step", StepAborted, "failed_step", step, "error", err)
	return fmt.Errorf("%s: %w", step, err)
}

// writeMirror writes the optional extra snapshot copy (parquet or json) next
// to the canonical CSV.
func (r *Runner) writeMirror(log *slog.Logger, bars []model.Bar, csvPath string) error {
	if r.Cfg.MirrorFmt == "" || strings.EqualFold(r.Cfg.MirrorFmt, "csv") {
		return nil
	}
	s := saver.New(r.Cfg.MirrorFmt)
	if s == nil {
		log.Warn("unsupported MIRROR_FORMAT, skipping mirror", "format", r.Cfg.MirrorFmt)
		return nil
	}
	path := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + "." + s.Extension()
	if err := saver.SaveAtomic(s, bars, path); err != nil {
		return err
	}
	log.Info("mirror snapshot written", "path", path, "format", s.Extension())
	return nil
}

// resolveTargetFile finds the snapshot file inside dir: the configured name
// when present, else the only CSV, else one whose name contains "1m", else
// the first CSV.
func resolveTargetFile(dir, configured string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, configured)); err == nil {
		return configured, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	var csvs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			csvs = append(csvs, e.Name())
		}
	}
	switch {
	case len(csvs) == 0:
		return "", fmt.Errorf("%s: %w", dir, faults.ErrNoSnapshot)
	case len(csvs) == 1:
		return csvs[0], nil
	}
	for _, name := range csvs {
		if strings.Contains(name, "1m") {
			return name, nil
		}
	}
	return csvs[0], nil
}

// warnInsanePrices flags bars violating low <= open,close <= high. Data
// quality warning only.
func warnInsanePrices(log *slog.Logger, bars []model.Bar) {
	bad := 0
	for _, b := range bars {
		if !b.PriceSane() {
			bad++
			if bad <= 3 {
				log.Warn("bar violates OHLC bounds", "time", b.Time, "open", b.Open, "high", b.High, "low", b.Low, "close", b.Close)
			}
		}
	}
	if bad > 3 {
		log.Warn("more bars violate OHLC bounds", "total", bad)
	}
}

func formatMark(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.Format("2006-01-02 15:04")
}
