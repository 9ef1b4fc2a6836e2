package saver

import (
	"fmt"
	"os"
	"strings"

	"xau-data/internal/model"
)

// Saver persists one snapshot to a file. The orchestrator always writes the
// canonical CSV; other formats serve the optional mirror copy.
type Saver interface {
	Save(bars []model.Bar, path string) error
	Extension() string
}

// New creates the Saver for a format (csv, parquet, json).
// Returns nil if the format is not supported.
func New(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// SaveAtomic writes through a temp file and renames into place, so a failed
// save never leaves a truncated snapshot behind.
func SaveAtomic(s Saver, bars []model.Bar, path string) error {
	tmp := path + ".tmp"
	if err := s.Save(bars, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
