package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Defaults matching the production deployment. Overridable via env.
const (
	DefaultSlug       = "novandraanugrah/xauusd-gold-price-historical-data-2004present"
	DefaultTitle      = "XAUUSD Gold Price Historical Data 2004–Present"
	DefaultTargetFile = "XAU_1m_data.csv"
)

// Config holds application configuration from env.
type Config struct {
	Source       string // postgres | export
	Symbol       string
	DatasetSlug  string
	DatasetTitle string

	DataDir    string // downloaded baseline
	MergedDir  string // merge output, cleared each run
	TargetFile string // canonical snapshot file name inside the dataset
	MirrorFmt  string // optional extra copy of the snapshot: parquet | json

	LogLevel string // debug | info | warn | error
	LogFile  string

	DatabaseURL string

	ExportCmd     string
	ExportArgs    []string
	ExportPath    string
	ExportTimeout time.Duration
}

// LoadConfig reads config from environment.
func LoadConfig() *Config {
	cfg := &Config{
		Source:       getEnv("SOURCE", "postgres"),
		Symbol:       getEnv("SYMBOL", "XAUUSD"),
		DatasetSlug:  getEnv("DATASET_SLUG", DefaultSlug),
		DatasetTitle: getEnv("DATASET_TITLE", DefaultTitle),
		DataDir:      getEnv("DATA_DIR", "data"),
		MergedDir:    getEnv("MERGED_DIR", "merged_data"),
		TargetFile:   getEnv("TARGET_FILE", DefaultTargetFile),
		MirrorFmt:    os.Getenv("MIRROR_FORMAT"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", "kaggle_xau_upload.log"),
		ExportCmd:    os.Getenv("EXPORT_CMD"),
		ExportPath:   os.Getenv("EXPORT_PATH"),
	}
	cfg.DatabaseURL = databaseURL()
	cfg.ExportTimeout = time.Minute
	if v := os.Getenv("EXPORT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ExportTimeout = d
		}
	}
	return cfg
}

// TargetPath returns the baseline snapshot location inside DataDir.
func (c *Config) TargetPath() string {
	return filepath.Join(c.DataDir, c.TargetFile)
}

// MergedPath returns the merged snapshot location inside MergedDir.
func (c *Config) MergedPath() string {
	return filepath.Join(c.MergedDir, c.TargetFile)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// databaseURL uses DATABASE_URL directly, or composes one from the POSTGRES_*
// variables the source deployment exports.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host := getEnv("POSTGRES_HOST", "127.0.0.1")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "mydatabase")
	user := getEnv("POSTGRES_USER", "postgres")
	pass := getEnv("POSTGRES_PASSWORD", "password")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(user), url.QueryEscape(pass), host, port, db)
}
