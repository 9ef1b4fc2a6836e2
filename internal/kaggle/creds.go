package kaggle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"xau-data/internal/faults"
)

// Creds is the Kaggle API credential pair.
type Creds struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// LoadCreds resolves credentials from the environment (KAGGLE_USERNAME plus
// KAGGLE_KEY or the newer KAGGLE_API_TOKEN), falling back to an existing
// kaggle.json config file.
func LoadCreds() (Creds, error) {
	c := Creds{
		Username: os.Getenv("KAGGLE_USERNAME"),
		Key:      os.Getenv("KAGGLE_KEY"),
	}
	if c.Key == "" {
		c.Key = os.Getenv("KAGGLE_API_TOKEN")
	}
	if c.Username != "" && c.Key != "" {
		return c, nil
	}
	for _, path := range configPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &c); err == nil && c.Username != "" && c.Key != "" {
			return c, nil
		}
	}
	return c, faults.Preconditionf("no Kaggle credentials: set KAGGLE_USERNAME and KAGGLE_KEY (or KAGGLE_API_TOKEN)")
}

// EnsureConfigFile writes kaggle.json (mode 0600) to the standard config path
// when neither the standard nor the legacy location has one. Some client
// tooling only picks credentials up from that file. Returns the path written,
// or "" when a file already existed.
func EnsureConfigFile(c Creds) (string, error) {
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			return "", nil
		}
	}
	path := configPaths()[0]
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// configPaths returns the standard then legacy kaggle.json locations.
func configPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return []string{
		filepath.Join(home, ".config", "kaggle", "kaggle.json"),
		filepath.Join(home, ".kaggle", "kaggle.json"),
	}
}
