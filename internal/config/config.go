package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// RAWG contains configuration for the RAWG game database API.
type RAWG struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Matching contains configuration for automatic title matching.
type Matching struct {
	// BatchDelayMS is the pause between items when matching the whole library.
	BatchDelayMS int `toml:"batch_delay_ms"`
	// AutoMatchOnAdd runs a match immediately after a game is added.
	AutoMatchOnAdd bool `toml:"auto_match_on_add"`
	// AutoMatchIntervalMinutes schedules unmatched-game sweeps in `orbit watch`.
	// Zero disables the schedule.
	AutoMatchIntervalMinutes int `toml:"auto_match_interval_minutes"`
}

// Cloud contains configuration for library sync.
type Cloud struct {
	Enabled             bool   `toml:"enabled"`
	Backend             string `toml:"backend"` // "s3" or "postgres"
	UserID              string `toml:"user_id"`
	PushDebounceMS      int    `toml:"push_debounce_ms"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`

	S3Bucket          string `toml:"s3_bucket"`
	S3Region          string `toml:"s3_region"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`

	PostgresDSN string `toml:"postgres_dsn"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Orbit.
//
// Configuration sections by subsystem:
//   - Paths: library database and log locations
//   - RAWG: title search and detail API
//   - Matching: batch pacing and auto-match behaviour
//   - Cloud: remote document store selection and sync timing
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	RAWG     RAWG     `toml:"rawg"`
	Matching Matching `toml:"matching"`
	Cloud    Cloud    `toml:"cloud"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/orbit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory, when
// present, is loaded first so its variables can satisfy the environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("orbit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LibraryDBPath returns the SQLite database holding the local library.
func (c *Config) LibraryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

// LockPath returns the lock file guarding long-running processes.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "orbit.lock")
}

// DocumentPath returns the remote document path holding the user's library.
func (c *Config) DocumentPath() string {
	return "users/" + c.Cloud.UserID + "/library"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
