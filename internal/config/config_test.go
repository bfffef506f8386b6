package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"orbit/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RAWG_API_KEY", "env-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "orbit")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.RAWG.APIKey != "env-key" {
		t.Fatalf("expected RAWG key from env, got %q", cfg.RAWG.APIKey)
	}
	if !cfg.MatchingEnabled() {
		t.Fatal("expected matching enabled with an API key")
	}
	if cfg.Cloud.Enabled {
		t.Fatal("expected cloud sync disabled by default")
	}
	if cfg.Cloud.PushDebounceMS != config.Default().Cloud.PushDebounceMS {
		t.Fatalf("unexpected debounce: %d", cfg.Cloud.PushDebounceMS)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.LibraryDBPath() != filepath.Join(wantData, "library.db") {
		t.Fatalf("unexpected library db path %q", cfg.LibraryDBPath())
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RAWG_API_KEY", "")
	os.Unsetenv("RAWG_API_KEY")
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RAWG_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("RAWG_API_KEY") })

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RAWG.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.RAWG.APIKey)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "orbit.toml")

	type payload struct {
		RAWG struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"rawg"`
		Cloud struct {
			Enabled  bool   `toml:"enabled"`
			Backend  string `toml:"backend"`
			UserID   string `toml:"user_id"`
			S3Bucket string `toml:"s3_bucket"`
		} `toml:"cloud"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.RAWG.APIKey = "abc123"
	custom.RAWG.BaseURL = "https://example.com/api/"
	custom.Cloud.Enabled = true
	custom.Cloud.Backend = " S3 "
	custom.Cloud.UserID = "player-one"
	custom.Cloud.S3Bucket = "orbit-sync"
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.RAWG.BaseURL != "https://example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.RAWG.BaseURL)
	}
	if cfg.Cloud.Backend != "s3" {
		t.Fatalf("expected normalized backend, got %q", cfg.Cloud.Backend)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if cfg.DocumentPath() != "users/player-one/library" {
		t.Fatalf("unexpected document path %q", cfg.DocumentPath())
	}
}

func TestValidateCloud(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"disabled", func(c *config.Config) {}, ""},
		{"missing user", func(c *config.Config) { c.Cloud.Enabled = true }, "cloud.user_id"},
		{"slash in user", func(c *config.Config) {
			c.Cloud.Enabled = true
			c.Cloud.UserID = "a/b"
		}, "slashes"},
		{"s3 without bucket", func(c *config.Config) {
			c.Cloud.Enabled = true
			c.Cloud.UserID = "u"
		}, "cloud.s3_bucket"},
		{"postgres without dsn", func(c *config.Config) {
			c.Cloud.Enabled = true
			c.Cloud.UserID = "u"
			c.Cloud.Backend = "postgres"
		}, "cloud.postgres_dsn"},
		{"unknown backend", func(c *config.Config) {
			c.Cloud.Enabled = true
			c.Cloud.UserID = "u"
			c.Cloud.Backend = "firebase"
		}, "unsupported"},
		{"postgres ok", func(c *config.Config) {
			c.Cloud.Enabled = true
			c.Cloud.UserID = "u"
			c.Cloud.Backend = "postgres"
			c.Cloud.PostgresDSN = "postgres://localhost/orbit"
		}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Matching.BatchDelayMS != 1000 {
		t.Fatalf("unexpected batch delay %d", cfg.Matching.BatchDelayMS)
	}
}
