package testsupport

import (
	"path/filepath"
	"testing"

	"orbit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Cloud sync is disabled and matching has no inter-item delay.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.RAWG.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Matching.BatchDelayMS = 0
	cfgVal.Matching.AutoMatchIntervalMinutes = 0
	cfgVal.Cloud.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRAWG points the RAWG client at a test server.
func WithRAWG(key, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RAWG.APIKey = key
		b.cfg.RAWG.BaseURL = baseURL
	}
}

// WithCloudUser enables cloud sync for userID with a short push debounce.
func WithCloudUser(userID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cloud.Enabled = true
		b.cfg.Cloud.UserID = userID
		b.cfg.Cloud.PushDebounceMS = 20
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
