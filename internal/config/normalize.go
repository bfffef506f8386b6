package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRAWG()
	c.normalizeMatching()
	c.normalizeCloud()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRAWG() {
	c.RAWG.APIKey = strings.TrimSpace(c.RAWG.APIKey)
	if c.RAWG.APIKey == "" {
		if value, ok := os.LookupEnv("RAWG_API_KEY"); ok {
			c.RAWG.APIKey = strings.TrimSpace(value)
		}
	}
	c.RAWG.BaseURL = strings.TrimRight(strings.TrimSpace(c.RAWG.BaseURL), "/")
	if c.RAWG.BaseURL == "" {
		c.RAWG.BaseURL = defaultRAWGBaseURL
	}
	if c.RAWG.TimeoutSeconds <= 0 {
		c.RAWG.TimeoutSeconds = defaultRAWGTimeoutSeconds
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.BatchDelayMS < 0 {
		c.Matching.BatchDelayMS = 0
	}
	if c.Matching.AutoMatchIntervalMinutes < 0 {
		c.Matching.AutoMatchIntervalMinutes = 0
	}
}

func (c *Config) normalizeCloud() {
	c.Cloud.Backend = strings.ToLower(strings.TrimSpace(c.Cloud.Backend))
	if c.Cloud.Backend == "" {
		c.Cloud.Backend = defaultCloudBackend
	}
	c.Cloud.UserID = strings.TrimSpace(c.Cloud.UserID)
	if c.Cloud.UserID == "" {
		if value, ok := os.LookupEnv("ORBIT_CLOUD_USER_ID"); ok {
			c.Cloud.UserID = strings.TrimSpace(value)
		}
	}
	if c.Cloud.PushDebounceMS <= 0 {
		c.Cloud.PushDebounceMS = defaultPushDebounceMS
	}
	if c.Cloud.PollIntervalSeconds <= 0 {
		c.Cloud.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	c.Cloud.S3Bucket = strings.TrimSpace(c.Cloud.S3Bucket)
	c.Cloud.S3Endpoint = strings.TrimSpace(c.Cloud.S3Endpoint)
	c.Cloud.S3Region = strings.TrimSpace(c.Cloud.S3Region)
	if c.Cloud.S3Region == "" {
		c.Cloud.S3Region = defaultS3Region
	}
	c.Cloud.S3AccessKeyID = strings.TrimSpace(c.Cloud.S3AccessKeyID)
	if c.Cloud.S3AccessKeyID == "" {
		if value, ok := os.LookupEnv("ORBIT_S3_ACCESS_KEY_ID"); ok {
			c.Cloud.S3AccessKeyID = strings.TrimSpace(value)
		}
	}
	c.Cloud.S3SecretAccessKey = strings.TrimSpace(c.Cloud.S3SecretAccessKey)
	if c.Cloud.S3SecretAccessKey == "" {
		if value, ok := os.LookupEnv("ORBIT_S3_SECRET_ACCESS_KEY"); ok {
			c.Cloud.S3SecretAccessKey = strings.TrimSpace(value)
		}
	}
	c.Cloud.PostgresDSN = strings.TrimSpace(c.Cloud.PostgresDSN)
	if c.Cloud.PostgresDSN == "" {
		if value, ok := os.LookupEnv("ORBIT_PG_DSN"); ok {
			c.Cloud.PostgresDSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
