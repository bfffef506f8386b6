package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. A missing RAWG key is not an
// error: matching degrades to "no match" without it.
func (c *Config) Validate() error {
	if err := c.validateRAWG(); err != nil {
		return err
	}
	if err := c.validateCloud(); err != nil {
		return err
	}
	return nil
}

// MatchingEnabled reports whether title matching can reach the RAWG API.
func (c *Config) MatchingEnabled() bool {
	return strings.TrimSpace(c.RAWG.APIKey) != ""
}

func (c *Config) validateRAWG() error {
	if !strings.HasPrefix(c.RAWG.BaseURL, "http://") && !strings.HasPrefix(c.RAWG.BaseURL, "https://") {
		return fmt.Errorf("rawg.base_url must be an http(s) URL, got %q", c.RAWG.BaseURL)
	}
	if c.RAWG.TimeoutSeconds <= 0 {
		return errors.New("rawg.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateCloud() error {
	if !c.Cloud.Enabled {
		return nil
	}
	if c.Cloud.UserID == "" {
		return errors.New("cloud.user_id must be set when cloud.enabled is true (or set ORBIT_CLOUD_USER_ID)")
	}
	if strings.ContainsAny(c.Cloud.UserID, "/ ") {
		return errors.New("cloud.user_id must not contain slashes or spaces")
	}
	switch c.Cloud.Backend {
	case "s3":
		if c.Cloud.S3Bucket == "" {
			return errors.New("cloud.s3_bucket must be set when cloud.backend is \"s3\"")
		}
	case "postgres":
		if c.Cloud.PostgresDSN == "" {
			return errors.New("cloud.postgres_dsn must be set when cloud.backend is \"postgres\" (or set ORBIT_PG_DSN)")
		}
	default:
		return fmt.Errorf("cloud.backend: unsupported value %q (want \"s3\" or \"postgres\")", c.Cloud.Backend)
	}
	return nil
}
