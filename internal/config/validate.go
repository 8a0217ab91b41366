package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModels() error {
	parsed, err := url.Parse(c.Models.BaseURL)
	if err != nil {
		return fmt.Errorf("models.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("models.base_url must be an http(s) URL, got %q", c.Models.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("models.base_url must include a host")
	}
	if c.Models.DownloadTimeoutSeconds < 0 {
		return errors.New("models.download_timeout_seconds must not be negative")
	}
	if strings.ContainsAny(c.Models.Default, `/\`) {
		return fmt.Errorf("models.default must be a model name, not a path: %q", c.Models.Default)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensureNonNegativeMap(map[string]int{
		"pipeline.acquire_timeout_seconds":    c.Pipeline.AcquireTimeoutSeconds,
		"pipeline.transcode_timeout_seconds":  c.Pipeline.TranscodeTimeoutSeconds,
		"pipeline.transcribe_timeout_seconds": c.Pipeline.TranscribeTimeoutSeconds,
		"pipeline.encode_timeout_seconds":     c.Pipeline.EncodeTimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative (0 disables the timeout)", key)
		}
	}
	return nil
}
