package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateQA(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkRoot) == "" {
		return errors.New("paths.work_root must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if !c.Generation.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Generation.BaseURL) == "" {
		return errors.New("generation.base_url must be set when generation.enabled is true")
	}
	if strings.TrimSpace(c.Generation.APIKey) == "" {
		return errors.New("generation.api_key must be set when generation.enabled is true (or set REMAKE_GENERATION_API_KEY)")
	}
	return nil
}

func (c *Config) validateQA() error {
	if c.QA.MinScore < 0 || c.QA.MinScore > 100 {
		return errors.New("qa.min_score must be between 0 and 100")
	}
	if c.QA.DurationTolerancePct < 0 || c.QA.DurationTolerancePct > 100 {
		return errors.New("qa.duration_tolerance_pct must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
