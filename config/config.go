// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root of config.yaml.
type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		VectorizerPath string `yaml:"vectorizer_path"`
		ClassifierPath string `yaml:"classifier_path"`
		Watch          bool   `yaml:"watch"`
	} `yaml:"model"`
	Predict struct {
		CacheSize     int `yaml:"cache_size"`
		MaxTextLength int `yaml:"max_text_length"`
	} `yaml:"predict"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.Http.Port = 5000
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Model.VectorizerPath = "models/vectorizer.json"
	c.Model.ClassifierPath = "models/classifier.json"
	c.Predict.CacheSize = 1024
	c.Predict.MaxTextLength = 100000
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return c
}

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := Default()
	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("NEWSCHECK_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NEWSCHECK_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v, ok := lookup("NEWSCHECK_VECTORIZER_PATH"); ok {
		c.Model.VectorizerPath = v
	}
	if v, ok := lookup("NEWSCHECK_CLASSIFIER_PATH"); ok {
		c.Model.ClassifierPath = v
	}
	if v, ok := lookup("NEWSCHECK_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.Http.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	if c.Model.VectorizerPath == "" || c.Model.ClassifierPath == "" {
		return errors.New("model.vectorizer_path and model.classifier_path are required")
	}
	if c.Predict.CacheSize < 0 {
		return errors.New("predict.cache_size must not be negative")
	}
	if c.Predict.MaxTextLength <= 0 {
		return errors.New("predict.max_text_length must be positive")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q must be console or json", c.Log.Format)
	}
	return nil
}
