package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gosuda/deepwiki-chat/backend"
	"github.com/gosuda/deepwiki-chat/utils"
)

const (
	transportWS   = "ws"
	transportHTTP = "http"
)

// AskDefaults are applied to every ask unless a flag overrides them.
type AskDefaults struct {
	RepoType      string   `yaml:"repo_type"`
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	Language      string   `yaml:"language"`
	ExcludedDirs  []string `yaml:"excluded_dirs"`
	ExcludedFiles []string `yaml:"excluded_files"`
	IncludedDirs  []string `yaml:"included_dirs"`
	IncludedFiles []string `yaml:"included_files"`
}

type CLIConfig struct {
	ServerURL string        `yaml:"server_url"`
	Transport string        `yaml:"transport"`
	Timeout   time.Duration `yaml:"timeout"`
	Ask       AskDefaults   `yaml:"ask"`
}

// LoadConfig builds the CLI configuration from the environment and, when
// path is set, a YAML file whose values take precedence.
func LoadConfig(path string) (*CLIConfig, error) {
	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Transport == "" {
		cfg.Transport = transportWS
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = backend.DefaultTimeout
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFromEnv() (*CLIConfig, error) {
	cfg := &CLIConfig{
		ServerURL: os.Getenv("SERVER_BASE_URL"),
		Transport: os.Getenv("DEEPWIKI_TRANSPORT"),
		Ask: AskDefaults{
			Provider:      os.Getenv("DEEPWIKI_PROVIDER"),
			Model:         os.Getenv("DEEPWIKI_MODEL"),
			Language:      os.Getenv("DEEPWIKI_LANGUAGE"),
			ExcludedDirs:  utils.ParseList(os.Getenv("DEEPWIKI_EXCLUDED_DIRS")),
			ExcludedFiles: utils.ParseList(os.Getenv("DEEPWIKI_EXCLUDED_FILES")),
		},
	}

	if raw := strings.TrimSpace(os.Getenv("DEEPWIKI_API_TIMEOUT")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("DEEPWIKI_API_TIMEOUT must be a positive integer (seconds), got %q", raw)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

func (cfg *CLIConfig) validate() error {
	var errs []string

	switch cfg.Transport {
	case transportWS, transportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("transport: must be %q or %q, got %q", transportWS, transportHTTP, cfg.Transport))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, "timeout: cannot be negative")
	}
	if s := strings.TrimSpace(cfg.ServerURL); s != "" {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("server_url: %q is not an absolute URL", s))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n - %s", strings.Join(errs, "\n - "))
	}
	return nil
}
