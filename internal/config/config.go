// Package config provides YAML-based configuration loading for Vibeyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Task names accepted in models[].tasks.
const (
	TaskCodeGeneration    = "code_generation"
	TaskPreviewGeneration = "preview_generation"
	TaskReportGeneration  = "report_generation"
)

// Derivations the worker can run per submitted version.
const (
	DerivePreview = "preview"
	DeriveReport  = "report"
)

// Config is the top-level Vibeyard configuration, loaded from vibeyard.yaml.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Generation GenerationConfig `yaml:"generation"`
	Worker     WorkerConfig     `yaml:"worker"`
	Settings   SettingsConfig   `yaml:"settings"`
	Models     []ModelConfig    `yaml:"models"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// ConnectTimeout bounds the startup retry loop.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig selects the zap preset.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// GenerationConfig holds model-call settings shared by the API and worker.
type GenerationConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Language string        `yaml:"language"`
}

// WorkerConfig controls the derived-artifact worker loop.
type WorkerConfig struct {
	Enabled         *bool         `yaml:"enabled"`
	BusyInterval    time.Duration `yaml:"busy_interval"`
	IdleInterval    time.Duration `yaml:"idle_interval"`
	ErrorInterval   time.Duration `yaml:"error_interval"`
	StaleAfter      time.Duration `yaml:"stale_after"`
	ReclaimSchedule string        `yaml:"reclaim_schedule"`
	Derive          []string      `yaml:"derive"`
}

// SettingsConfig seeds the settings table on db init.
type SettingsConfig struct {
	AutoPublishOnApproval       bool `yaml:"auto_publish_on_approval"`
	RequireReportBeforeApproval bool `yaml:"require_report_before_approval"`
}

// ModelConfig seeds one AIModelConfig row.
type ModelConfig struct {
	Name        string   `yaml:"name"`
	APIKey      string   `yaml:"api_key"`
	ModelName   string   `yaml:"model_name"`
	EndpointURL string   `yaml:"endpoint_url"`
	Tasks       []string `yaml:"tasks"`
}

// NotifyConfig configures optional chat notifications.
type NotifyConfig struct {
	SlackWebhookURL string        `yaml:"slack_webhook_url"`
	Discord         DiscordConfig `yaml:"discord"`
}

// DiscordConfig holds bot credentials for Discord notifications.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// WorkerEnabled reports whether serve should run the in-process worker.
func (c *Config) WorkerEnabled() bool {
	return c.Worker.Enabled == nil || *c.Worker.Enabled
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references and unmarshals YAML bytes into a
// validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "vibeyard.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "vibeyard"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = 30 * time.Second
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8462
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 10 * time.Minute
	}
	if c.Generation.Language == "" {
		c.Generation.Language = "en"
	}
	if c.Worker.BusyInterval == 0 {
		c.Worker.BusyInterval = 10 * time.Second
	}
	if c.Worker.IdleInterval == 0 {
		c.Worker.IdleInterval = 30 * time.Second
	}
	if c.Worker.ErrorInterval == 0 {
		c.Worker.ErrorInterval = 60 * time.Second
	}
	if c.Worker.StaleAfter == 0 {
		c.Worker.StaleAfter = 30 * time.Minute
	}
	if c.Worker.ReclaimSchedule == "" {
		c.Worker.ReclaimSchedule = "*/5 * * * *"
	}
	if len(c.Worker.Derive) == 0 {
		c.Worker.Derive = []string{DerivePreview, DeriveReport}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	for i, d := range c.Worker.Derive {
		if d != DerivePreview && d != DeriveReport {
			errs = append(errs, fmt.Sprintf("worker.derive[%d] %q must be preview or report", i, d))
		}
	}
	if c.Worker.BusyInterval < 0 || c.Worker.IdleInterval < 0 || c.Worker.ErrorInterval < 0 {
		errs = append(errs, "worker intervals must be positive")
	}
	seen := make(map[string]bool)
	for i, m := range c.Models {
		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("models[%d].name is required", i))
		} else if seen[m.Name] {
			errs = append(errs, fmt.Sprintf("models[%d].name %q is duplicated", i, m.Name))
		}
		seen[m.Name] = true
		if m.EndpointURL == "" {
			errs = append(errs, fmt.Sprintf("models[%d].endpoint_url is required", i))
		}
		if m.ModelName == "" {
			errs = append(errs, fmt.Sprintf("models[%d].model_name is required", i))
		}
		for _, t := range m.Tasks {
			switch t {
			case TaskCodeGeneration, TaskPreviewGeneration, TaskReportGeneration:
			default:
				errs = append(errs, fmt.Sprintf("models[%d].tasks: unknown task %q", i, t))
			}
		}
	}
	if (c.Notify.Discord.BotToken == "") != (c.Notify.Discord.ChannelID == "") {
		errs = append(errs, "notify.discord requires both bot_token and channel_id")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
