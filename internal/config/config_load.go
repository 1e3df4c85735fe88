package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Slack: SlackConfig{
			Mode:    "webhook",
			APIBase: "https://slack.com/api",
		},
		Provider: ProviderConfig{
			APIBase:   "https://api.openai.com/v1",
			Model:     "gpt-4.1",
			MaxTokens: 600,
		},
		Engine: EngineConfig{
			Cooldown:          "45s",
			MaxTurnsPerThread: 5,
			WorkingHours: WorkingHoursCfg{
				Cron:     "* 9-17 * * 1-5",
				Timezone: "America/Toronto",
			},
			Stagger: StaggerCfg{
				MinMs:    2000,
				MaxMs:    6000,
				JitterMs: 1000,
			},
			Revival: RevivalCfg{
				Every:        "5m",
				DormantAfter: "4h",
			},
			Escalation: EscalationCfg{
				Window: "30m",
				Sweep:  "1m",
			},
			CompleteTimeout: "60s",
			PostTimeout:     "15s",
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   "~/.talia/state.db",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			RateLimitRPM: 60,
		},
	}
}

// Load reads config from a JSON file, then overlays env vars.
// A missing file is not an error — env vars alone can configure the process.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.loadPersonaFile()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.loadPersonaFile()
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets are env-only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("TALIA_SLACK_BOT_TOKEN", &c.Slack.BotToken)
	envStr("TALIA_SLACK_APP_TOKEN", &c.Slack.AppToken)
	envStr("TALIA_SLACK_VERIFICATION_TOKEN", &c.Slack.VerificationToken)
	envStr("TALIA_OPENAI_API_KEY", &c.Provider.APIKey)
	envStr("TALIA_POSTGRES_DSN", &c.Store.PostgresDSN)

	envStr("TALIA_AGENT_NAME", &c.Agent.Name)
	envStr("TALIA_AGENT_USER_ID", &c.Agent.UserID)
	envStr("TALIA_FOUNDER_ID", &c.Agent.FounderID)
	envStr("TALIA_HOME_CHANNEL", &c.Agent.HomeChannel)
	envStr("TALIA_PERSONA_FILE", &c.Agent.PersonaFile)

	if v := os.Getenv("TALIA_KEYWORDS"); v != "" {
		parts := strings.Split(v, ",")
		kws := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				kws = append(kws, p)
			}
		}
		c.Agent.Keywords = kws
	}

	envStr("TALIA_SLACK_MODE", &c.Slack.Mode)
	envStr("TALIA_MODEL", &c.Provider.Model)
	envStr("TALIA_STORE_DRIVER", &c.Store.Driver)

	envStr("TALIA_HOST", &c.Server.Host)
	if v := os.Getenv("TALIA_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	// Socket mode needs no listener; auto-select it when only an app token is set.
	if c.Slack.Mode == "" {
		c.Slack.Mode = "webhook"
	}
	if c.Slack.AppToken != "" && os.Getenv("TALIA_SLACK_MODE") == "" && c.Slack.Mode == "webhook" && c.Slack.VerificationToken == "" {
		c.Slack.Mode = "socket"
	}
}

// loadPersonaFile reads Agent.PersonaFile into Agent.Persona when set.
func (c *Config) loadPersonaFile() error {
	if c.Agent.PersonaFile == "" {
		return nil
	}
	data, err := os.ReadFile(ExpandHome(c.Agent.PersonaFile))
	if err != nil {
		return fmt.Errorf("read persona file: %w", err)
	}
	c.Agent.Persona = string(data)
	return nil
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
