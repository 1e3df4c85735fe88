package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for one executive agent process.
type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Peers    PeersConfig    `json:"peers,omitempty"`
	Slack    SlackConfig    `json:"slack"`
	Provider ProviderConfig `json:"provider"`
	Engine   EngineConfig   `json:"engine"`
	Store    StoreConfig    `json:"store,omitempty"`
	Server   ServerConfig   `json:"server"`
}

// AgentConfig is the immutable identity of this agent instance.
type AgentConfig struct {
	Name        string   `json:"name"`         // e.g. "miles"
	UserID      string   `json:"user_id"`      // platform bot user ID, e.g. "U098LC9F659"
	FounderID   string   `json:"founder_id"`   // founder identity that bypasses gates
	HomeChannel string   `json:"home_channel"` // channel the revival loop posts into
	Persona     string   `json:"persona,omitempty"`      // inline persona prompt
	PersonaFile string   `json:"persona_file,omitempty"` // or: path to a prompt file (takes precedence)
	Keywords    []string `json:"keywords"`
}

// PeersConfig maps fellow executive agent names to their platform user IDs.
// Used by the escalation detector to recognize cross-domain debates and to
// select the single reporting participant.
type PeersConfig map[string]string

// SlackConfig configures the messaging-platform collaborator.
// Tokens are env-only (TALIA_SLACK_BOT_TOKEN, TALIA_SLACK_APP_TOKEN,
// TALIA_SLACK_VERIFICATION_TOKEN) and never persisted in config.json.
type SlackConfig struct {
	BotToken          string `json:"-"`
	AppToken          string `json:"-"`
	VerificationToken string `json:"-"`
	Mode              string `json:"mode,omitempty"`     // "webhook" (default) or "socket"
	APIBase           string `json:"api_base,omitempty"` // override for tests / proxies
}

// ProviderConfig configures the completion backend (OpenAI-compatible).
// The API key is env-only (TALIA_OPENAI_API_KEY).
type ProviderConfig struct {
	APIKey    string `json:"-"`
	APIBase   string `json:"api_base,omitempty"`
	Model     string `json:"model,omitempty"`      // default "gpt-4.1"
	MaxTokens int    `json:"max_tokens,omitempty"` // default 600
}

// EngineConfig tunes the response-admission engine. Durations are Go
// duration strings ("45s", "30m"); invalid values fall back to defaults.
type EngineConfig struct {
	Cooldown          string            `json:"cooldown,omitempty"`             // default "45s"
	MaxTurnsPerThread int               `json:"max_turns_per_thread,omitempty"` // default 5
	WorkingHours      WorkingHoursCfg   `json:"working_hours,omitempty"`
	Stagger           StaggerCfg        `json:"stagger,omitempty"`
	Revival           RevivalCfg        `json:"revival,omitempty"`
	Escalation        EscalationCfg     `json:"escalation,omitempty"`
	CompleteTimeout   string            `json:"complete_timeout,omitempty"` // default "60s"
	PostTimeout       string            `json:"post_timeout,omitempty"`     // default "15s"
}

// WorkingHoursCfg restricts non-founder replies to a time window. The window
// is a cron expression evaluated against wall-clock time in Timezone; the
// default covers Monday-Friday 09:00-17:59.
type WorkingHoursCfg struct {
	Cron     string `json:"cron,omitempty"`     // default "* 9-17 * * 1-5"
	Timezone string `json:"timezone,omitempty"` // IANA name, default "America/Toronto"
}

// StaggerCfg bounds the per-agent delay injected before composing a reply.
// The base delay is deterministic per agent name within [min, max]; jitter
// adds a small random component on top.
type StaggerCfg struct {
	MinMs    int `json:"min_ms,omitempty"`    // default 2000
	MaxMs    int `json:"max_ms,omitempty"`    // default 6000
	JitterMs int `json:"jitter_ms,omitempty"` // default 1000
}

// RevivalCfg controls the dormancy-revival background loop.
type RevivalCfg struct {
	Every        string `json:"every,omitempty"`         // tick interval, default "5m"; "0" disables
	DormantAfter string `json:"dormant_after,omitempty"` // default "4h"
	Prompt       string `json:"prompt,omitempty"`        // instruction appended to the persona for check-ins
}

// EscalationCfg controls the unresolved-decision detector.
type EscalationCfg struct {
	Window string `json:"window,omitempty"` // default "30m"
	Sweep  string `json:"sweep,omitempty"`  // detector tick interval, default "1m"
}

// StoreConfig selects the admission-state backend. "memory" keeps the
// original fresh-start-on-restart semantics; "sqlite" and "postgres" make
// cooldowns and turn counts survive restarts. The Postgres DSN is env-only
// (TALIA_POSTGRES_DSN).
type StoreConfig struct {
	Driver      string `json:"driver,omitempty"` // "memory" (default), "sqlite", "postgres"
	Path        string `json:"path,omitempty"`   // sqlite file, default "~/.talia/state.db"
	PostgresDSN string `json:"-"`
}

// ServerConfig controls the webhook ingress listener.
type ServerConfig struct {
	Host         string `json:"host,omitempty"`           // default "0.0.0.0"
	Port         int    `json:"port,omitempty"`           // default 8090
	RateLimitRPM int    `json:"rate_limit_rpm,omitempty"` // per-channel inbound limit, default 60, 0 = disabled
}

// Duration parses a duration string with a fallback default.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Validate checks the fields the process cannot start without.
func (c *Config) Validate() error {
	if c.Agent.Name == "" {
		return fmt.Errorf("agent.name is required")
	}
	if c.Agent.UserID == "" {
		return fmt.Errorf("agent.user_id is required")
	}
	if c.Slack.BotToken == "" {
		return fmt.Errorf("slack bot token missing (set TALIA_SLACK_BOT_TOKEN)")
	}
	if c.Slack.Mode == "socket" && c.Slack.AppToken == "" {
		return fmt.Errorf("socket mode requires an app token (set TALIA_SLACK_APP_TOKEN)")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider API key missing (set TALIA_OPENAI_API_KEY)")
	}
	switch c.Store.Driver {
	case "", "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("postgres store requires TALIA_POSTGRES_DSN")
	}
	return nil
}
