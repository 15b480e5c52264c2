package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "BLOGWATCH_CONFIG"
	databasePathEnv    = "DATABASE_PATH"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	smtpServerEnv      = "SMTP_SERVER"
	smtpPortEnv        = "SMTP_PORT"
	emailAddressEnv    = "EMAIL_ADDRESS"
	emailPasswordEnv   = "EMAIL_PASSWORD"
	twilioSIDEnv       = "TWILIO_ACCOUNT_SID"
	twilioTokenEnv     = "TWILIO_AUTH_TOKEN"
	twilioNumberEnv    = "TWILIO_PHONE_NUMBER"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Email      EmailConfig      `yaml:"email"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when the pipeline and housekeeping run.
type SchedulerConfig struct {
	CronExpression    string         `yaml:"cronExpression"`
	CleanupExpression string         `yaml:"cleanupExpression"`
	LogRetentionDays  int            `yaml:"logRetentionDays"`
	Timezone          string         `yaml:"timezone"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig holds the orchestrator's pacing and thresholds.
type PipelineConfig struct {
	SourceDelaySeconds int `yaml:"sourceDelaySeconds"`
	EnrichDelaySeconds int `yaml:"enrichDelaySeconds"`
	MinEnrichLength    int `yaml:"minEnrichLength"`
}

// EnrichmentConfig wires the text-generation candidates.
type EnrichmentConfig struct {
	MaxContentLength int               `yaml:"maxContentLength"`
	SystemPrompt     string            `yaml:"systemPrompt"`
	Candidates       []CandidateConfig `yaml:"candidates"`
	Anthropic        ProviderConfig    `yaml:"anthropic"`
	OpenAI           ProviderConfig    `yaml:"openai"`
}

// CandidateConfig names one (provider, model) pair in fallback order.
type CandidateConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ProviderConfig defines how to contact one text-generation API.
type ProviderConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"apiKey"`
	MaxTokens int    `yaml:"maxTokens"`
}

// EmailConfig holds SMTP transport credentials.
type EmailConfig struct {
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// TwilioConfig holds the WhatsApp transport credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"accountSid"`
	AuthToken  string `yaml:"authToken"`
	FromNumber string `yaml:"fromNumber"`
}

// SourceConfig seeds the source registry on first start.
type SourceConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	FeedURL  string `yaml:"feedUrl"`
	Strategy string `yaml:"strategy"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. Missing credentials are not an error; the affected capability
// is disabled at wiring time.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(anthropicAPIKeyEnv); v != "" {
		c.Enrichment.Anthropic.APIKey = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.Enrichment.OpenAI.APIKey = v
	}

	if v := os.Getenv(smtpServerEnv); v != "" {
		c.Email.Server = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Email.Port = port
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", smtpPortEnv, v, c.Email.Port)
		}
	}
	if v := os.Getenv(emailAddressEnv); v != "" {
		c.Email.Address = v
	}
	if v := os.Getenv(emailPasswordEnv); v != "" {
		c.Email.Password = v
	}

	if v := os.Getenv(twilioSIDEnv); v != "" {
		c.Twilio.AccountSID = v
	}
	if v := os.Getenv(twilioTokenEnv); v != "" {
		c.Twilio.AuthToken = v
	}
	if v := os.Getenv(twilioNumberEnv); v != "" {
		c.Twilio.FromNumber = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.CleanupExpression != "" {
		base.Scheduler.CleanupExpression = override.Scheduler.CleanupExpression
	}
	if override.Scheduler.LogRetentionDays > 0 {
		base.Scheduler.LogRetentionDays = override.Scheduler.LogRetentionDays
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Pipeline.SourceDelaySeconds > 0 {
		base.Pipeline.SourceDelaySeconds = override.Pipeline.SourceDelaySeconds
	}
	if override.Pipeline.EnrichDelaySeconds > 0 {
		base.Pipeline.EnrichDelaySeconds = override.Pipeline.EnrichDelaySeconds
	}
	if override.Pipeline.MinEnrichLength > 0 {
		base.Pipeline.MinEnrichLength = override.Pipeline.MinEnrichLength
	}

	if override.Enrichment.MaxContentLength > 0 {
		base.Enrichment.MaxContentLength = override.Enrichment.MaxContentLength
	}
	if override.Enrichment.SystemPrompt != "" {
		base.Enrichment.SystemPrompt = override.Enrichment.SystemPrompt
	}
	if len(override.Enrichment.Candidates) > 0 {
		base.Enrichment.Candidates = override.Enrichment.Candidates
	}
	if override.Enrichment.Anthropic.Endpoint != "" {
		base.Enrichment.Anthropic.Endpoint = override.Enrichment.Anthropic.Endpoint
	}
	if override.Enrichment.Anthropic.APIKey != "" {
		base.Enrichment.Anthropic.APIKey = override.Enrichment.Anthropic.APIKey
	}
	if override.Enrichment.Anthropic.MaxTokens > 0 {
		base.Enrichment.Anthropic.MaxTokens = override.Enrichment.Anthropic.MaxTokens
	}
	if override.Enrichment.OpenAI.Endpoint != "" {
		base.Enrichment.OpenAI.Endpoint = override.Enrichment.OpenAI.Endpoint
	}
	if override.Enrichment.OpenAI.APIKey != "" {
		base.Enrichment.OpenAI.APIKey = override.Enrichment.OpenAI.APIKey
	}

	if override.Email.Server != "" {
		base.Email.Server = override.Email.Server
	}
	if override.Email.Port > 0 {
		base.Email.Port = override.Email.Port
	}
	if override.Email.Address != "" {
		base.Email.Address = override.Email.Address
	}
	if override.Email.Password != "" {
		base.Email.Password = override.Email.Password
	}

	if override.Twilio.AccountSID != "" {
		base.Twilio.AccountSID = override.Twilio.AccountSID
	}
	if override.Twilio.AuthToken != "" {
		base.Twilio.AuthToken = override.Twilio.AuthToken
	}
	if override.Twilio.FromNumber != "" {
		base.Twilio.FromNumber = override.Twilio.FromNumber
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/blogwatch.db"},
		Scheduler: SchedulerConfig{
			CronExpression:    "0 */2 * * *",
			CleanupExpression: "0 3 * * *",
			LogRetentionDays:  30,
			Timezone:          defaultTimezone,
			location:          tz,
		},
		Pipeline: PipelineConfig{
			SourceDelaySeconds: 2,
			EnrichDelaySeconds: 2,
			MinEnrichLength:    200,
		},
		Enrichment: EnrichmentConfig{
			MaxContentLength: 15000,
			Candidates: []CandidateConfig{
				{Provider: "anthropic", Model: "claude-3-haiku-20240307"},
				{Provider: "anthropic", Model: "claude-3-5-sonnet-latest"},
				{Provider: "openai", Model: "gpt-4o-mini"},
			},
			Anthropic: ProviderConfig{MaxTokens: 2000},
		},
		Email: EmailConfig{Server: "smtp.gmail.com", Port: 587},
		Sources: []SourceConfig{
			{Name: "Detection Engineering", URL: "https://www.detectionengineering.net/", Strategy: "link-discovery"},
			{Name: "Rohit Tamma Substack", URL: "https://rohittamma.substack.com/", FeedURL: "https://rohittamma.substack.com/feed", Strategy: "feed"},
			{Name: "Cybersec Automation", URL: "https://www.cybersec-automation.com/", Strategy: "link-discovery"},
			{Name: "Anton on Security", URL: "https://medium.com/@anton.on.security", FeedURL: "https://medium.com/feed/@anton.on.security", Strategy: "feed"},
			{Name: "Google Cloud Security Blog", URL: "https://www.googlecloudcommunity.com/gc/Community-Blog/bg-p/security-blog", Strategy: "link-discovery"},
			{Name: "Detect FYI", URL: "https://detect.fyi/", Strategy: "link-discovery"},
			{Name: "Dylan H Williams Medium", URL: "https://medium.com/@dylanhwilliams", FeedURL: "https://medium.com/feed/@dylanhwilliams", Strategy: "feed"},
		},
	}
}
