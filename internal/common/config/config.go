// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig             `mapstructure:"app"`
	Server         ServerConfig          `mapstructure:"server"`
	Database       DatabaseConfig        `mapstructure:"database"`
	Integrations   IntegrationConfig     `mapstructure:"integrations"`
	Forms          map[string]FormConfig `mapstructure:"forms"`
	Analytics      AnalyticsConfig       `mapstructure:"analytics"`
	ErrorReporting ErrorReportingConfig  `mapstructure:"error_reporting"`
	Landing        LandingConfig         `mapstructure:"landing"`
	Logging        LoggingConfig         `mapstructure:"logging"`
	Tracing        TracingConfig         `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- External Integrations ---

// IntegrationConfig holds settings for webhooks, the voice API, CRM and AWS.
type IntegrationConfig struct {
	Webhooks WebhookConfig `mapstructure:"webhooks"`
	Voice    VoiceConfig   `mapstructure:"voice"`

	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		BaseURL   string `mapstructure:"base_url"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled          bool   `mapstructure:"enabled"`
			SalesPhoneNumber string `mapstructure:"sales_phone_number"`
			SenderID         string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// WebhookConfig maps each form to the workflow-automation webhook receiving it.
type WebhookConfig struct {
	URLs    map[string]string `mapstructure:"urls"`
	Timeout int               `mapstructure:"timeout"` // milliseconds
}

// VoiceConfig holds the hosted voice-agent settings.
type VoiceConfig struct {
	APIBaseURL    string `mapstructure:"api_base_url"`
	RelayBaseURL  string `mapstructure:"relay_base_url"`
	APIKey        string `mapstructure:"api_key"`
	PublicKey     string `mapstructure:"public_key"`
	AssistantID   string `mapstructure:"assistant_id"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	Timeout       int    `mapstructure:"timeout"`       // milliseconds
	PollInterval  int    `mapstructure:"poll_interval"` // milliseconds
	PollTimeout   int    `mapstructure:"poll_timeout"`  // milliseconds
}

// FormConfig holds per-form submission behaviour.
type FormConfig struct {
	SoftSuccess     *bool  `mapstructure:"soft_success"`
	RedirectURL     string `mapstructure:"redirect_url"`
	RedirectSeconds int    `mapstructure:"redirect_seconds"`
}

type AnalyticsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CollectorURL string `mapstructure:"collector_url"`
	Index        string `mapstructure:"index"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

type ErrorReportingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	EndpointURL string `mapstructure:"endpoint_url"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// LandingConfig holds settings for the per-company landing pages.
type LandingConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}
