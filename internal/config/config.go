package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Log        LogConfig
	CRM        CRMConfig
	Redemption RedemptionConfig
	Jobs       JobsConfig
	Tracing    TracingConfig
	Portal     PortalConfig
	Invite     InviteConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	// GatewayToken, when set, must be presented as a bearer token on every /api request.
	GatewayToken string `envconfig:"GATEWAY_TOKEN"`
	// VerifyRateLimit caps redemption token lookups per staff user per minute; 0 disables it.
	VerifyRateLimit int `envconfig:"VERIFY_RATE_LIMIT" default:"60"`
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name     string `envconfig:"DB_NAME" default:"loyalty_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// CRMConfig holds the contact-sync integration settings.
type CRMConfig struct {
	BaseURL       string `envconfig:"CRM_BASE_URL" default:"https://services.leadconnectorhq.com"`
	AccessToken   string `envconfig:"CRM_ACCESS_TOKEN"`
	PointsFieldID string `envconfig:"CRM_POINTS_FIELD_ID"`
	LocationID    string `envconfig:"CRM_LOCATION_ID"`
	APIVersion    string `envconfig:"CRM_API_VERSION" default:"2021-07-28"`
	Timeout       int    `envconfig:"CRM_TIMEOUT" default:"5"` // seconds
	MaxInflight   int    `envconfig:"CRM_MAX_INFLIGHT" default:"32"`
}

// Enabled reports whether enough is configured to talk to the CRM.
func (c CRMConfig) Enabled() bool {
	return c.AccessToken != "" && c.PointsFieldID != ""
}

// RedemptionConfig controls redemption intent lifetime. A zero TTL disables expiry.
type RedemptionConfig struct {
	IntentTTL time.Duration `envconfig:"REDEMPTION_INTENT_TTL" default:"30m"`
}

// JobsConfig controls the background maintenance scheduler.
type JobsConfig struct {
	Enabled           bool          `envconfig:"JOBS_ENABLED" default:"true"`
	SweepInterval     time.Duration `envconfig:"JOBS_SWEEP_INTERVAL" default:"5m"`
	ReconcileInterval time.Duration `envconfig:"JOBS_RECONCILE_INTERVAL" default:"1h"`
}

// TracingConfig holds OpenTelemetry exporter settings. Tracing is off without an endpoint.
type TracingConfig struct {
	JaegerEndpoint string `envconfig:"TRACING_JAEGER_ENDPOINT"`
	ServiceName    string `envconfig:"TRACING_SERVICE_NAME" default:"loyalty-portal"`
}

// PortalConfig holds public URLs used in outbound messages.
type PortalConfig struct {
	BaseURL string `envconfig:"PORTAL_BASE_URL" default:"http://localhost:3000"`
}

// InviteConfig controls staff invite lifetime.
type InviteConfig struct {
	TTL time.Duration `envconfig:"INVITE_TTL" default:"168h"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Redemption.IntentTTL < 0 {
		return nil, fmt.Errorf("REDEMPTION_INTENT_TTL must not be negative, got %s", cfg.Redemption.IntentTTL)
	}
	if cfg.Invite.TTL <= 0 {
		return nil, fmt.Errorf("INVITE_TTL must be positive, got %s", cfg.Invite.TTL)
	}
	if cfg.CRM.MaxInflight < 1 {
		return nil, fmt.Errorf("CRM_MAX_INFLIGHT must be at least 1, got %d", cfg.CRM.MaxInflight)
	}
	return &cfg, nil
}
