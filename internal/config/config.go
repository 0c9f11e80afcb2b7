package config

// Environment names recognized by the application.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"        validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	Environment string `mapstructure:"env"       validate:"required,oneof=development production"`
	LogLevel    string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all language-model integration settings.
type LLMConfig struct {
	// Provider selects the backend: "openai" (any OpenAI-compatible
	// chat-completions endpoint) or "gemini".
	Provider string `mapstructure:"provider" validate:"required,oneof=openai gemini"`

	// APIKey authenticates against the provider. Secret: never persisted
	// and never logged in full.
	APIKey string `mapstructure:"api_key" validate:"required"`

	// ModelName is the default model identifier.
	ModelName string `mapstructure:"model_name" validate:"required"`

	// Endpoint is the chat-completions URL, used by the openai provider.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Provider openai,omitempty,url"`

	// TimeoutMs bounds a single completion call.
	TimeoutMs int `mapstructure:"timeout_ms" validate:"required,gt=0"`
}

// RateLimitConfig contains the token-bucket throttle settings for
// outbound model calls.
type RateLimitConfig struct {
	Capacity         float64 `mapstructure:"capacity"           validate:"required,gt=0"`
	RefillRate       float64 `mapstructure:"refill_rate"        validate:"required,gt=0"`
	RefillIntervalMs int     `mapstructure:"refill_interval_ms" validate:"required,gt=0"`
	MaxWaitTimeMs    int     `mapstructure:"max_wait_time_ms"   validate:"gte=0"`
}
