package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	GeoIP      GeoIPConfig
	Reputation ReputationConfig
	Geocoder   GeocoderConfig
	Risk       RiskConfig
	Secrets    SecretsConfig
	Tracing    TracingConfig
	Sentry     SentryConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	Version        string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int    // per-request handler timeout in seconds
	CORSOrigins    string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration. An empty Host disables the
// evaluation audit log.
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	MigrationsRun bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// NATSConfig holds the invoice event bus configuration
type NATSConfig struct {
	URL     string
	Enabled bool
	Stream  string
	Durable string
}

// JWTConfig holds the service-to-service token configuration
type JWTConfig struct {
	Secret    string
	SecretRef string // optional secrets reference overriding Secret
	Issuer    string
	Audience  string
}

// GeoIPConfig points at the MaxMind databases
type GeoIPConfig struct {
	CityDBPath string
	ASNDBPath  string
	Timeout    time.Duration
}

// ReputationConfig configures the FraudRecord-style reputation API
type ReputationConfig struct {
	BaseURL          string
	APIKey           string
	APIKeySecretRef  string // e.g. vault://secret/geoippro#fraudrecord_key
	Timeout          time.Duration
	CacheTTL         time.Duration
	BreakerInterval  int
	BreakerTimeout   int
	BreakerFailures  int
	BreakerSuccesses int
}

// GeocoderConfig configures the billing address geocoder
type GeocoderConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// RiskConfig mirrors the check settings of the risk engine
type RiskConfig struct {
	ReputationEnabled        bool
	ReputationScoreThreshold float64
	MismatchEnabled          bool
	DistanceEnabled          bool
	MaxDistanceMiles         float64
	PortEnabled              bool
	NetworkTypeEnabled       bool
	CountryListMode          string // 0 disabled, 1 allow only, 2 block listed
	CountryCodes             string // comma separated
}

// SecretsConfig selects the secrets provider used for API keys
type SecretsConfig struct {
	Provider       string // vault or file
	VaultAddress   string
	VaultToken     string
	VaultNamespace string
	VaultMount     string
	FileBasePath   string
	CacheTTL       time.Duration
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// SentryConfig holds error tracking settings
type SentryConfig struct {
	DSN              string
	TracesSampleRate float64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			Version:        getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 20),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 15),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", ""),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "geoippro"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 2),
			MigrationsRun: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			Stream:  getEnv("NATS_STREAM", "INVOICES"),
			Durable: getEnv("NATS_DURABLE", serviceName),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			SecretRef: getEnv("JWT_SECRET_REF", ""),
			Issuer:    getEnv("JWT_ISSUER", "billing"),
			Audience:  getEnv("JWT_AUDIENCE", serviceName),
		},
		GeoIP: GeoIPConfig{
			CityDBPath: getEnv("GEOIP_CITY_DB", "/usr/share/GeoIP/GeoLite2-City.mmdb"),
			ASNDBPath:  getEnv("GEOIP_ASN_DB", "/usr/share/GeoIP/GeoLite2-ASN.mmdb"),
			Timeout:    getEnvAsDuration("GEOIP_TIMEOUT", 2*time.Second),
		},
		Reputation: ReputationConfig{
			BaseURL:          getEnv("REPUTATION_BASE_URL", "https://www.fraudrecord.com"),
			APIKey:           getEnv("REPUTATION_API_KEY", ""),
			APIKeySecretRef:  getEnv("REPUTATION_API_KEY_SECRET", ""),
			Timeout:          getEnvAsDuration("REPUTATION_TIMEOUT", 5*time.Second),
			CacheTTL:         getEnvAsDuration("REPUTATION_CACHE_TTL", 15*time.Minute),
			BreakerInterval:  getEnvAsInt("REPUTATION_BREAKER_INTERVAL", 60),
			BreakerTimeout:   getEnvAsInt("REPUTATION_BREAKER_TIMEOUT", 30),
			BreakerFailures:  getEnvAsInt("REPUTATION_BREAKER_FAILURES", 5),
			BreakerSuccesses: getEnvAsInt("REPUTATION_BREAKER_SUCCESSES", 1),
		},
		Geocoder: GeocoderConfig{
			BaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("GEOCODER_USER_AGENT", serviceName),
			Timeout:   getEnvAsDuration("GEOCODER_TIMEOUT", 5*time.Second),
		},
		Risk: RiskConfig{
			ReputationEnabled:        getEnvAsBool("RISK_REPUTATION_ENABLED", false),
			ReputationScoreThreshold: getEnvAsFloat("RISK_REPUTATION_THRESHOLD", 50),
			MismatchEnabled:          getEnvAsBool("RISK_MISMATCH_ENABLED", true),
			DistanceEnabled:          getEnvAsBool("RISK_DISTANCE_ENABLED", false),
			MaxDistanceMiles:         getEnvAsFloat("RISK_MAX_DISTANCE_MILES", 50),
			PortEnabled:              getEnvAsBool("RISK_PORT_ENABLED", false),
			NetworkTypeEnabled:       getEnvAsBool("RISK_NETWORK_TYPE_ENABLED", false),
			CountryListMode:          getEnv("RISK_COUNTRY_LIST_MODE", "0"),
			CountryCodes:             getEnv("RISK_COUNTRY_CODES", ""),
		},
		Secrets: SecretsConfig{
			Provider:       getEnv("SECRETS_PROVIDER", "file"),
			VaultAddress:   getEnv("VAULT_ADDR", ""),
			VaultToken:     getEnv("VAULT_TOKEN", ""),
			VaultNamespace: getEnv("VAULT_NAMESPACE", ""),
			VaultMount:     getEnv("VAULT_KV_MOUNT", "secret"),
			FileBasePath:   getEnv("SECRETS_FILE_PATH", "/var/run/secrets/geoippro"),
			CacheTTL:       getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
		},
	}

	if cfg.Risk.ReputationScoreThreshold < 0 {
		return nil, fmt.Errorf("RISK_REPUTATION_THRESHOLD must be non-negative, got %v", cfg.Risk.ReputationScoreThreshold)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as the migrate
// postgres driver expects it.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// Enabled reports whether a database has been configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
