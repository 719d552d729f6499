package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/issuer/pkg/ratelimit"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Rate-limit purge interval (default: 1h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: issuer.db)
	DatabaseURL    string // Postgres DSN, required when DatabaseDriver is postgres

	RateLimitBackend string // store, redis or memory (default: store)
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string // default: issuer:ratelimit:
	RateLimits       ratelimit.Policies

	PayloadKeyFile string // Optional: key material for sealing delegation payloads

	SessionIssuer  string        // iss claim on session tokens (default: credential-issuer)
	SessionTTL     time.Duration // default: 15m
	SessionKeyFile string        // Optional: Ed25519 PEM so sessions survive restarts

	ChainRPCURL         string
	ChainID             int64 // 0 accepts whatever the node reports
	BackendPrivateKey   string
	CredentialContract  string
	DelegationManager   string
	ChainConfirmTimeout time.Duration

	MetadataBackend   string // file, s3 or gcs (default: file)
	MetadataBucket    string
	MetadataPrefix    string
	MetadataRegion    string
	MetadataEndpoint  string
	MetadataDir       string
	MetadataPublicURL string

	RiskModelURL     string
	RiskModelAPIKey  string
	RiskModelName    string
	RiskModelTimeout time.Duration
	RiskModelRPS     float64
	RiskIndexerURL   string
	VerifiedIssuers  []string

	OTelEndpoint string
	OTelInsecure bool
}

// fileConfig is the optional YAML file named by CONFIG_PATH. Only settings
// that are awkward to express as env vars live here.
type fileConfig struct {
	RateLimit ratelimit.Policies `yaml:"ratelimit"`
	Risk      struct {
		VerifiedIssuers []string      `yaml:"verified_issuers"`
		IndexerURL      string        `yaml:"indexer_url"`
		ModelURL        string        `yaml:"model_url"`
		ModelName       string        `yaml:"model_name"`
		ModelTimeout    time.Duration `yaml:"model_timeout"`
		ModelRPS        float64       `yaml:"model_rps"`
	} `yaml:"risk"`
	Metadata struct {
		PublicURL string `yaml:"public_url"`
	} `yaml:"metadata"`
}

// LoadConfig reads the optional config file then applies the environment on
// top of it. Env always wins.
func LoadConfig() (Config, error) {
	cfg := Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "issuer.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		RateLimitBackend: strings.ToLower(getEnvOrDefault("RATELIMIT_BACKEND", "store")),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvIntOrDefault("REDIS_DB", 0),
		RedisPrefix:      getEnvOrDefault("REDIS_PREFIX", "issuer:ratelimit:"),
		RateLimits:       ratelimit.DefaultPolicies(),

		PayloadKeyFile: os.Getenv("PAYLOAD_KEY_FILE"),

		SessionIssuer:  getEnvOrDefault("SESSION_ISSUER", "credential-issuer"),
		SessionTTL:     getEnvDurationOrDefault("SESSION_TTL", 15*time.Minute),
		SessionKeyFile: os.Getenv("SESSION_KEY_FILE"),

		ChainRPCURL:         os.Getenv("CHAIN_RPC_URL"),
		ChainID:             int64(getEnvIntOrDefault("CHAIN_ID", 0)),
		BackendPrivateKey:   os.Getenv("BACKEND_PRIVATE_KEY"),
		CredentialContract:  os.Getenv("CREDENTIAL_CONTRACT"),
		DelegationManager:   os.Getenv("DELEGATION_MANAGER"),
		ChainConfirmTimeout: getEnvDurationOrDefault("CHAIN_CONFIRM_TIMEOUT", 3*time.Minute),

		MetadataBackend:  strings.ToLower(getEnvOrDefault("METADATA_BACKEND", "file")),
		MetadataBucket:   os.Getenv("METADATA_BUCKET"),
		MetadataPrefix:   getEnvOrDefault("METADATA_PREFIX", "credentials/"),
		MetadataRegion:   os.Getenv("METADATA_REGION"),
		MetadataEndpoint: os.Getenv("METADATA_ENDPOINT"),
		MetadataDir:      getEnvOrDefault("METADATA_DIR", "data/metadata"),

		RiskModelName:    "gpt-4o-mini",
		RiskModelTimeout: 10 * time.Second,

		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelInsecure: getEnvBoolOrDefault("OTEL_INSECURE", false),
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.RateLimits = cfg.RateLimits.FromEnv()
	cfg.MetadataPublicURL = getEnvOrDefault("METADATA_PUBLIC_URL", cfg.MetadataPublicURL)
	cfg.RiskModelURL = getEnvOrDefault("RISK_MODEL_URL", cfg.RiskModelURL)
	cfg.RiskModelAPIKey = os.Getenv("RISK_MODEL_API_KEY")
	cfg.RiskModelName = getEnvOrDefault("RISK_MODEL_NAME", cfg.RiskModelName)
	cfg.RiskModelTimeout = getEnvDurationOrDefault("RISK_MODEL_TIMEOUT", cfg.RiskModelTimeout)
	cfg.RiskModelRPS = getEnvFloatOrDefault("RISK_MODEL_RPS", cfg.RiskModelRPS)
	cfg.RiskIndexerURL = getEnvOrDefault("RISK_INDEXER_URL", cfg.RiskIndexerURL)
	if v := os.Getenv("VERIFIED_ISSUERS"); v != "" {
		cfg.VerifiedIssuers = splitList(v)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c.RateLimits = c.RateLimits.Merge(fc.RateLimit)
	if len(fc.Risk.VerifiedIssuers) > 0 {
		c.VerifiedIssuers = fc.Risk.VerifiedIssuers
	}
	if fc.Risk.IndexerURL != "" {
		c.RiskIndexerURL = fc.Risk.IndexerURL
	}
	if fc.Risk.ModelURL != "" {
		c.RiskModelURL = fc.Risk.ModelURL
	}
	if fc.Risk.ModelName != "" {
		c.RiskModelName = fc.Risk.ModelName
	}
	if fc.Risk.ModelTimeout > 0 {
		c.RiskModelTimeout = fc.Risk.ModelTimeout
	}
	if fc.Risk.ModelRPS > 0 {
		c.RiskModelRPS = fc.Risk.ModelRPS
	}
	if fc.Metadata.PublicURL != "" {
		c.MetadataPublicURL = fc.Metadata.PublicURL
	}
	return nil
}

// Validate checks the settings New cannot start without.
func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.RateLimitBackend {
	case "store", "redis", "memory":
	default:
		return fmt.Errorf("unsupported RATELIMIT_BACKEND %q", c.RateLimitBackend)
	}

	for name, v := range map[string]string{
		"CHAIN_RPC_URL":       c.ChainRPCURL,
		"BACKEND_PRIVATE_KEY": c.BackendPrivateKey,
		"CREDENTIAL_CONTRACT": c.CredentialContract,
		"DELEGATION_MANAGER":  c.DelegationManager,
	} {
		if v == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
