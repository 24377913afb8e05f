// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	SeedScenario   string `mapstructure:"SEED_SCENARIO"`

	DBDriver     string `mapstructure:"DB_DRIVER"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath string `mapstructure:"DB_SQLITE_PATH"`
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL string `mapstructure:"REDIS_URL"`
	NATSURL  string `mapstructure:"NATS_URL"`

	IdentityProvider        string `mapstructure:"IDENTITY_PROVIDER"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	JWTIssuer               string `mapstructure:"JWT_ISSUER"`
	JWTAudience             string `mapstructure:"JWT_AUDIENCE"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	AdminSubjects           string `mapstructure:"ADMIN_SUBJECTS"`

	StoryStore    string `mapstructure:"STORY_STORE"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	StoreCallTimeoutMS    int `mapstructure:"STORE_CALL_TIMEOUT_MS"`
	StoreRetryMaxAttempts int `mapstructure:"STORE_RETRY_MAX_ATTEMPTS"`
	StoreRetryInitialMS   int `mapstructure:"STORE_RETRY_INITIAL_MS"`
	StoreRetryMaxMS       int `mapstructure:"STORE_RETRY_MAX_MS"`

	StorySweepInterval        time.Duration `mapstructure:"STORY_SWEEP_INTERVAL"`
	ReconcileInterval         time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	NotificationRetentionDays int           `mapstructure:"NOTIFICATION_RETENTION_DAYS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:8081,http://localhost:19006")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("SEED_SCENARIO", "")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "socialhub")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SQLITE_PATH", "socialhub.db")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("NATS_URL", "")

	viper.SetDefault("IDENTITY_PROVIDER", "jwt")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "socialhub-auth")
	viper.SetDefault("JWT_AUDIENCE", "socialhub-client")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("ADMIN_SUBJECTS", "")

	viper.SetDefault("STORY_STORE", "sql")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "socialhub")

	viper.SetDefault("STORE_CALL_TIMEOUT_MS", 2000)
	viper.SetDefault("STORE_RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("STORE_RETRY_INITIAL_MS", 50)
	viper.SetDefault("STORE_RETRY_MAX_MS", 1000)

	viper.SetDefault("STORY_SWEEP_INTERVAL", "10m")
	viper.SetDefault("RECONCILE_INTERVAL", "1h")
	viper.SetDefault("NOTIFICATION_RETENTION_DAYS", 30)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.StoryStore = strings.ToLower(strings.TrimSpace(c.StoryStore))
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsAdminSubject reports whether the verified auth subject is listed in ADMIN_SUBJECTS.
func (c *Config) IsAdminSubject(subject string) bool {
	if subject == "" {
		return false
	}
	for _, s := range strings.Split(c.AdminSubjects, ",") {
		if strings.TrimSpace(s) == subject {
			return true
		}
	}
	return false
}

// StoreCallTimeout is the deadline applied to every individual store call.
func (c *Config) StoreCallTimeout() time.Duration {
	return time.Duration(c.StoreCallTimeoutMS) * time.Millisecond
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.IdentityProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when IDENTITY_PROVIDER=jwt")
		}
	case "firebase":
		if c.FirebaseCredentialsFile == "" {
			return errors.New("FIREBASE_CREDENTIALS_FILE is required when IDENTITY_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("unsupported IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	switch c.StoryStore {
	case "sql":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORY_STORE=mongo")
		}
	default:
		return fmt.Errorf("unsupported STORY_STORE %q", c.StoryStore)
	}

	if c.StoreCallTimeoutMS <= 0 {
		return errors.New("STORE_CALL_TIMEOUT_MS must be positive")
	}
	if c.StoreRetryMaxAttempts <= 0 {
		return errors.New("STORE_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.StoreRetryInitialMS <= 0 || c.StoreRetryMaxMS < c.StoreRetryInitialMS {
		return errors.New("STORE_RETRY_INITIAL_MS must be positive and not exceed STORE_RETRY_MAX_MS")
	}

	if c.IsProduction() {
		if c.IdentityProvider == "jwt" {
			if c.JWTSecret == defaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
		}
		if c.DBDriver == "sqlite" {
			return errors.New("DB_DRIVER=sqlite is not allowed in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.IdentityProvider == "jwt" && len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
