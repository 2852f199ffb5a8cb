// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"`

	DBDriver       string `mapstructure:"DB_DRIVER"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBSQLitePath   string `mapstructure:"DB_SQLITE_PATH"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	AuthProvider            string `mapstructure:"AUTH_PROVIDER"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	JWTIssuer               string `mapstructure:"JWT_ISSUER"`
	JWTAudience             string `mapstructure:"JWT_AUDIENCE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseCredentialsJSON string `mapstructure:"FIREBASE_CREDENTIALS_JSON"`

	BlobStore             string `mapstructure:"BLOB_STORE"`
	BlobDiskDir           string `mapstructure:"BLOB_DISK_DIR"`
	FirebaseStorageBucket string `mapstructure:"FIREBASE_STORAGE_BUCKET"`

	FeatureFlags                string `mapstructure:"FEATURE_FLAGS"`
	PolicyAllowCrossPosting     bool   `mapstructure:"POLICY_ALLOW_CROSS_POSTING"`
	PolicyContextOwnerMayDelete bool   `mapstructure:"POLICY_CONTEXT_OWNER_MAY_DELETE"`

	NotifyWorkers           int `mapstructure:"NOTIFY_WORKERS"`
	NotifyQueueSize         int `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyMaxAttempts       int `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	MediaOrphanGraceMinutes int `mapstructure:"MEDIA_ORPHAN_GRACE_MINUTES"`

	ReconcileIntervalMinutes int  `mapstructure:"RECONCILE_INTERVAL_MINUTES"`
	ReconcileRepair          bool `mapstructure:"RECONCILE_REPAIR"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8375")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "user")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "opc_community")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_SQLITE_PATH", "opc.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)

	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")

	v.SetDefault("AUTH_PROVIDER", "jwt")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "opc")
	v.SetDefault("JWT_AUDIENCE", "opc-community")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_JSON", "")

	v.SetDefault("BLOB_STORE", "none")
	v.SetDefault("BLOB_DISK_DIR", "./uploads")
	v.SetDefault("FIREBASE_STORAGE_BUCKET", "")

	v.SetDefault("FEATURE_FLAGS", "realtime_notifications=on")
	v.SetDefault("POLICY_ALLOW_CROSS_POSTING", true)
	v.SetDefault("POLICY_CONTEXT_OWNER_MAY_DELETE", true)

	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 1024)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("MEDIA_ORPHAN_GRACE_MINUTES", 60)

	v.SetDefault("RECONCILE_INTERVAL_MINUTES", 0)
	v.SetDefault("RECONCILE_REPAIR", false)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A local .env fills in variables the process environment does not set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover a fresh checkout.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.%s.yml: %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	SetDefaults(viper.GetViper())

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

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
	c.BlobStore = strings.ToLower(strings.TrimSpace(c.BlobStore))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// OrphanGrace is the minimum age of an unreferenced media file before cleanup.
func (c *Config) OrphanGrace() time.Duration {
	return time.Duration(c.MediaOrphanGraceMinutes) * time.Minute
}

// ReconcileInterval is the period of the background integrity job. Zero disables it.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMinutes) * time.Minute
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}

	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required")
		}
	case "firebase":
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be jwt or firebase, got %q", c.AuthProvider)
	}

	switch c.BlobStore {
	case "none", "disk":
	case "firebase":
		if c.FirebaseStorageBucket == "" {
			return errors.New("FIREBASE_STORAGE_BUCKET is required when BLOB_STORE=firebase")
		}
	default:
		return fmt.Errorf("BLOB_STORE must be none, disk or firebase, got %q", c.BlobStore)
	}

	if c.NotifyWorkers < 1 {
		return errors.New("NOTIFY_WORKERS must be at least 1")
	}
	if c.NotifyQueueSize < 1 {
		return errors.New("NOTIFY_QUEUE_SIZE must be at least 1")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.AuthProvider == "jwt" {
			if c.JWTSecret == defaultJWTSecret {
				return errors.New("JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("JWT_SECRET must be at least 32 characters in production")
			}
		}
		if c.DBDriver == "postgres" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable SSL in production")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.AuthProvider == "jwt" && len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
