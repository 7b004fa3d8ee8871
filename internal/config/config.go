package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DatabaseURL string `json:"database_url"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret          string        `json:"jwt_secret"`
	JWTIssuer          string        `json:"jwt_issuer"`
	TokenTTL           time.Duration `json:"token_ttl"`
	SessionSecret      string        `json:"session_secret"`
	SessionTTL         time.Duration `json:"session_ttl"`
	CookieSecure       bool          `json:"cookie_secure"`
	LoginRatePerMinute int           `json:"login_rate_per_minute"`

	// Upload configuration
	UploadBackend   string `json:"upload_backend"`
	UploadDir       string `json:"upload_dir"`
	UploadURLPrefix string `json:"upload_url_prefix"`
	MaxUploadBytes  int    `json:"max_upload_bytes"`
	S3Bucket        string `json:"s3_bucket"`
	S3Region        string `json:"s3_region"`
	S3PublicURL     string `json:"s3_public_url"`
	S3Endpoint      string `json:"s3_endpoint"`
	S3AccessKeyID   string `json:"s3_access_key_id"`
	S3SecretKey     string `json:"s3_secret_key"`

	// Bootstrap admin account, created on start-up when all three are set
	AdminUsername string `json:"admin_username"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, DBDriver: %s, DBPath: %s, DatabaseURL: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], LogLevel: %s, JWTSecret: [REDACTED], SessionSecret: [REDACTED], TokenTTL: %s, SessionTTL: %s, UploadBackend: %s, S3SecretKey: [REDACTED], AdminUsername: %s, AdminPassword: [REDACTED]}",
		c.Environment, c.Port, c.Host, c.DBDriver, c.DBPath, maskDatabaseURL(c.DatabaseURL), c.DBHost, c.DBName, c.DBUser,
		c.LogLevel, c.TokenTTL, c.SessionTTL, c.UploadBackend, c.AdminUsername)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It validates numeric values, the optional DATABASE_URL and the driver/backend names
// Returns an error if any environment variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	tokenHours, err := strconv.Atoi(GetEnvWithDefault("TOKEN_TTL_HOURS", "24"))
	if err != nil || tokenHours <= 0 {
		return nil, errors.New("TOKEN_TTL_HOURS must be a positive integer")
	}

	sessionHours, err := strconv.Atoi(GetEnvWithDefault("SESSION_TTL_HOURS", "168"))
	if err != nil || sessionHours <= 0 {
		return nil, errors.New("SESSION_TTL_HOURS must be a positive integer")
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		// validate URL with net/url
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	driver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite"))
	switch driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres)", driver)
	}

	backend := strings.ToLower(GetEnvWithDefault("UPLOAD_BACKEND", "local"))
	if backend != "local" && backend != "s3" {
		return nil, fmt.Errorf("unsupported UPLOAD_BACKEND %q (supported: local, s3)", backend)
	}

	config := &Config{
		Environment:        GetEnvWithDefault("APP_ENV", "development"),
		Port:               port,
		Host:               GetEnvWithDefault("APP_HOST", "localhost"),
		DBDriver:           driver,
		DBPath:             GetEnvWithDefault("DB_PATH", "recipes.sqlite"),
		DatabaseURL:        dbURL,
		DBHost:             GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:             GetEnvWithDefault("DB_PORT", "5432"),
		DBName:             GetEnvWithDefault("DB_NAME", "recipes"),
		DBUser:             GetEnvWithDefault("DB_USER", "user"),
		DBPassword:         GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:          GetEnvWithDefault("DB_SSLMODE", "disable"),
		LogLevel:           GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret:          GetEnvWithDefault("JWT_SECRET", "jwt-super-secret-key"),
		JWTIssuer:          GetEnvWithDefault("JWT_ISSUER", "gin-recipe-api"),
		TokenTTL:           time.Duration(tokenHours) * time.Hour,
		SessionSecret:      GetEnvWithDefault("SESSION_SECRET", "supersecretkey"),
		SessionTTL:         time.Duration(sessionHours) * time.Hour,
		CookieSecure:       GetEnvAsType("COOKIE_SECURE", false),
		LoginRatePerMinute: GetEnvAsType("LOGIN_RATE_PER_MINUTE", 10),
		UploadBackend:      backend,
		UploadDir:          GetEnvWithDefault("UPLOAD_DIR", "static/uploads"),
		UploadURLPrefix:    GetEnvWithDefault("UPLOAD_URL_PREFIX", "/static/uploads"),
		MaxUploadBytes:     GetEnvAsType("MAX_UPLOAD_BYTES", 16*1024*1024),
		S3Bucket:           GetEnvWithDefault("S3_BUCKET", ""),
		S3Region:           GetEnvWithDefault("S3_REGION", "eu-central-1"),
		S3PublicURL:        GetEnvWithDefault("S3_PUBLIC_URL", ""),
		S3Endpoint:         GetEnvWithDefault("S3_ENDPOINT", ""),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:        os.Getenv("S3_SECRET_ACCESS_KEY"),
		AdminUsername:      os.Getenv("ADMIN_USERNAME"),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
	}

	if config.UploadBackend == "s3" && config.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is required when UPLOAD_BACKEND is s3")
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// HasAdminBootstrap reports whether a bootstrap admin account is configured
func (c *Config) HasAdminBootstrap() bool {
	return c.AdminUsername != "" && c.AdminEmail != "" && c.AdminPassword != ""
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
