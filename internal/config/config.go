package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RedisURL string `mapstructure:"REDIS_URL"`

	Timezone         string `mapstructure:"APP_TIMEZONE"`
	ReschedulePolicy string `mapstructure:"RESCHEDULE_POLICY"`

	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowOrigins      string `mapstructure:"ALLOW_ORIGINS"`

	AWSRegion    string `mapstructure:"AWS_REGION"`
	AWSAccessKey string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	AWSBucket    string `mapstructure:"AWS_S3_BUCKET"`
	UploadDir    string `mapstructure:"UPLOAD_DIR"`
	BaseURL      string `mapstructure:"BASE_URL"`

	FirebaseServiceAccountPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	ReminderLead  time.Duration `mapstructure:"REMINDER_LEAD"`
	SweepInterval string        `mapstructure:"SWEEP_INTERVAL"`
}

var defaults = map[string]any{
	"PORT":                 "5000",
	"ENV":                  "development",
	"DB_DRIVER":            "postgres",
	"DB_HOST":              "localhost",
	"DB_PORT":              "5432",
	"DB_SSLMODE":           "disable",
	"JWT_TTL":              "168h",
	"APP_TIMEZONE":         "Local",
	"RESCHEDULE_POLICY":    "approval",
	"MAX_REQUESTS_PER_MIN": 120,
	"ALLOW_ORIGINS":        "*",
	"UPLOAD_DIR":           "./uploads",
	"BASE_URL":             "http://localhost:5000",
	"GEMINI_MODEL":         "gemini-1.5-flash",
	"REMINDER_LEAD":        "30m",
	"SWEEP_INTERVAL":       "@every 5m",
}

// Load reads envFile (if present) and the process environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, using environment variables", envFile)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// Unmarshal only sees keys viper knows about; bind the ones without defaults.
	for _, key := range []string{
		"DATABASE_URL", "DB_USER", "DB_PASSWORD", "DB_NAME", "JWT_SECRET", "REDIS_URL",
		"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_S3_BUCKET",
		"FIREBASE_SERVICE_ACCOUNT_PATH", "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	switch c.DBDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.DBDriver)
	}
	switch c.ReschedulePolicy {
	case "approval", "direct":
	default:
		return fmt.Errorf("RESCHEDULE_POLICY must be approval or direct, got %q", c.ReschedulePolicy)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// Location is the time zone booking dates and times are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Origins splits ALLOW_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
