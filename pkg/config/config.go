package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/arnavshah/autoscheduler-api/pkg/models"
	"github.com/arnavshah/autoscheduler-api/pkg/scheduler"
	"github.com/arnavshah/autoscheduler-api/pkg/timeconv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Log       LogConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig selects Postgres when URL is set, SQLite at Path otherwise.
type DatabaseConfig struct {
	URL  string
	Path string
}

type AuthConfig struct {
	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string
	AdminPassword   string
	BcryptCost      int
	TokenTTL        time.Duration
}

// SchedulerConfig holds the defaults applied when a request omits them.
type SchedulerConfig struct {
	DefaultTimeZone     string
	DefaultStartHour    int
	DefaultStartMinute  int
	DefaultEndHour      int
	DefaultEndMinute    int
	DefaultTaskDuration time.Duration
	MaxRangeDays        int
}

// WorkingHours returns the default working hours.
func (s SchedulerConfig) WorkingHours() models.WorkingHours {
	return models.WorkingHours{
		StartHour:   s.DefaultStartHour,
		StartMinute: s.DefaultStartMinute,
		EndHour:     s.DefaultEndHour,
		EndMinute:   s.DefaultEndMinute,
	}
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// godotenv has already exported .env into the environment.
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Database = DatabaseConfig{
		URL:  v.GetString("DATABASE_URL"),
		Path: v.GetString("DATA_PATH"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:       v.GetString("JWT_SECRET"),
		APIMasterSecret: v.GetString("API_MASTER_SECRET"),
		AdminUsername:   v.GetString("ADMIN_USERNAME"),
		AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		TokenTTL:        parseDuration(v.GetString("TOKEN_TTL"), 24*time.Hour),
	}

	cfg.Scheduler = SchedulerConfig{
		DefaultTimeZone:     v.GetString("DEFAULT_TIME_ZONE"),
		DefaultStartHour:    v.GetInt("WORK_START_HOUR"),
		DefaultStartMinute:  v.GetInt("WORK_START_MINUTE"),
		DefaultEndHour:      v.GetInt("WORK_END_HOUR"),
		DefaultEndMinute:    v.GetInt("WORK_END_MINUTE"),
		DefaultTaskDuration: parseDuration(v.GetString("DEFAULT_TASK_DURATION"), scheduler.DefaultTaskDuration),
		MaxRangeDays:        v.GetInt("MAX_RANGE_DAYS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := scheduler.ValidateWorkingHours(c.Scheduler.WorkingHours()); err != nil {
		return fmt.Errorf("config: default working hours: %w", err)
	}
	if _, err := timeconv.LoadZone(c.Scheduler.DefaultTimeZone); err != nil {
		return fmt.Errorf("config: default time zone: %w", err)
	}
	if err := scheduler.ValidateDuration(c.Scheduler.DefaultTaskDuration); err != nil {
		return fmt.Errorf("config: default task duration: %w", err)
	}
	if c.Scheduler.MaxRangeDays <= 0 {
		return fmt.Errorf("config: MAX_RANGE_DAYS must be positive, got %d", c.Scheduler.MaxRangeDays)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATA_PATH", "api_keys.db")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("API_MASTER_SECRET", "dev_master_secret")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("BCRYPT_COST", 14)
	v.SetDefault("TOKEN_TTL", "24h")

	v.SetDefault("DEFAULT_TIME_ZONE", "Europe/Zurich")
	v.SetDefault("WORK_START_HOUR", 9)
	v.SetDefault("WORK_START_MINUTE", 0)
	v.SetDefault("WORK_END_HOUR", 18)
	v.SetDefault("WORK_END_MINUTE", 0)
	v.SetDefault("DEFAULT_TASK_DURATION", "30m")
	v.SetDefault("MAX_RANGE_DAYS", 31)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
