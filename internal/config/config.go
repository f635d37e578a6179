package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Forecast    ForecastConfig `mapstructure:"forecast"`
	USSD        USSDConfig     `mapstructure:"ussd"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ForecastConfig drives the pipeline and its scheduled refresh.
type ForecastConfig struct {
	ArtifactPath    string `mapstructure:"artifact_path"`
	ModelVersion    string `mapstructure:"model_version"`
	DefaultHorizon  int    `mapstructure:"default_horizon"`
	HistoryWindow   int    `mapstructure:"history_window"`
	RefreshSchedule string `mapstructure:"refresh_schedule"`
	RefreshOnStart  bool   `mapstructure:"refresh_on_start"`
}

// USSDConfig bounds the dates a USSD price query will accept.
type USSDConfig struct {
	MaxPastDays   int `mapstructure:"max_past_days"`
	MaxFutureDays int `mapstructure:"max_future_days"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Forecast.DefaultHorizon < 1 {
		return nil, fmt.Errorf("forecast default horizon must be at least 1, got %d", config.Forecast.DefaultHorizon)
	}
	// "@every <duration>" schedules are validated here; full cron specs are
	// validated when the job is registered.
	if after, ok := strings.CutPrefix(config.Forecast.RefreshSchedule, "@every "); ok {
		if _, err := time.ParseDuration(after); err != nil {
			return nil, fmt.Errorf("invalid forecast refresh schedule %q: %w", config.Forecast.RefreshSchedule, err)
		}
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"*"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "market_db")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("forecast.artifact_path", "models/artifacts.json")
	viper.SetDefault("forecast.model_version", "v1")
	viper.SetDefault("forecast.default_horizon", 7)
	viper.SetDefault("forecast.history_window", 200)
	viper.SetDefault("forecast.refresh_schedule", "@every 168h")
	viper.SetDefault("forecast.refresh_on_start", false)

	viper.SetDefault("ussd.max_past_days", 10)
	viper.SetDefault("ussd.max_future_days", 90)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.admin_chat_id", 0)
}
