package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables;
// a .env file next to the config file fills in unset variables.
type Config struct {
	SupabaseURL     string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	BadgerDBPath  string `mapstructure:"BADGERDB_PATH"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	MediaBackend        string `mapstructure:"MEDIA_BACKEND"`
	KYCBucket           string `mapstructure:"KYC_BUCKET"`
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramOwnerID  int64  `mapstructure:"TELEGRAM_OWNER_ID"`

	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
}

var defaults = map[string]any{
	"SUPABASE_URL":          "",
	"SUPABASE_ANON_KEY":     "",
	"STORAGE_DRIVER":        "badger",
	"BADGERDB_PATH":         "./badger_data",
	"SQLITE_PATH":           "./staybook.db",
	"LOG_LEVEL":             "info",
	"MEDIA_BACKEND":         "supabase",
	"KYC_BUCKET":            "kyc-documents",
	"CLOUDINARY_CLOUD_NAME": "",
	"CLOUDINARY_API_KEY":    "",
	"CLOUDINARY_API_SECRET": "",
	"TELEGRAM_BOT_TOKEN":    "",
	"TELEGRAM_OWNER_ID":     0,
	"HTTP_TIMEOUT":          "15s",
}

// LoadConfig reads configuration from path/config.yaml, path/.env and the environment.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Keys must be known to viper for Unmarshal to see environment variables.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	dotenv, err := godotenv.Read(filepath.Join(path, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error reading .env file: %w", err)
	}
	for key, value := range dotenv {
		if _, set := os.LookupEnv(key); !set {
			v.Set(key, value)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks required values and enumerations.
func (c Config) Validate() error {
	if c.SupabaseURL == "" {
		return errors.New("SUPABASE_URL is not set")
	}
	if c.SupabaseAnonKey == "" {
		return errors.New("SUPABASE_ANON_KEY is not set")
	}
	switch c.StorageDriver {
	case "badger", "sqlite":
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not one of badger, sqlite", c.StorageDriver)
	}
	switch c.MediaBackend {
	case "supabase":
	case "cloudinary":
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return errors.New("MEDIA_BACKEND cloudinary needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return fmt.Errorf("MEDIA_BACKEND %q is not one of supabase, cloudinary", c.MediaBackend)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// StoragePath returns the database path of the selected driver.
func (c Config) StoragePath() string {
	if c.StorageDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.BadgerDBPath
}

// RequireBot checks the values needed by the chat front-end.
func (c Config) RequireBot() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if c.TelegramOwnerID == 0 {
		return errors.New("TELEGRAM_OWNER_ID is not set")
	}
	return nil
}
