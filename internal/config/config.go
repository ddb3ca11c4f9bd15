package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Import   ImportConfig
	Webhook  WebhookConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type ImportConfig struct {
	MaxFileSizeBytes int64
	BatchSize        int
	UploadDir        string
}

type WebhookConfig struct {
	TimeoutSeconds  int
	MaxAttempts     int
	BackoffBaseMS   int
	DeliveryWorkers int
}

type WorkerConfig struct {
	ImportWorkers int
}

func Load() *Config {
	// .env is optional; real deployments use environment variables.
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IMPORT_MAX_FILE_SIZE_BYTES", int64(500*1024*1024))
	viper.SetDefault("IMPORT_BATCH_SIZE", 1000)
	viper.SetDefault("IMPORT_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 5)
	viper.SetDefault("WEBHOOK_MAX_ATTEMPTS", 3)
	viper.SetDefault("WEBHOOK_BACKOFF_BASE_MS", 1000)
	viper.SetDefault("WEBHOOK_DELIVERY_WORKERS", 4)
	viper.SetDefault("IMPORT_WORKERS", 2)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Import: ImportConfig{
			MaxFileSizeBytes: viper.GetInt64("IMPORT_MAX_FILE_SIZE_BYTES"),
			BatchSize:        viper.GetInt("IMPORT_BATCH_SIZE"),
			UploadDir:        viper.GetString("IMPORT_UPLOAD_DIR"),
		},
		Webhook: WebhookConfig{
			TimeoutSeconds:  viper.GetInt("WEBHOOK_TIMEOUT_SECONDS"),
			MaxAttempts:     viper.GetInt("WEBHOOK_MAX_ATTEMPTS"),
			BackoffBaseMS:   viper.GetInt("WEBHOOK_BACKOFF_BASE_MS"),
			DeliveryWorkers: viper.GetInt("WEBHOOK_DELIVERY_WORKERS"),
		},
		Worker: WorkerConfig{
			ImportWorkers: viper.GetInt("IMPORT_WORKERS"),
		},
	}
}
