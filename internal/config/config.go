package config

import (
	"sportscast/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR" env-default:":8080"`
	} `yaml:"server"`

	Telegram struct {
		Token string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	} `yaml:"telegram"`

	RabbitMQ struct {
		URL string `yaml:"url" env:"RABBITMQ_URL"`
	} `yaml:"rabbitmq"`

	Recognizer struct {
		Endpoint string `yaml:"endpoint" env:"RECOGNIZER_ENDPOINT"`
		Model    string `yaml:"model" env:"RECOGNIZER_MODEL" env-default:"general"`
	} `yaml:"recognizer"`

	Football struct {
		Token string `yaml:"token" env:"FOOTBALL_DATA_TOKEN"`
	} `yaml:"football"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"postgres"`

	S3 struct {
		Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	} `yaml:"s3"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	Cache struct {
		Path       string `yaml:"path" env:"QUERY_CACHE_PATH" env-default:"cache/query_cache.json"`
		MaxAgeDays int    `yaml:"max_age_days" env:"QUERY_CACHE_MAX_AGE_DAYS" env-default:"7"`
	} `yaml:"cache"`

	Worker struct {
		Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"4"`
	} `yaml:"worker"`
}

func LoadConfig() (*Config, error) {
	// Load .env file
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig("configs/config.yaml", &cfg); err != nil {
		return nil, err
	}

	if err := cleanenv.UpdateEnv(&cfg); err != nil {
		return nil, err
	}

	logger.Info("Config loaded successfully")
	return &cfg, nil
}
