// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек бота.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	OpsServer               `yaml:"ops_server"`
	Telegram                `yaml:"telegram"`
	AI                      `yaml:"ai"`
	Subscription            `yaml:"subscription"`
}

// OpsServer структура для настройки служебного HTTP-сервера (health, metrics).
type OpsServer struct {
	Address     string        `yaml:"address" env-default:":8081"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"address" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeout" env-default:"3s"`
}

// Telegram структура с учётными данными телеграм-бота и платёжного провайдера.
type Telegram struct {
	Token         string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ProviderToken string `yaml:"provider_token" env:"PAYMENTS_PROVIDER_TOKEN"`
}

// AI структура с настройками клиента completion-API.
type AI struct {
	GeminiAPIKey   string        `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model          string        `yaml:"model" env-default:"gemini-2.5-flash"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"60s"`
	HistoryLimit   int           `yaml:"history_limit" env-default:"10"`
	Persona        string        `yaml:"persona"`
}

// Subscription структура с политикой доступа: пробный период, продление, цена.
type Subscription struct {
	TrialDays     int    `yaml:"trial_days" env-default:"3"`
	RenewalDays   int    `yaml:"renewal_days" env-default:"30"`
	PriceAmount   int64  `yaml:"price_amount" env-default:"18900"`
	PriceCurrency string `yaml:"price_currency" env-default:"RUB"`
}

// PaymentsEnabled сообщает, задан ли токен платёжного провайдера.
// Без него бот работает, но вместо счёта отвечает, что оплата недоступна.
func (t Telegram) PaymentsEnabled() bool {
	return t.ProviderToken != ""
}

// Enabled сообщает, задан ли ключ completion-API.
func (a AI) Enabled() bool {
	return a.GeminiAPIKey != ""
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
