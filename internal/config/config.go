package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Stripe struct {
		APIKey        string `mapstructure:"apiKey"`
		WebhookSecret string `mapstructure:"webhookSecret"`
	} `mapstructure:"stripe"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	Funding struct {
		// Доля платформы от каждого платежа (0.025 = 2.5%)
		PlatformFeeRate float64 `mapstructure:"platformFeeRate"`
		Currency        string  `mapstructure:"currency"`
	} `mapstructure:"funding"`
}

// LoadConfig загружает конфигурацию из файла config.yml и переменных окружения.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env не обязателен: вне production его отсутствие не ошибка
		_ = godotenv.Load(envPath)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.env", "development")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("funding.platformFeeRate", 0.025)
	viper.SetDefault("funding.currency", "usd")

	viper.AutomaticEnv() // Чтение переменных окружения

	if err := viper.ReadInConfig(); err != nil {
		// Конфиг-файл не обязателен, если все задано через окружение
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Переменные окружения имеют приоритет над файлом
	bindEnvOverrides()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindEnvOverrides связывает плоские переменные окружения с вложенными ключами.
func bindEnvOverrides() {
	overrides := map[string]string{
		"app.port":                "PORT",
		"app.env":                 "APP_ENV",
		"logging.level":           "LOG_LEVEL",
		"database.dsn":            "DATABASE_DSN",
		"redis.addr":              "REDIS_ADDR",
		"redis.password":          "REDIS_PASSWORD",
		"kafka.brokers":           "KAFKA_BROKERS",
		"stripe.apiKey":           "STRIPE_SECRET_KEY",
		"stripe.webhookSecret":    "STRIPE_WEBHOOK_SECRET",
		"auth.jwtSecret":          "JWT_SECRET",
		"funding.currency":        "FUNDING_CURRENCY",
		"funding.platformFeeRate": "PLATFORM_FEE_RATE",
	}
	for key, env := range overrides {
		if v := os.Getenv(env); v != "" {
			viper.Set(key, v)
		}
	}
}
