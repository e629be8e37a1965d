package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config - глобальная конфигурация бота
type Config struct {
	BotToken string   `env:"API_TOKEN,required"`
	Channels []string `env:"CHANNELS" envSeparator:","` // Обязательные каналы (@name или id|invite)
	Admins   []int64  `env:"ADMINS" envSeparator:","`

	KeysFilename  string `env:"KEYS_FILENAME" envDefault:"keys.txt"`
	UsersFilename string `env:"USERS_FILENAME" envDefault:"users.json"`

	// Порог остатка, при котором админам уходит предупреждение
	LowStockThreshold int `env:"KEYS_LEN_ALERT" envDefault:"50"`

	// Redis опционален: без него пул работает по файлу,
	// а антифлуд становится локальным для процесса.
	RedisURL string `env:"REDIS_URL"`

	// Окно между выдачами одному пользователю
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"336h"`

	// Минимальный интервал между выплатами одному рефереру
	RefPayoutInterval time.Duration `env:"REF_PAYOUT_INTERVAL" envDefault:"1s"`

	// Webhook-режим включается, если задан WEBHOOK_HOST.
	WebhookHost string `env:"WEBHOOK_HOST"`
	WebhookPath string `env:"WEBHOOK_PATH" envDefault:"/webhook"`
	WebhookPort int    `env:"WEBHOOK_PORT" envDefault:"8443"`
	SSLCert     string `env:"SSL_CERT" envDefault:"webhook.pem"`
	SSLKey      string `env:"SSL_KEY" envDefault:"webhook.key"`
}

// LoadConfig - загружает настройки из окружения (.env подхватывает
// godotenv/autoload в main).
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// WebhookURL - публичный адрес, который регистрируется в Telegram.
func (c *Config) WebhookURL() string {
	return c.WebhookHost + c.WebhookPath
}

// IsAdmin проверяет, входит ли пользователь в список админов.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
