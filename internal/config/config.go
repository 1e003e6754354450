package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/1001R/bpm/pkg/mysql"
)

type Config struct {
	Telegram TelegramConfig   `yaml:"telegram"`
	Store    StoreConfig      `yaml:"store"`
	Kafka    KafkaConfig      `yaml:"kafka"`
	Accounts []AccountBinding `yaml:"accounts"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type StoreConfig struct {
	// "boltdb" or "mysql"
	Backend string       `yaml:"backend"`
	Path    string       `yaml:"path"`
	MySQL   mysql.Config `yaml:"mysql"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AccountBinding maps a telegram user onto a ledger account. Parents
// may book transactions, children only read.
type AccountBinding struct {
	TelegramID int64  `yaml:"telegram_id"`
	Account    string `yaml:"account"`
	Parent     bool   `yaml:"parent"`
}

// Load reads the yaml config and applies environment overrides for the
// secrets that should not live in the file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if token := os.Getenv("BPM_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if password := os.Getenv("BPM_MYSQL_PASSWORD"); password != "" {
		cfg.Store.MySQL.Password = password
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		Store: StoreConfig{
			Backend: "boltdb",
			Path:    "bpm.db",
			MySQL: mysql.Config{
				Port:            3306,
				MaxOpenConns:    100,
				MaxIdleConns:    10,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Kafka: KafkaConfig{
			Topic: "transaction_appended",
		},
	}
}
