package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Remote Remote
	Redis  Redis
}

type Remote struct {
	BaseURL           string        `env:"Remote_BaseURL" envDefault:"https://api.notion.com"`
	APIKey            string        `env:"Remote_APIKey"`
	Version           string        `env:"Remote_Version" envDefault:"2025-09-03"`
	Timeout           time.Duration `env:"Remote_Timeout" envDefault:"10s"`
	RetryBase         time.Duration `env:"Remote_RetryBase" envDefault:"1s"`
	RetryMax          time.Duration `env:"Remote_RetryMax" envDefault:"8s"`
	RetryAttempts     int           `env:"Remote_RetryAttempts" envDefault:"5"`
	RetryJitter       float64       `env:"Remote_RetryJitter" envDefault:"0.2"`
	MaxWalk           int           `env:"Remote_MaxWalk" envDefault:"10000"`
	AllowedPriorities []string      `env:"Remote_AllowedPriorities" envDefault:"Low,Medium,High,Urgent"`
}

type Redis struct {
	Addr     string `env:"Redis_Address" envDefault:"localhost:6379"`
	Password string `env:"Redis_Password"`
	DB       int    `env:"Redis_DB"`
}

func Load() *Config {
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal(err)
	}

	return &c
}
