package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/votepoll/bot/pkg/nats"
	"github.com/votepoll/bot/pkg/tarantool"
)

type Config struct {
	BotToken  string           `yaml:"BOT_TOKEN"  env:"BOT_TOKEN"`
	MmURL     string           `yaml:"MM_URL"     env:"MM_URL"`
	MmWsURL   string           `yaml:"MM_WS_URL"  env:"MM_WS_URL"`
	ChannelID string           `yaml:"CHANNEL_ID" env:"CHANNEL_ID"`
	LogLevel  string           `yaml:"LOG_LEVEL"  env:"LOG_LEVEL" env-default:"debug"`
	Moderator bool             `yaml:"MODERATOR"  env:"MODERATOR" env-default:"false"`
	Tarantool tarantool.Config `yaml:"TARANTOOL"  env:"TARANTOOL"`
	Nats      nats.Config      `yaml:"NATS"       env:"NATS"`
}

func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
