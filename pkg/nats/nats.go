package nats

import (
	"fmt"

	natsgo "github.com/nats-io/nats.go"
)

type Config struct {
	URL string `yaml:"NATS_URL" env:"NATS_URL" env-default:"nats://localhost:4222"`
	// Subject carries the vote intents for this deployment.
	Subject string `yaml:"NATS_SUBJECT" env:"NATS_SUBJECT" env-default:"votepoll.intents"`
}

func New(config Config) (*natsgo.Conn, error) {
	conn, err := natsgo.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}
