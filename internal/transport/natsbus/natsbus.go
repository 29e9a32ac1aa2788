// Package natsbus carries vote intents over a NATS subject.
package natsbus

import (
	"encoding/json"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/votepoll/bot/internal/models"
	"github.com/votepoll/bot/internal/transport"
)

type Bus struct {
	nc      *natsgo.Conn
	subject string
	l       *zap.Logger
}

func New(nc *natsgo.Conn, subject string, l *zap.Logger) *Bus {
	return &Bus{
		nc:      nc,
		subject: subject,
		l:       l,
	}
}

// Publish sends the intent and forgets it. Failures are logged only; the
// sender retries by acting again.
func (b *Bus) Publish(intent models.Intent) {
	data, err := json.Marshal(intent)
	if err != nil {
		b.l.Error("failed to marshal intent", zap.Error(err))
		return
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		b.l.Warn("failed to publish intent",
			zap.String("subject", b.subject),
			zap.String("action", intent.Action),
			zap.Error(err))
	}
}

func (b *Bus) Subscribe(handler transport.Handler) error {
	_, err := b.nc.Subscribe(b.subject, func(msg *natsgo.Msg) {
		var intent models.Intent
		if err := json.Unmarshal(msg.Data, &intent); err != nil {
			b.l.Debug("dropping malformed intent",
				zap.String("subject", b.subject),
				zap.Error(err))
			return
		}
		handler(intent)
	})
	return err
}
