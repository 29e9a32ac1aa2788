// Package transport defines the shared intent channel between broadcasters
// and the poll authority. Delivery is fire-and-forget: publishing returns
// nothing, there is no delivery guarantee and no ordering across senders.
package transport

import "github.com/votepoll/bot/internal/models"

type Handler func(models.Intent)

type Publisher interface {
	Publish(intent models.Intent)
}

type Subscriber interface {
	Subscribe(handler Handler) error
}

type Bus interface {
	Publisher
	Subscriber
}
