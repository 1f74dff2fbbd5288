package stream

import (
	"context"

	"github.com/tinyids/console/pkg/models"
)

// Subscriber delivers backend push events until its context ends. Adapters
// own the connection lifecycle only; what an event means is up to the
// consumer.
type Subscriber interface {
	// Run connects and keeps the subscription alive, reconnecting as
	// needed, until ctx is cancelled.
	Run(ctx context.Context) error

	// Events is the delivery channel. It stays open across reconnects.
	Events() <-chan models.PushEvent
}
