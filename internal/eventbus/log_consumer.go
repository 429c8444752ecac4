package eventbus

import (
	"context"
	"log"
)

// LogConsumer logs all change events.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	log.Printf("event: %s %s", evt.Type, evt.Subject)
	return nil
}
