package queue

import "context"

const (
	// WorkQueueName is the single delivery work queue. All admission paths
	// (due sweep, retry scanner, replay) feed it; messages differ only in
	// their trigger.
	WorkQueueName = "notes"
	// DLQName receives messages RabbitMQ dead-letters from the work queue.
	DLQName = "dlq.notes"
)

// Publisher publishes delivery messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DeliveryMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg DeliveryMessage) error

// Consumer consumes delivery messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
