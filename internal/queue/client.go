package queue

import "context"

// Client sends batch-continuation messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
