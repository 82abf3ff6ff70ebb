package queue

import (
	"context"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/summarybench/batcheval/internal/queue",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Queuer

// Publishes run notifications for downstream consumers
type Queuer interface {
	// May block while queuing data. message is serialized as JSON.
	Enqueue(ctx context.Context, message any) error
}
