package tasks

import (
	"context"
)

// Repository persists tasks keyed by their correlation id. Complete must be
// atomic per key; when two callbacks race for the same id the last write
// wins, which is the documented policy for firmware retries.
type Repository interface {
	Create(ctx context.Context, task *Task) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Complete(ctx context.Context, id string, response []byte) (*Task, error)
}
