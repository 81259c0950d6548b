// Package history keeps an append-only log of organize runs.
package history

import (
	"context"

	"fjacquet/fiscal-organizer/internal/models"
)

// Recorder persists run records. Implementations must be safe for
// concurrent use; a failing Recorder never fails the run itself.
type Recorder interface {
	Record(ctx context.Context, run models.RunRecord) error
}

// Store is a Recorder that can also list past runs.
type Store interface {
	Recorder
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
	Get(ctx context.Context, id string) (*models.RunRecord, error)
	Close() error
}

// NopRecorder discards every record.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, models.RunRecord) error { return nil }
