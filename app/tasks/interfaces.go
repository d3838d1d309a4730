package tasks

import (
	"context"

	"github.com/crgstar/patto/app/database"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application starts the worker pool, stops it on
// shutdown, and may enqueue ad-hoc tasks in between.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Refresher refreshes one feed source. Satisfied by feed.Ingestor.
type Refresher interface {
	Refresh(ctx context.Context, source *database.FeedSource) error
}
