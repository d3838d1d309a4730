package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
)

type RefreshSourceTask struct {
	Task
	Source    *database.FeedSource
	refresher Refresher
}

func NewRefreshSourceTask(source *database.FeedSource, refresher Refresher) *RefreshSourceTask {
	return &RefreshSourceTask{
		Task:      NewTask(TaskTypeRefreshSource, source.ID),
		Source:    source,
		refresher: refresher,
	}
}

func (t *RefreshSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.refresher.Refresh(ctx, t.Source)
	if err != nil {
		// A fetch or parse failure is already recorded on the source as
		// last_fetch_error; retrying it immediately would just hammer a
		// broken upstream. Only storage errors are worth a retry.
		var refreshErr *feed.RefreshError
		if errors.As(err, &refreshErr) {
			slog.Warn("Source refresh failed",
				"source_id", t.SourceID,
				"url", t.Source.URL,
				"reason", refreshErr.Reason)
			return nil
		}
		return fmt.Errorf("failed to refresh source: %w", err)
	}

	slog.Debug("Task completed",
		"type", t.GetType(),
		"source_id", t.SourceID,
		"duration", t.GetDuration())

	return nil
}
