package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/crgstar/patto/app/database"
)

const (
	maxURLLength   = 2048
	maxGUIDLength  = 500
	maxTitleLength = 500
)

// Ingestor orchestrates fetch, parse and upsert for feed sources. Fetch and
// parse failures are recorded on the source as last_fetch_error and reported
// as *RefreshError; they never abort a batch refresh of sibling sources.
type Ingestor struct {
	fetcher     Fetcher
	parser      Parser
	widgets     database.WidgetRepository
	bindings    database.BindingRepository
	sources     database.SourceRepository
	items       database.ItemRepository
	concurrency int
}

func NewIngestor(fetcher Fetcher, parser Parser, widgets database.WidgetRepository,
	bindings database.BindingRepository, sources database.SourceRepository,
	items database.ItemRepository, concurrency int) *Ingestor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingestor{
		fetcher:     fetcher,
		parser:      parser,
		widgets:     widgets,
		bindings:    bindings,
		sources:     sources,
		items:       items,
		concurrency: concurrency,
	}
}

// Refresh fetches, parses and ingests one source. Whatever happens,
// last_fetched_at is stamped before it returns; any failure short of a
// storage error is recorded as last_fetch_error and returned as
// *RefreshError. Re-running against an unchanged upstream feed is a no-op:
// ingestion is insert-if-absent on (source, guid) and never rewrites an
// existing item.
func (ing *Ingestor) Refresh(ctx context.Context, source *database.FeedSource) (err error) {
	defer func() {
		if r := recover(); r != nil {
			reason := truncate(fmt.Sprintf("%v", r), 1000)
			if recordErr := ing.sources.RecordFetchFailure(source.ID, reason); recordErr != nil {
				err = recordErr
				return
			}
			err = &RefreshError{Reason: reason}
		}
	}()

	result, err := ing.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return ing.recordFailure(source, truncate(err.Error(), 1000))
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return ing.recordFailure(source, fmt.Sprintf("Failed to fetch feed: HTTP %d", result.StatusCode))
	}

	parsed, err := ing.parser.Parse(result.Body)
	if err != nil {
		if err == ErrUnsupportedFormat {
			return ing.recordFailure(source, fmt.Sprintf("Unsupported feed format: %s", err))
		}
		return ing.recordFailure(source, "Failed to parse feed")
	}

	err = ing.sources.RecordFetchSuccess(source.ID, truncate(parsed.Title, 255), parsed.Description)
	if err != nil {
		return err
	}

	newCount := 0
	skippedCount := 0
	for _, entry := range parsed.Entries {
		guid := entry.ID
		if guid == "" {
			guid = entry.URL
		}
		if guid == "" || entry.URL == "" {
			skippedCount++
			continue
		}

		title := entry.Title
		if title == "" {
			title = "Untitled"
		}

		inserted, err := ing.items.InsertIfAbsent(source.ID, database.NewItem{
			GUID:        truncate(guid, maxGUIDLength),
			Title:       truncate(title, maxTitleLength),
			URL:         truncate(entry.URL, maxURLLength),
			Description: entry.Summary,
			Content:     entry.Content,
			Author:      truncate(entry.Author, 255),
			PublishedAt: entry.PublishedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to store item: %w", err)
		}
		if inserted {
			newCount++
		}
	}

	slog.Info("Source refreshed",
		"source_id", source.ID,
		"url", source.URL,
		"total", len(parsed.Entries),
		"new", newCount,
		"skipped", skippedCount)

	return nil
}

// RefreshAll refreshes every distinct active source bound to the widget,
// fanning out over a bounded worker pool so one unreachable feed cannot
// delay the others. Per-source failures are recorded on their source rows;
// the batch itself only fails when the widget cannot be resolved.
func (ing *Ingestor) RefreshAll(ctx context.Context, userID, widgetID string) error {
	widget, err := ing.widgets.GetOwned(userID, widgetID)
	if err != nil {
		return err
	}
	if widget == nil {
		return ErrWidgetNotFound
	}

	bindings, err := ing.bindings.ListByWidget(widgetID)
	if err != nil {
		return err
	}

	sourceIDs := make([]string, 0, len(bindings))
	seen := make(map[string]bool)
	for _, b := range bindings {
		if !seen[b.SourceID] {
			seen[b.SourceID] = true
			sourceIDs = append(sourceIDs, b.SourceID)
		}
	}

	sources, err := ing.sources.ListActiveByIDs(sourceIDs)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, ing.concurrency)
	for i := range sources {
		source := sources[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := ing.Refresh(ctx, &source); err != nil {
				slog.Warn("Source refresh failed", "source_id", source.ID, "url", source.URL, "error", err)
			}
		}()
	}
	wg.Wait()

	return nil
}

// CreateOrRestoreSource registers a feed source for the user. A logically
// deleted source with the same URL is restored, keeping its row and its
// ingested history, instead of creating a duplicate. The source is refreshed
// immediately so the UI has a title to show.
func (ing *Ingestor) CreateOrRestoreSource(ctx context.Context, userID, rawURL, title, description string) (*database.FeedSource, error) {
	if err := validateSourceURL(rawURL); err != nil {
		return nil, err
	}

	existing, err := ing.sources.GetByURLIncludingDeleted(userID, rawURL)
	if err != nil {
		return nil, err
	}

	var source *database.FeedSource
	switch {
	case existing != nil && existing.DeletedAt != nil:
		source, err = ing.sources.Restore(existing.ID, title, description)
		if err != nil {
			return nil, err
		}
	case existing != nil:
		return nil, &ValidationError{Field: "url", Message: "has already been taken"}
	default:
		source, err = ing.sources.Create(userID, rawURL, title, description)
		if err != nil {
			if err == database.ErrDuplicate {
				return nil, &ValidationError{Field: "url", Message: "has already been taken"}
			}
			return nil, err
		}
	}

	if err := ing.Refresh(ctx, source); err != nil {
		if _, ok := err.(*RefreshError); !ok {
			slog.Error("Initial refresh failed", "source_id", source.ID, "error", err)
		}
	}

	refreshed, err := ing.sources.GetOwned(userID, source.ID)
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return source, nil
	}
	return refreshed, nil
}

func (ing *Ingestor) recordFailure(source *database.FeedSource, reason string) error {
	if err := ing.sources.RecordFetchFailure(source.ID, reason); err != nil {
		return err
	}
	return &RefreshError{Reason: reason}
}

func validateSourceURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "can't be blank"}
	}
	if len(rawURL) > maxURLLength {
		return &ValidationError{Field: "url", Message: "is too long (maximum is 2048 characters)"}
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "url", Message: "is invalid"}
	}
	return nil
}

// truncate limits s to max characters. Column limits are expressed in
// characters, so count runes rather than bytes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
