package feed

import (
	"context"
	"time"

	"github.com/crgstar/patto/app/database"
)

// Query produces the filtered, paginated, read-annotated article views a
// reader widget displays. Read state is resolved per requesting user; an
// item without a read-state row counts as unread.
type Query struct {
	widgets  database.WidgetRepository
	bindings database.BindingRepository
	sources  database.SourceRepository
	items    database.ItemRepository
	reads    database.ReadStateRepository
}

func NewQuery(widgets database.WidgetRepository, bindings database.BindingRepository,
	sources database.SourceRepository, items database.ItemRepository,
	reads database.ReadStateRepository) *Query {
	return &Query{
		widgets:  widgets,
		bindings: bindings,
		sources:  sources,
		items:    items,
		reads:    reads,
	}
}

// List returns one page of the widget's articles for the given user.
// Requesting a source the widget is not bound to (or that has been deleted)
// yields an empty page, not an error, so the UI survives a binding being
// removed mid-session.
func (q *Query) List(ctx context.Context, userID, widgetID string, opts ListOptions) (*ListResult, error) {
	items, sourcesByID, err := q.collectItems(userID, widgetID, opts.SourceID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]string, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	readIDs, err := q.reads.ReadItemIDs(userID, itemIDs)
	if err != nil {
		return nil, err
	}
	starredIDs, err := q.reads.StarredItemIDs(userID, itemIDs)
	if err != nil {
		return nil, err
	}

	filtered := make([]database.FeedItem, 0, len(items))
	for _, item := range items {
		switch opts.Filter {
		case FilterRead:
			if !readIDs[item.ID] {
				continue
			}
		case FilterUnread:
			if readIDs[item.ID] {
				continue
			}
		case FilterStarred:
			if !starredIDs[item.ID] {
				continue
			}
		}
		filtered = append(filtered, item)
	}

	offset, limit := clampPage(opts.Offset, opts.Limit)
	totalCount := len(filtered)

	page := filtered
	if offset >= len(page) {
		page = nil
	} else {
		page = page[offset:]
	}
	if len(page) > limit {
		page = page[:limit]
	}

	views := make([]ItemView, 0, len(page))
	for _, item := range page {
		view := ItemView{
			FeedItem: item,
			Read:     readIDs[item.ID],
			Starred:  starredIDs[item.ID],
		}
		if src, ok := sourcesByID[item.SourceID]; ok {
			view.Source = SourceRef{ID: src.ID, Domain: displayDomain(src.URL)}
		}
		views = append(views, view)
	}

	return &ListResult{
		Items:      views,
		TotalCount: totalCount,
		HasMore:    offset+limit < totalCount,
	}, nil
}

// UnreadCount counts the widget's articles with no read-state row for the
// user or one with read=false. Shares its predicate with List's unread
// filter so the badge count always matches the filtered listing.
func (q *Query) UnreadCount(ctx context.Context, userID, widgetID string) (int, error) {
	items, _, err := q.collectItems(userID, widgetID, "")
	if err != nil {
		return 0, err
	}

	itemIDs := make([]string, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	readIDs, err := q.reads.ReadItemIDs(userID, itemIDs)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		if !readIDs[item.ID] {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one of the widget's items read for the user, creating the
// read-state row on first touch.
func (q *Query) MarkRead(ctx context.Context, userID, widgetID, itemID string) error {
	now := time.Now().UTC()
	return q.setRead(userID, widgetID, itemID, true, &now)
}

func (q *Query) MarkUnread(ctx context.Context, userID, widgetID, itemID string) error {
	return q.setRead(userID, widgetID, itemID, false, nil)
}

// MarkAllRead marks every article across every bound source read, not just
// the current page. Returns the number of items covered.
func (q *Query) MarkAllRead(ctx context.Context, userID, widgetID string) (int, error) {
	items, _, err := q.collectItems(userID, widgetID, "")
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, item := range items {
		if err := q.reads.SetRead(userID, item.ID, true, &now); err != nil {
			return 0, err
		}
	}
	return len(items), nil
}

func (q *Query) Star(ctx context.Context, userID, widgetID, itemID string) error {
	return q.setStarred(userID, widgetID, itemID, true)
}

func (q *Query) Unstar(ctx context.Context, userID, widgetID, itemID string) error {
	return q.setStarred(userID, widgetID, itemID, false)
}

func (q *Query) setRead(userID, widgetID, itemID string, read bool, readAt *time.Time) error {
	if _, err := q.resolveItem(userID, widgetID, itemID); err != nil {
		return err
	}
	return q.reads.SetRead(userID, itemID, read, readAt)
}

func (q *Query) setStarred(userID, widgetID, itemID string, starred bool) error {
	if _, err := q.resolveItem(userID, widgetID, itemID); err != nil {
		return err
	}
	return q.reads.SetStarred(userID, itemID, starred)
}

// resolveItem checks that the item exists and belongs to one of the widget's
// bound active sources. Anything else is reported as not-found.
func (q *Query) resolveItem(userID, widgetID, itemID string) (*database.FeedItem, error) {
	_, sourcesByID, err := q.resolveSources(userID, widgetID)
	if err != nil {
		return nil, err
	}

	item, err := q.items.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	if _, ok := sourcesByID[item.SourceID]; !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// collectItems resolves the widget's bound active sources and returns their
// items, optionally narrowed to a single source. A deleted or unbound source
// contributes nothing.
func (q *Query) collectItems(userID, widgetID, sourceID string) ([]database.FeedItem, map[string]database.FeedSource, error) {
	sourceIDs, sourcesByID, err := q.resolveSources(userID, widgetID)
	if err != nil {
		return nil, nil, err
	}

	if sourceID != "" {
		if _, ok := sourcesByID[sourceID]; !ok {
			return nil, sourcesByID, nil
		}
		sourceIDs = []string{sourceID}
	}

	items, err := q.items.ListBySourceIDs(sourceIDs)
	if err != nil {
		return nil, nil, err
	}
	return items, sourcesByID, nil
}

func (q *Query) resolveSources(userID, widgetID string) ([]string, map[string]database.FeedSource, error) {
	widget, err := q.widgets.GetOwned(userID, widgetID)
	if err != nil {
		return nil, nil, err
	}
	if widget == nil {
		return nil, nil, ErrWidgetNotFound
	}

	bindings, err := q.bindings.ListByWidget(widgetID)
	if err != nil {
		return nil, nil, err
	}

	boundIDs := make([]string, 0, len(bindings))
	seen := make(map[string]bool)
	for _, b := range bindings {
		if !seen[b.SourceID] {
			seen[b.SourceID] = true
			boundIDs = append(boundIDs, b.SourceID)
		}
	}

	sources, err := q.sources.ListActiveByIDs(boundIDs)
	if err != nil {
		return nil, nil, err
	}

	sourcesByID := make(map[string]database.FeedSource, len(sources))
	activeIDs := make([]string, 0, len(sources))
	for _, s := range sources {
		sourcesByID[s.ID] = s
		activeIDs = append(activeIDs, s.ID)
	}
	return activeIDs, sourcesByID, nil
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return offset, limit
}
