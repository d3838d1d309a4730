package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crgstar/patto/app/database"
)

// In-memory repository doubles. Each one implements the documented contract
// of its interface closely enough for engine-level tests.

type mockWidgetRepo struct {
	widgets []database.Widget
	nextID  int
}

var _ database.WidgetRepository = (*mockWidgetRepo)(nil)

func (m *mockWidgetRepo) Create(userID, kind, title string) (*database.Widget, error) {
	m.nextID++
	w := database.Widget{
		ID:     fmt.Sprintf("widget-%03d", m.nextID),
		UserID: userID,
		Kind:   kind,
		Title:  title,
	}
	m.widgets = append(m.widgets, w)
	return &w, nil
}

func (m *mockWidgetRepo) GetOwned(userID, widgetID string) (*database.Widget, error) {
	for i := range m.widgets {
		w := &m.widgets[i]
		if w.ID == widgetID && w.UserID == userID && w.DeletedAt == nil {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockWidgetRepo) GetByTitle(userID, kind, title string) (*database.Widget, error) {
	for i := range m.widgets {
		w := &m.widgets[i]
		if w.UserID == userID && w.Kind == kind && w.Title == title && w.DeletedAt == nil {
			copied := *w
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockWidgetRepo) SoftDeleteWithBindings(userID, widgetID string) error {
	now := time.Now()
	for i := range m.widgets {
		w := &m.widgets[i]
		if w.ID == widgetID && w.UserID == userID && w.DeletedAt == nil {
			w.DeletedAt = &now
			return nil
		}
	}
	return database.ErrNotFound
}

type mockSourceRepo struct {
	sources []database.FeedSource
	nextID  int
}

var _ database.SourceRepository = (*mockSourceRepo)(nil)

func (m *mockSourceRepo) add(s database.FeedSource) *database.FeedSource {
	if s.ID == "" {
		m.nextID++
		s.ID = fmt.Sprintf("source-%03d", m.nextID)
	}
	m.sources = append(m.sources, s)
	return &m.sources[len(m.sources)-1]
}

func (m *mockSourceRepo) find(sourceID string) *database.FeedSource {
	for i := range m.sources {
		if m.sources[i].ID == sourceID {
			return &m.sources[i]
		}
	}
	return nil
}

func (m *mockSourceRepo) Create(userID, url, title, description string) (*database.FeedSource, error) {
	for i := range m.sources {
		s := &m.sources[i]
		if s.UserID == userID && s.URL == url && s.DeletedAt == nil {
			return nil, database.ErrDuplicate
		}
	}
	created := m.add(database.FeedSource{UserID: userID, URL: url, Title: title, Description: description})
	copied := *created
	return &copied, nil
}

func (m *mockSourceRepo) GetOwned(userID, sourceID string) (*database.FeedSource, error) {
	s := m.find(sourceID)
	if s == nil || s.UserID != userID || s.DeletedAt != nil {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockSourceRepo) GetByURLIncludingDeleted(userID, url string) (*database.FeedSource, error) {
	var deleted *database.FeedSource
	for i := range m.sources {
		s := &m.sources[i]
		if s.UserID == userID && s.URL == url {
			if s.DeletedAt == nil {
				copied := *s
				return &copied, nil
			}
			deleted = s
		}
	}
	if deleted == nil {
		return nil, nil
	}
	copied := *deleted
	return &copied, nil
}

func (m *mockSourceRepo) Restore(sourceID, title, description string) (*database.FeedSource, error) {
	s := m.find(sourceID)
	if s == nil {
		return nil, nil
	}
	s.DeletedAt = nil
	if title != "" {
		s.Title = title
	}
	if description != "" {
		s.Description = description
	}
	copied := *s
	return &copied, nil
}

func (m *mockSourceRepo) ListByOwner(userID string) ([]database.FeedSource, error) {
	var out []database.FeedSource
	for _, s := range m.sources {
		if s.UserID == userID && s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSourceRepo) ListActiveByIDs(ids []string) ([]database.FeedSource, error) {
	var out []database.FeedSource
	for _, id := range ids {
		if s := m.find(id); s != nil && s.DeletedAt == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSourceRepo) ListDueForRefresh(olderThan time.Time, limit int) ([]database.FeedSource, error) {
	var out []database.FeedSource
	for _, s := range m.sources {
		if s.DeletedAt != nil {
			continue
		}
		if s.LastFetchedAt == nil || !s.LastFetchedAt.After(olderThan) {
			out = append(out, s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockSourceRepo) UpdateDetails(userID, sourceID, title, description string) (*database.FeedSource, error) {
	s := m.find(sourceID)
	if s == nil || s.UserID != userID || s.DeletedAt != nil {
		return nil, nil
	}
	s.Title = title
	s.Description = description
	copied := *s
	return &copied, nil
}

func (m *mockSourceRepo) RecordFetchSuccess(sourceID, title, description string) error {
	s := m.find(sourceID)
	if s == nil {
		return fmt.Errorf("unknown source %s", sourceID)
	}
	if s.Title == "" {
		s.Title = title
	}
	if s.Description == "" {
		s.Description = description
	}
	now := time.Now()
	s.LastFetchedAt = &now
	s.LastFetchError = nil
	return nil
}

func (m *mockSourceRepo) RecordFetchFailure(sourceID, message string) error {
	s := m.find(sourceID)
	if s == nil {
		return fmt.Errorf("unknown source %s", sourceID)
	}
	now := time.Now()
	s.LastFetchedAt = &now
	s.LastFetchError = &message
	return nil
}

func (m *mockSourceRepo) SoftDelete(userID, sourceID string) error {
	s := m.find(sourceID)
	if s == nil || s.UserID != userID || s.DeletedAt != nil {
		return database.ErrNotFound
	}
	now := time.Now()
	s.DeletedAt = &now
	return nil
}

type mockItemRepo struct {
	items  []database.FeedItem
	nextID int
}

var _ database.ItemRepository = (*mockItemRepo)(nil)

func (m *mockItemRepo) InsertIfAbsent(sourceID string, item database.NewItem) (bool, error) {
	for _, existing := range m.items {
		if existing.SourceID == sourceID && existing.GUID == item.GUID && existing.DeletedAt == nil {
			return false, nil
		}
	}
	m.nextID++
	m.items = append(m.items, database.FeedItem{
		ID:          fmt.Sprintf("item-%03d", m.nextID),
		SourceID:    sourceID,
		GUID:        item.GUID,
		Title:       item.Title,
		URL:         item.URL,
		Description: item.Description,
		Content:     item.Content,
		Author:      item.Author,
		PublishedAt: item.PublishedAt,
	})
	return true, nil
}

func (m *mockItemRepo) GetByID(itemID string) (*database.FeedItem, error) {
	for i := range m.items {
		if m.items[i].ID == itemID && m.items[i].DeletedAt == nil {
			copied := m.items[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockItemRepo) ListBySourceIDs(sourceIDs []string) ([]database.FeedItem, error) {
	wanted := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[id] = true
	}

	var out []database.FeedItem
	for _, item := range m.items {
		if wanted[item.SourceID] && item.DeletedAt == nil {
			out = append(out, item)
		}
	}

	// published_at DESC NULLS LAST, id DESC
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.PublishedAt == nil && b.PublishedAt == nil:
			return a.ID > b.ID
		case a.PublishedAt == nil:
			return false
		case b.PublishedAt == nil:
			return true
		case a.PublishedAt.Equal(*b.PublishedAt):
			return a.ID > b.ID
		default:
			return a.PublishedAt.After(*b.PublishedAt)
		}
	})
	return out, nil
}

func (m *mockItemRepo) CountBySource(sourceID string) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.SourceID == sourceID && item.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

type mockBindingRepo struct {
	bindings []database.Binding
	nextID   int
}

var _ database.BindingRepository = (*mockBindingRepo)(nil)

func (m *mockBindingRepo) Insert(widgetID, sourceID string, position int) (*database.Binding, error) {
	for _, b := range m.bindings {
		if b.WidgetID == widgetID && b.SourceID == sourceID && b.DeletedAt == nil {
			return nil, database.ErrDuplicate
		}
	}
	m.nextID++
	b := database.Binding{
		ID:       fmt.Sprintf("binding-%03d", m.nextID),
		WidgetID: widgetID,
		SourceID: sourceID,
		Position: position,
	}
	m.bindings = append(m.bindings, b)
	return &b, nil
}

func (m *mockBindingRepo) ListByWidget(widgetID string) ([]database.Binding, error) {
	var out []database.Binding
	for _, b := range m.bindings {
		if b.WidgetID == widgetID && b.DeletedAt == nil {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *mockBindingRepo) GetOwned(widgetID, bindingID string) (*database.Binding, error) {
	for i := range m.bindings {
		b := &m.bindings[i]
		if b.ID == bindingID && b.WidgetID == widgetID && b.DeletedAt == nil {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockBindingRepo) SoftDelete(bindingID string) error {
	now := time.Now()
	for i := range m.bindings {
		b := &m.bindings[i]
		if b.ID == bindingID && b.DeletedAt == nil {
			b.DeletedAt = &now
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *mockBindingRepo) Reorder(widgetID string, positions []database.BindingPosition) error {
	// All-or-nothing, like the SQL transaction: resolve the whole batch
	// before applying any update.
	targets := make([]*database.Binding, 0, len(positions))
	for _, p := range positions {
		var found *database.Binding
		for i := range m.bindings {
			b := &m.bindings[i]
			if b.ID == p.BindingID && b.WidgetID == widgetID && b.DeletedAt == nil {
				found = b
				break
			}
		}
		if found == nil {
			return database.ErrNotFound
		}
		targets = append(targets, found)
	}
	for i, p := range positions {
		targets[i].Position = p.Position
	}
	return nil
}

type mockReadStateRepo struct {
	states map[string]*database.ReadState
}

var _ database.ReadStateRepository = (*mockReadStateRepo)(nil)

func newMockReadStateRepo() *mockReadStateRepo {
	return &mockReadStateRepo{states: make(map[string]*database.ReadState)}
}

func (m *mockReadStateRepo) key(userID, itemID string) string {
	return userID + "|" + itemID
}

func (m *mockReadStateRepo) upsert(userID, itemID string) *database.ReadState {
	k := m.key(userID, itemID)
	if s, ok := m.states[k]; ok {
		return s
	}
	s := &database.ReadState{UserID: userID, ItemID: itemID}
	m.states[k] = s
	return s
}

func (m *mockReadStateRepo) SetRead(userID, itemID string, read bool, readAt *time.Time) error {
	s := m.upsert(userID, itemID)
	s.Read = read
	s.ReadAt = readAt
	return nil
}

func (m *mockReadStateRepo) SetStarred(userID, itemID string, starred bool) error {
	s := m.upsert(userID, itemID)
	s.Starred = starred
	return nil
}

func (m *mockReadStateRepo) ReadItemIDs(userID string, itemIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range itemIDs {
		if s, ok := m.states[m.key(userID, id)]; ok && s.Read {
			out[id] = true
		}
	}
	return out, nil
}

func (m *mockReadStateRepo) StarredItemIDs(userID string, itemIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range itemIDs {
		if s, ok := m.states[m.key(userID, id)]; ok && s.Starred {
			out[id] = true
		}
	}
	return out, nil
}

type mockFetcher struct {
	results map[string]*FetchResult
	errs    map[string]error
	calls   []string
}

var _ Fetcher = (*mockFetcher)(nil)

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		results: make(map[string]*FetchResult),
		errs:    make(map[string]error),
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	m.calls = append(m.calls, url)
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if res, ok := m.results[url]; ok {
		return res, nil
	}
	return &FetchResult{StatusCode: 200, Body: []byte("ok")}, nil
}

type mockParser struct {
	feed *ParsedFeed
	err  error
}

var _ Parser = (*mockParser)(nil)

func (m *mockParser) Parse(data []byte) (*ParsedFeed, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.feed, nil
}

type panicParser struct{}

var _ Parser = (*panicParser)(nil)

func (p *panicParser) Parse(data []byte) (*ParsedFeed, error) {
	panic("boom")
}
