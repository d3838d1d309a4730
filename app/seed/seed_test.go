package seed

import (
	"context"
	"testing"
	"time"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
)

type stubUserRepo struct {
	users map[string]*database.User
}

func (s *stubUserRepo) GetByID(id string) (*database.User, error) {
	return nil, nil
}

func (s *stubUserRepo) GetOrCreateByEmail(email string) (*database.User, error) {
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	u := &database.User{ID: "user-" + email, Email: email}
	s.users[email] = u
	return u, nil
}

type stubWidgetRepo struct {
	widgets map[string]*database.Widget
	created int
}

func (s *stubWidgetRepo) Create(userID, kind, title string) (*database.Widget, error) {
	s.created++
	w := &database.Widget{ID: "widget-" + title, UserID: userID, Kind: kind, Title: title}
	s.widgets[userID+"|"+kind+"|"+title] = w
	return w, nil
}

func (s *stubWidgetRepo) GetOwned(userID, widgetID string) (*database.Widget, error) {
	return nil, nil
}

func (s *stubWidgetRepo) GetByTitle(userID, kind, title string) (*database.Widget, error) {
	return s.widgets[userID+"|"+kind+"|"+title], nil
}

func (s *stubWidgetRepo) SoftDeleteWithBindings(userID, widgetID string) error {
	return nil
}

type stubSourceRepo struct {
	byURL map[string]*database.FeedSource
}

func (s *stubSourceRepo) Create(userID, url, title, description string) (*database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) GetOwned(userID, sourceID string) (*database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) GetByURLIncludingDeleted(userID, url string) (*database.FeedSource, error) {
	return s.byURL[userID+"|"+url], nil
}

func (s *stubSourceRepo) Restore(sourceID, title, description string) (*database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) ListByOwner(userID string) ([]database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) ListActiveByIDs(ids []string) ([]database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) ListDueForRefresh(olderThan time.Time, limit int) ([]database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) UpdateDetails(userID, sourceID, title, description string) (*database.FeedSource, error) {
	return nil, nil
}

func (s *stubSourceRepo) RecordFetchSuccess(sourceID, title, description string) error {
	return nil
}

func (s *stubSourceRepo) RecordFetchFailure(sourceID, message string) error {
	return nil
}

func (s *stubSourceRepo) SoftDelete(userID, sourceID string) error {
	return nil
}

// stubCreator answers create-or-restore like the real ingestor: first call
// per url creates, later calls report the url as taken.
type stubCreator struct {
	repo   *stubSourceRepo
	nextID int
}

var _ SourceCreator = (*stubCreator)(nil)

func (s *stubCreator) CreateOrRestoreSource(ctx context.Context, userID, rawURL, title, description string) (*database.FeedSource, error) {
	key := userID + "|" + rawURL
	if _, ok := s.repo.byURL[key]; ok {
		return nil, &feed.ValidationError{Field: "url", Message: "has already been taken"}
	}
	s.nextID++
	source := &database.FeedSource{ID: "source-" + rawURL, UserID: userID, URL: rawURL, Title: title}
	s.repo.byURL[key] = source
	return source, nil
}

type stubSubscriber struct {
	bound map[string]bool
}

var _ Subscriber = (*stubSubscriber)(nil)

func (s *stubSubscriber) Subscribe(ctx context.Context, userID, widgetID, sourceID string, position int) (*database.Binding, error) {
	key := widgetID + "|" + sourceID
	if s.bound[key] {
		return nil, feed.ErrAlreadySubscribed
	}
	s.bound[key] = true
	return &database.Binding{ID: "binding-" + sourceID, WidgetID: widgetID, SourceID: sourceID, Position: position}, nil
}

func newApplierFixture() (*Applier, *stubUserRepo, *stubWidgetRepo, *stubSubscriber) {
	users := &stubUserRepo{users: make(map[string]*database.User)}
	widgets := &stubWidgetRepo{widgets: make(map[string]*database.Widget)}
	sources := &stubSourceRepo{byURL: make(map[string]*database.FeedSource)}
	creator := &stubCreator{repo: sources}
	subscriber := &stubSubscriber{bound: make(map[string]bool)}
	return NewApplier(users, widgets, sources, creator, subscriber), users, widgets, subscriber
}

func sampleSeed() *File {
	return &File{Users: []UserSeed{
		{
			Email: "user@example.com",
			Sources: []SourceSeed{
				{URL: "https://a.example.com/feed", Title: "A"},
				{URL: "https://b.example.com/feed"},
			},
			Reader: &ReaderSeed{Title: "Reading List"},
		},
	}}
}

func TestApply(t *testing.T) {
	applier, users, widgets, subscriber := newApplierFixture()

	if err := applier.Apply(context.Background(), sampleSeed()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(users.users) != 1 {
		t.Errorf("expected 1 user created, got %d", len(users.users))
	}
	if widgets.created != 1 {
		t.Errorf("expected 1 widget created, got %d", widgets.created)
	}
	if len(subscriber.bound) != 2 {
		t.Errorf("expected 2 bindings, got %d", len(subscriber.bound))
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	applier, users, widgets, subscriber := newApplierFixture()

	for i := 0; i < 2; i++ {
		if err := applier.Apply(context.Background(), sampleSeed()); err != nil {
			t.Fatalf("apply %d: unexpected error: %v", i+1, err)
		}
	}

	if len(users.users) != 1 || widgets.created != 1 || len(subscriber.bound) != 2 {
		t.Errorf("expected no duplicates on re-apply: users=%d widgets=%d bindings=%d",
			len(users.users), widgets.created, len(subscriber.bound))
	}
}

func TestApplyWithoutReader(t *testing.T) {
	applier, _, widgets, subscriber := newApplierFixture()

	file := &File{Users: []UserSeed{{
		Email:   "user@example.com",
		Sources: []SourceSeed{{URL: "https://a.example.com/feed"}},
	}}}

	if err := applier.Apply(context.Background(), file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if widgets.created != 0 || len(subscriber.bound) != 0 {
		t.Error("expected no widget or bindings without a reader seed")
	}
}
