package database

import (
	"errors"
	"time"
)

// ErrDuplicate is returned by insert operations when a uniqueness constraint
// rejects the row.
var ErrDuplicate = errors.New("row already exists")

// ErrNotFound is returned by batch operations when a referenced row does not
// resolve; the enclosing transaction is rolled back.
var ErrNotFound = errors.New("row not found")

type UserRepository interface {
	GetByID(id string) (*User, error)
	GetOrCreateByEmail(email string) (*User, error)
}

type WidgetRepository interface {
	Create(userID, kind, title string) (*Widget, error)
	GetOwned(userID, widgetID string) (*Widget, error)
	GetByTitle(userID, kind, title string) (*Widget, error)

	// SoftDeleteWithBindings tombstones the widget and every active binding
	// owned by it in a single transaction.
	SoftDeleteWithBindings(userID, widgetID string) error
}

type SourceRepository interface {
	Create(userID, url, title, description string) (*FeedSource, error)
	GetOwned(userID, sourceID string) (*FeedSource, error)
	GetByURLIncludingDeleted(userID, url string) (*FeedSource, error)
	Restore(sourceID, title, description string) (*FeedSource, error)
	ListByOwner(userID string) ([]FeedSource, error)
	ListActiveByIDs(ids []string) ([]FeedSource, error)
	ListDueForRefresh(olderThan time.Time, limit int) ([]FeedSource, error)
	UpdateDetails(userID, sourceID, title, description string) (*FeedSource, error)
	RecordFetchSuccess(sourceID, title, description string) error
	RecordFetchFailure(sourceID, message string) error
	SoftDelete(userID, sourceID string) error
}

type ItemRepository interface {
	// InsertIfAbsent inserts the item unless one with the same
	// (source_id, guid) already exists. Reports whether a row was inserted.
	InsertIfAbsent(sourceID string, item NewItem) (bool, error)
	GetByID(itemID string) (*FeedItem, error)
	ListBySourceIDs(sourceIDs []string) ([]FeedItem, error)
	CountBySource(sourceID string) (int, error)
}

type BindingRepository interface {
	Insert(widgetID, sourceID string, position int) (*Binding, error)
	ListByWidget(widgetID string) ([]Binding, error)
	GetOwned(widgetID, bindingID string) (*Binding, error)
	SoftDelete(bindingID string) error

	// Reorder applies every position update in one transaction; a stale
	// binding ID rolls back the whole batch with ErrNotFound.
	Reorder(widgetID string, positions []BindingPosition) error
}

type ReadStateRepository interface {
	SetRead(userID, itemID string, read bool, readAt *time.Time) error
	SetStarred(userID, itemID string, starred bool) error
	ReadItemIDs(userID string, itemIDs []string) (map[string]bool, error)
	StarredItemIDs(userID string, itemIDs []string) (map[string]bool, error)
}
