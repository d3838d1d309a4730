package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresItemRepository handles database operations for feed items.
type PostgresItemRepository struct {
	db *DB
}

var _ ItemRepository = (*PostgresItemRepository)(nil)

func NewItemRepository(db *DB) *PostgresItemRepository {
	return &PostgresItemRepository{db: db}
}

const itemColumns = `id, source_id, guid, title, url, COALESCE(description, ''),
	       COALESCE(content, ''), COALESCE(author, ''), published_at,
	       created_at, updated_at, deleted_at`

// InsertIfAbsent attempts the insert and lets the partial unique index on
// (source_id, guid) decide: a conflicting row means the item was already
// ingested, which is reported as inserted=false, never as an error. Existing
// rows are never updated.
func (r *PostgresItemRepository) InsertIfAbsent(sourceID string, item NewItem) (bool, error) {
	result, err := r.db.Exec(`
		INSERT INTO feed_items (source_id, guid, title, url, description, content, author, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_id, guid) WHERE deleted_at IS NULL DO NOTHING
	`, sourceID, item.GUID, item.Title, item.URL, item.Description, item.Content,
		item.Author, item.PublishedAt)
	if err != nil {
		// A concurrent insert can still surface the violation directly.
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresItemRepository) GetByID(itemID string) (*FeedItem, error) {
	var item FeedItem
	err := r.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM feed_items
		WHERE id = $1 AND deleted_at IS NULL
	`, itemID).Scan(
		&item.ID, &item.SourceID, &item.GUID, &item.Title, &item.URL,
		&item.Description, &item.Content, &item.Author, &item.PublishedAt,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// ListBySourceIDs returns every active item across the given sources, newest
// first. Items without a published date sort last; ties break on id so
// repeated queries page deterministically.
func (r *PostgresItemRepository) ListBySourceIDs(sourceIDs []string) ([]FeedItem, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM feed_items
		WHERE source_id = ANY($1) AND deleted_at IS NULL
		ORDER BY published_at DESC NULLS LAST, id DESC
	`, pq.Array(sourceIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []FeedItem
	for rows.Next() {
		var item FeedItem
		err := rows.Scan(
			&item.ID, &item.SourceID, &item.GUID, &item.Title, &item.URL,
			&item.Description, &item.Content, &item.Author, &item.PublishedAt,
			&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *PostgresItemRepository) CountBySource(sourceID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM feed_items WHERE source_id = $1 AND deleted_at IS NULL
	`, sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}
