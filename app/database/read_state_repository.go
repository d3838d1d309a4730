package database

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresReadStateRepository persists per-user read/starred state. Rows are
// created lazily on the first state change; absence means unread and
// unstarred.
type PostgresReadStateRepository struct {
	db *DB
}

var _ ReadStateRepository = (*PostgresReadStateRepository)(nil)

func NewReadStateRepository(db *DB) *PostgresReadStateRepository {
	return &PostgresReadStateRepository{db: db}
}

// SetRead upserts the (user, item) row with the given read flag. The partial
// unique index on (user_id, item_id) makes the find-or-create race-free.
func (r *PostgresReadStateRepository) SetRead(userID, itemID string, read bool, readAt *time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO read_states (user_id, item_id, read, read_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, item_id) WHERE deleted_at IS NULL DO UPDATE
		SET read = EXCLUDED.read, read_at = EXCLUDED.read_at, updated_at = NOW()
	`, userID, itemID, read, readAt)
	if err != nil {
		return fmt.Errorf("failed to set read state: %w", err)
	}
	return nil
}

func (r *PostgresReadStateRepository) SetStarred(userID, itemID string, starred bool) error {
	_, err := r.db.Exec(`
		INSERT INTO read_states (user_id, item_id, starred)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) WHERE deleted_at IS NULL DO UPDATE
		SET starred = EXCLUDED.starred, updated_at = NOW()
	`, userID, itemID, starred)
	if err != nil {
		return fmt.Errorf("failed to set starred state: %w", err)
	}
	return nil
}

// ReadItemIDs returns the subset of itemIDs the user has marked read.
func (r *PostgresReadStateRepository) ReadItemIDs(userID string, itemIDs []string) (map[string]bool, error) {
	return r.flaggedItemIDs(userID, itemIDs, "read")
}

// StarredItemIDs returns the subset of itemIDs the user has starred.
func (r *PostgresReadStateRepository) StarredItemIDs(userID string, itemIDs []string) (map[string]bool, error) {
	return r.flaggedItemIDs(userID, itemIDs, "starred")
}

func (r *PostgresReadStateRepository) flaggedItemIDs(userID string, itemIDs []string, column string) (map[string]bool, error) {
	ids := make(map[string]bool)
	if len(itemIDs) == 0 {
		return ids, nil
	}

	rows, err := r.db.Query(`
		SELECT item_id
		FROM read_states
		WHERE user_id = $1 AND item_id = ANY($2) AND `+column+` = TRUE AND deleted_at IS NULL
	`, userID, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan read state row: %w", err)
		}
		ids[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating read state rows: %w", err)
	}

	return ids, nil
}
