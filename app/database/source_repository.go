package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresSourceRepository handles database operations for feed sources.
type PostgresSourceRepository struct {
	db *DB
}

var _ SourceRepository = (*PostgresSourceRepository)(nil)

func NewSourceRepository(db *DB) *PostgresSourceRepository {
	return &PostgresSourceRepository{db: db}
}

const sourceColumns = `id, user_id, url, COALESCE(title, ''), COALESCE(description, ''),
	       last_fetched_at, last_fetch_error, created_at, updated_at, deleted_at`

func scanSource(row interface{ Scan(...interface{}) error }) (*FeedSource, error) {
	var s FeedSource
	err := row.Scan(
		&s.ID, &s.UserID, &s.URL, &s.Title, &s.Description,
		&s.LastFetchedAt, &s.LastFetchError, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSourceRepository) Create(userID, url, title, description string) (*FeedSource, error) {
	source, err := scanSource(r.db.QueryRow(`
		INSERT INTO feed_sources (user_id, url, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sourceColumns+`
	`, userID, url, title, description))
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create source: %w", err)
	}
	return source, nil
}

func (r *PostgresSourceRepository) GetOwned(userID, sourceID string) (*FeedSource, error) {
	source, err := scanSource(r.db.QueryRow(`
		SELECT `+sourceColumns+`
		FROM feed_sources
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, sourceID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return source, nil
}

// GetByURLIncludingDeleted looks up a source by owner and URL regardless of
// its deletion state. Used by the restore-on-recreate path.
func (r *PostgresSourceRepository) GetByURLIncludingDeleted(userID, url string) (*FeedSource, error) {
	source, err := scanSource(r.db.QueryRow(`
		SELECT `+sourceColumns+`
		FROM feed_sources
		WHERE user_id = $1 AND url = $2
		ORDER BY deleted_at IS NOT NULL, updated_at DESC
		LIMIT 1
	`, userID, url))
	if err != nil {
		return nil, fmt.Errorf("failed to get source by URL: %w", err)
	}
	return source, nil
}

// Restore clears the deletion marker and overwrites title/description when
// non-empty values are given.
func (r *PostgresSourceRepository) Restore(sourceID, title, description string) (*FeedSource, error) {
	source, err := scanSource(r.db.QueryRow(`
		UPDATE feed_sources
		SET deleted_at = NULL,
		    title = CASE WHEN $2 <> '' THEN $2 ELSE title END,
		    description = CASE WHEN $3 <> '' THEN $3 ELSE description END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+sourceColumns+`
	`, sourceID, title, description))
	if err != nil {
		return nil, fmt.Errorf("failed to restore source: %w", err)
	}
	return source, nil
}

func (r *PostgresSourceRepository) ListByOwner(userID string) ([]FeedSource, error) {
	rows, err := r.db.Query(`
		SELECT `+sourceColumns+`
		FROM feed_sources
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func (r *PostgresSourceRepository) ListActiveByIDs(ids []string) ([]FeedSource, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT `+sourceColumns+`
		FROM feed_sources
		WHERE id = ANY($1) AND deleted_at IS NULL
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list sources by IDs: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

// ListDueForRefresh returns active sources whose last fetch is older than the
// given threshold (or that have never been fetched).
func (r *PostgresSourceRepository) ListDueForRefresh(olderThan time.Time, limit int) ([]FeedSource, error) {
	rows, err := r.db.Query(`
		SELECT `+sourceColumns+`
		FROM feed_sources
		WHERE deleted_at IS NULL
		  AND (last_fetched_at IS NULL OR last_fetched_at <= $1)
		ORDER BY COALESCE(last_fetched_at, '1970-01-01'::timestamptz)
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources due for refresh: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func (r *PostgresSourceRepository) UpdateDetails(userID, sourceID, title, description string) (*FeedSource, error) {
	source, err := scanSource(r.db.QueryRow(`
		UPDATE feed_sources
		SET title = $3, description = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING `+sourceColumns+`
	`, sourceID, userID, title, description))
	if err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}
	return source, nil
}

// RecordFetchSuccess stores the fetch timestamp, clears the fetch error and
// fills title/description only when they are currently blank, so user edits
// are never overwritten by feed metadata.
func (r *PostgresSourceRepository) RecordFetchSuccess(sourceID, title, description string) error {
	_, err := r.db.Exec(`
		UPDATE feed_sources
		SET title = COALESCE(NULLIF(title, ''), $2),
		    description = COALESCE(NULLIF(description, ''), $3),
		    last_fetched_at = NOW(),
		    last_fetch_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, sourceID, title, description)
	if err != nil {
		return fmt.Errorf("failed to record fetch success: %w", err)
	}
	return nil
}

func (r *PostgresSourceRepository) RecordFetchFailure(sourceID, message string) error {
	_, err := r.db.Exec(`
		UPDATE feed_sources
		SET last_fetched_at = NOW(), last_fetch_error = $2, updated_at = NOW()
		WHERE id = $1
	`, sourceID, message)
	if err != nil {
		return fmt.Errorf("failed to record fetch failure: %w", err)
	}
	return nil
}

func (r *PostgresSourceRepository) SoftDelete(userID, sourceID string) error {
	result, err := r.db.Exec(`
		UPDATE feed_sources
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, sourceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectSources(rows *sql.Rows) ([]FeedSource, error) {
	var sources []FeedSource
	for rows.Next() {
		var s FeedSource
		err := rows.Scan(
			&s.ID, &s.UserID, &s.URL, &s.Title, &s.Description,
			&s.LastFetchedAt, &s.LastFetchError, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}
