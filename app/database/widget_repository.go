package database

import (
	"database/sql"
	"fmt"
)

// PostgresWidgetRepository handles the minimal widget operations the feed
// core needs: ownership resolution and deletion with binding cascade. The
// rest of widget CRUD lives with the dashboard layer.
type PostgresWidgetRepository struct {
	db *DB
}

var _ WidgetRepository = (*PostgresWidgetRepository)(nil)

func NewWidgetRepository(db *DB) *PostgresWidgetRepository {
	return &PostgresWidgetRepository{db: db}
}

const widgetColumns = `id, user_id, kind, COALESCE(title, ''), position, created_at, updated_at, deleted_at`

func scanWidget(row *sql.Row) (*Widget, error) {
	var w Widget
	err := row.Scan(&w.ID, &w.UserID, &w.Kind, &w.Title, &w.Position, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *PostgresWidgetRepository) Create(userID, kind, title string) (*Widget, error) {
	widget, err := scanWidget(r.db.QueryRow(`
		INSERT INTO widgets (user_id, kind, title)
		VALUES ($1, $2, $3)
		RETURNING `+widgetColumns+`
	`, userID, kind, title))
	if err != nil {
		return nil, fmt.Errorf("failed to create widget: %w", err)
	}
	return widget, nil
}

func (r *PostgresWidgetRepository) GetOwned(userID, widgetID string) (*Widget, error) {
	widget, err := scanWidget(r.db.QueryRow(`
		SELECT `+widgetColumns+`
		FROM widgets
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, widgetID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get widget: %w", err)
	}
	return widget, nil
}

func (r *PostgresWidgetRepository) GetByTitle(userID, kind, title string) (*Widget, error) {
	widget, err := scanWidget(r.db.QueryRow(`
		SELECT `+widgetColumns+`
		FROM widgets
		WHERE user_id = $1 AND kind = $2 AND title = $3 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`, userID, kind, title))
	if err != nil {
		return nil, fmt.Errorf("failed to get widget by title: %w", err)
	}
	return widget, nil
}

// SoftDeleteWithBindings tombstones the widget and all of its active bindings
// in one transaction, so readers never observe a half-cascaded widget.
func (r *PostgresWidgetRepository) SoftDeleteWithBindings(userID, widgetID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE widgets
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, widgetID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete widget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(`
		UPDATE widget_sources
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE widget_id = $1 AND deleted_at IS NULL
	`, widgetID)
	if err != nil {
		return fmt.Errorf("failed to cascade binding deletion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit widget deletion: %w", err)
	}
	return nil
}
