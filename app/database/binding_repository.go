package database

import (
	"database/sql"
	"fmt"
)

// PostgresBindingRepository handles the widget-to-source memberships.
type PostgresBindingRepository struct {
	db *DB
}

var _ BindingRepository = (*PostgresBindingRepository)(nil)

func NewBindingRepository(db *DB) *PostgresBindingRepository {
	return &PostgresBindingRepository{db: db}
}

const bindingColumns = `id, widget_id, source_id, position, created_at, updated_at, deleted_at`

func (r *PostgresBindingRepository) Insert(widgetID, sourceID string, position int) (*Binding, error) {
	var b Binding
	err := r.db.QueryRow(`
		INSERT INTO widget_sources (widget_id, source_id, position)
		VALUES ($1, $2, $3)
		RETURNING `+bindingColumns+`
	`, widgetID, sourceID, position).Scan(
		&b.ID, &b.WidgetID, &b.SourceID, &b.Position, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert binding: %w", err)
	}
	return &b, nil
}

func (r *PostgresBindingRepository) ListByWidget(widgetID string) ([]Binding, error) {
	rows, err := r.db.Query(`
		SELECT `+bindingColumns+`
		FROM widget_sources
		WHERE widget_id = $1 AND deleted_at IS NULL
		ORDER BY position ASC, created_at ASC
	`, widgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []Binding
	for rows.Next() {
		var b Binding
		err := rows.Scan(&b.ID, &b.WidgetID, &b.SourceID, &b.Position, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan binding row: %w", err)
		}
		bindings = append(bindings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating binding rows: %w", err)
	}

	return bindings, nil
}

func (r *PostgresBindingRepository) GetOwned(widgetID, bindingID string) (*Binding, error) {
	var b Binding
	err := r.db.QueryRow(`
		SELECT `+bindingColumns+`
		FROM widget_sources
		WHERE id = $1 AND widget_id = $2 AND deleted_at IS NULL
	`, bindingID, widgetID).Scan(
		&b.ID, &b.WidgetID, &b.SourceID, &b.Position, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding: %w", err)
	}
	return &b, nil
}

func (r *PostgresBindingRepository) SoftDelete(bindingID string) error {
	result, err := r.db.Exec(`
		UPDATE widget_sources
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, bindingID)
	if err != nil {
		return fmt.Errorf("failed to delete binding: %w", err)
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

// Reorder applies the position batch inside one transaction. Any binding ID
// that does not resolve to an active binding of the widget aborts the whole
// batch, leaving every position untouched.
func (r *PostgresBindingRepository) Reorder(widgetID string, positions []BindingPosition) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range positions {
		result, err := tx.Exec(`
			UPDATE widget_sources
			SET position = $3, updated_at = NOW()
			WHERE id = $1 AND widget_id = $2 AND deleted_at IS NULL
		`, p.BindingID, widgetID, p.Position)
		if err != nil {
			return fmt.Errorf("failed to update binding position: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}
