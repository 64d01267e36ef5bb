package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const itemColumns = `id, owner_id, request_id, name, description, available, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item      models.Item
		requestID sql.NullInt64
		available bool
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &requestID, &item.Name, &item.Description,
		&available, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Available = &available
	if requestID.Valid {
		item.RequestID = &requestID.Int64
	}
	return &item, nil
}

func (db *DB) CreateItem(ctx context.Context, item *models.Item) error {
	now := dbTime(time.Now())
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, request_id, name, description, available, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.OwnerID, nullableID(item.RequestID), item.Name, item.Description, item.IsAvailable(), now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner or request does not exist", domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) UpdateItem(ctx context.Context, item *models.Item) error {
	now := dbTime(time.Now())
	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, available = ?, updated_at = ? WHERE id = ?`,
		item.Name, item.Description, item.IsAvailable(), now, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrItemNotFound
	}
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (db *DB) GetItemsByOwner(ctx context.Context, ownerID int64, page models.Page) ([]*models.Item, error) {
	return db.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		ownerID, page.Limit(), page.Offset(),
	)
}

// SearchItems matches available items whose name or description contains
// text, ignoring case.
func (db *DB) SearchItems(ctx context.Context, text string, page models.Page) ([]*models.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	return db.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items
         WHERE available = 1
           AND (fold(name) LIKE ? ESCAPE '\' OR fold(description) LIKE ? ESCAPE '\')
         ORDER BY id LIMIT ? OFFSET ?`,
		pattern, pattern, page.Limit(), page.Offset(),
	)
}

func (db *DB) GetItemsByRequests(ctx context.Context, requestIDs []int64) ([]*models.Item, error) {
	if len(requestIDs) == 0 {
		return []*models.Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE request_id IN (` + placeholders(len(requestIDs)) + `) ORDER BY id`
	return db.queryItems(ctx, query, int64Args(requestIDs)...)
}

func (db *DB) queryItems(ctx context.Context, query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
