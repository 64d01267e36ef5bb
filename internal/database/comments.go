package database

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

func (db *DB) CreateComment(ctx context.Context, comment *models.Comment) error {
	created := comment.Created
	if created.IsZero() {
		created = time.Now()
	}
	created = dbTime(created)

	result, err := db.ExecContext(ctx,
		`INSERT INTO comments (item_id, author_id, text, created) VALUES (?, ?, ?, ?)`,
		comment.ItemID, comment.AuthorID, comment.Text, created,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: item or author does not exist", domain.ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	comment.ID = id
	comment.Created = created
	return nil
}

// GetCommentsByItems returns comments of the given items, oldest first.
// AuthorName reflects the author's current name.
func (db *DB) GetCommentsByItems(ctx context.Context, itemIDs []int64) ([]*models.Comment, error) {
	if len(itemIDs) == 0 {
		return []*models.Comment{}, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.item_id, c.author_id, u.name, c.text, c.created
         FROM comments c JOIN users u ON u.id = c.author_id
         WHERE c.item_id IN (`+placeholders(len(itemIDs))+`)
         ORDER BY c.created, c.id`,
		int64Args(itemIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ItemID, &c.AuthorID, &c.AuthorName, &c.Text, &c.Created); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
