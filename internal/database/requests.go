package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const requestColumns = `id, requester_id, description, created`

func (db *DB) CreateRequest(ctx context.Context, req *models.ItemRequest) error {
	created := req.Created
	if created.IsZero() {
		created = time.Now()
	}
	created = dbTime(created)

	result, err := db.ExecContext(ctx,
		`INSERT INTO requests (requester_id, description, created) VALUES (?, ?, ?)`,
		req.RequesterID, req.Description, created,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	req.Created = created
	return nil
}

func (db *DB) GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error) {
	var req models.ItemRequest
	err := db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id).
		Scan(&req.ID, &req.RequesterID, &req.Description, &req.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &req, nil
}

func (db *DB) GetRequestsByRequester(ctx context.Context, requesterID int64) ([]*models.ItemRequest, error) {
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id = ? ORDER BY created, id`,
		requesterID,
	)
}

// GetRequestsExcept pages through requests of everyone but requesterID.
func (db *DB) GetRequestsExcept(ctx context.Context, requesterID int64, page models.Page) ([]*models.ItemRequest, error) {
	return db.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE requester_id <> ? ORDER BY created, id LIMIT ? OFFSET ?`,
		requesterID, page.Limit(), page.Offset(),
	)
}

func (db *DB) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*models.ItemRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.ItemRequest, 0)
	for rows.Next() {
		var req models.ItemRequest
		if err := rows.Scan(&req.ID, &req.RequesterID, &req.Description, &req.Created); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}
