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

const bookingColumns = `b.id, b.item_id, b.booker_id, b.start_date, b.end_date, b.status, b.created_at, b.updated_at, b.version`

// bookingViewQuery joins a booking with its booker and item.
const bookingViewQuery = `SELECT ` + bookingColumns + `,
        u.id, u.name, u.email,
        i.id, i.owner_id, i.request_id, i.name, i.description, i.available, i.created_at, i.updated_at
    FROM bookings b
    JOIN users u ON u.id = b.booker_id
    JOIN items i ON i.id = b.item_id`

func scanBooking(row rowScanner, extra ...interface{}) (*models.Booking, error) {
	var b models.Booking
	dest := append([]interface{}{
		&b.ID, &b.ItemID, &b.BookerID, &b.Start, &b.End, &b.Status, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookingView(row rowScanner) (*models.BookingView, error) {
	var (
		view      models.BookingView
		requestID sql.NullInt64
		available bool
	)
	booking, err := scanBooking(row,
		&view.Booker.ID, &view.Booker.Name, &view.Booker.Email,
		&view.Item.ID, &view.Item.OwnerID, &requestID, &view.Item.Name, &view.Item.Description,
		&available, &view.Item.CreatedAt, &view.Item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	view.Booking = *booking
	view.Item.Available = &available
	if requestID.Valid {
		view.Item.RequestID = &requestID.Int64
	}
	return &view, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	now := dbTime(time.Now())
	status := booking.Status
	if status == "" {
		status = models.StatusWaiting
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO bookings (item_id, booker_id, start_date, end_date, status, created_at, updated_at, version)
         VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		booking.ItemID, booking.BookerID, dbTime(booking.Start), dbTime(booking.End), status, now, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: item or booker does not exist", domain.ErrNotFound)
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: booking end must be after start", domain.ErrInvalid)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.Status = status
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.BookingView, error) {
	view, err := scanBookingView(db.QueryRowContext(ctx, bookingViewQuery+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return view, nil
}

// DecideBooking переводит заявку из WAITING в итоговый статус.
// Условие на статус в UPDATE гарантирует, что решение принимается один раз.
func (db *DB) DecideBooking(ctx context.Context, id int64, status models.BookingStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
         WHERE id = ? AND status = ?`,
		status, dbTime(time.Now()), id, models.StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return domain.ErrBookingDecided
}

// ListBookings returns bookings of one booker or of one owner's items,
// filtered by state and ordered by start, newest first.
func (db *DB) ListBookings(ctx context.Context, q domain.BookingQuery) ([]*models.BookingView, error) {
	var (
		where []string
		args  []interface{}
	)
	switch {
	case q.BookerID != 0:
		where = append(where, "b.booker_id = ?")
		args = append(args, q.BookerID)
	case q.OwnerID != 0:
		where = append(where, "i.owner_id = ?")
		args = append(args, q.OwnerID)
	default:
		return nil, fmt.Errorf("%w: booker or owner is required", domain.ErrInvalid)
	}

	now := dbTime(q.Now)
	switch q.State {
	case models.StateAll, "":
	case models.StateCurrent:
		where = append(where, "b.start_date < ? AND b.end_date > ?")
		args = append(args, now, now)
	case models.StatePast:
		where = append(where, "b.end_date < ?")
		args = append(args, now)
	case models.StateFuture:
		where = append(where, "b.start_date > ?")
		args = append(args, now)
	case models.StateWaiting:
		where = append(where, "b.status = ?")
		args = append(args, models.StatusWaiting)
	case models.StateRejected:
		where = append(where, "b.status = ?")
		args = append(args, models.StatusRejected)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalid, (&models.ErrUnknownState{Value: string(q.State)}).Error())
	}

	query := bookingViewQuery + ` WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY b.start_date DESC, b.id DESC LIMIT ? OFFSET ?`
	args = append(args, q.Page.Limit(), q.Page.Offset())

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	views := make([]*models.BookingView, 0)
	for rows.Next() {
		view, err := scanBookingView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		views = append(views, view)
	}
	return views, rows.Err()
}

// LastBooking is the approved booking that started most recently before now,
// picked by the latest end.
func (db *DB) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	return db.queryOptionalBooking(ctx,
		`SELECT `+bookingColumns+` FROM bookings b
         WHERE b.item_id = ? AND b.status = ? AND b.start_date < ?
         ORDER BY b.end_date DESC, b.id DESC LIMIT 1`,
		itemID, models.StatusApproved, dbTime(now),
	)
}

// NextBooking is the approved booking with the earliest start after now.
func (db *DB) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	return db.queryOptionalBooking(ctx,
		`SELECT `+bookingColumns+` FROM bookings b
         WHERE b.item_id = ? AND b.status = ? AND b.start_date > ?
         ORDER BY b.start_date ASC, b.id ASC LIMIT 1`,
		itemID, models.StatusApproved, dbTime(now),
	)
}

func (db *DB) queryOptionalBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	booking, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}
	return booking, nil
}

// HasFinishedBooking reports whether the booker has an approved booking of
// the item that ended before now.
func (db *DB) HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings
                       WHERE booker_id = ? AND item_id = ? AND status = ? AND end_date < ?)`,
		bookerID, itemID, models.StatusApproved, dbTime(now),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check finished booking: %w", err)
	}
	return exists, nil
}
