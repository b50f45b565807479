package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// Create inserts the booking. Capacity is checked by the caller inside the
// same transaction, after locking the event row.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (
			event_id, user_id, number_of_tickets, status, booking_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at
	`

	if booking.BookingDate.IsZero() {
		booking.BookingDate = time.Now().UTC()
	}

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		booking.EventID,
		booking.UserID,
		booking.NumberOfTickets,
		booking.Status,
		booking.BookingDate,
		time.Now().UTC(),
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return entity.ErrEventNotFound
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `
		SELECT id, event_id, user_id, number_of_tickets, status, booking_date,
			reminder_sent_at, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var b entity.Booking
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.EventID,
		&b.UserID,
		&b.NumberOfTickets,
		&b.Status,
		&b.BookingDate,
		&b.ReminderSentAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (r *bookingRepository) GetByUserID(ctx context.Context, userID int64) ([]*entity.BookingWithEvent, error) {
	query := `
		SELECT b.id, b.event_id, b.user_id, b.number_of_tickets, b.status, b.booking_date,
			b.created_at, b.updated_at,
			e.title, e.date, e.start_time, e.location, e.image, e.price
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		WHERE b.user_id = $1
		ORDER BY b.booking_date DESC, b.id DESC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*entity.BookingWithEvent, 0)
	for rows.Next() {
		var b entity.BookingWithEvent
		var ev entity.EventSummary
		err := rows.Scan(
			&b.ID,
			&b.EventID,
			&b.UserID,
			&b.NumberOfTickets,
			&b.Status,
			&b.BookingDate,
			&b.CreatedAt,
			&b.UpdatedAt,
			&ev.Title,
			&ev.Date,
			&ev.Time,
			&ev.Location,
			&ev.Image,
			&ev.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		ev.ID = b.EventID
		b.Event = &ev
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) SumActiveTickets(ctx context.Context, eventID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(number_of_tickets), 0)
		FROM bookings
		WHERE event_id = $1 AND status <> 'cancelled'
	`

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, eventID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum booked tickets: %w", err)
	}
	return total, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) DeleteByEventID(ctx context.Context, eventID int64) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete event bookings: %w", err)
	}
	return result.RowsAffected()
}

// GetPendingReminders returns confirmed bookings for events dated in [from, to)
// that have not been reminded yet.
func (r *bookingRepository) GetPendingReminders(ctx context.Context, from, to time.Time, limit int) ([]*entity.BookingReminder, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT b.id, b.user_id, u.email, u.name, e.id, e.title, e.date, e.start_time, b.number_of_tickets
		FROM bookings b
		JOIN events e ON e.id = b.event_id
		JOIN users u ON u.id = b.user_id
		WHERE b.status = 'confirmed'
			AND b.reminder_sent_at IS NULL
			AND e.date >= $1 AND e.date < $2
		ORDER BY e.date ASC, b.id ASC
		LIMIT $3
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*entity.BookingReminder
	for rows.Next() {
		var rem entity.BookingReminder
		err := rows.Scan(
			&rem.BookingID,
			&rem.UserID,
			&rem.UserEmail,
			&rem.UserName,
			&rem.EventID,
			&rem.EventTitle,
			&rem.EventDate,
			&rem.EventTime,
			&rem.NumberOfTickets,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, &rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}

func (r *bookingRepository) MarkReminderSent(ctx context.Context, bookingID int64, at time.Time) error {
	query := `UPDATE bookings SET reminder_sent_at = $1, updated_at = $1 WHERE id = $2`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, at, bookingID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrBookingNotFound
	}
	return nil
}
