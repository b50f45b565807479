package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"
)

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `e.id, e.title, e.description, e.category, e.location, e.date, e.start_time,
	e.duration, e.capacity, e.price, e.image, e.organizer_id, e.featured, e.created_at, e.updated_at`

// booked spots only count non-cancelled bookings
const eventWithAvailabilitySelect = `
	SELECT ` + eventColumns + `,
		u.name, u.email,
		COALESCE(b.booked, 0) AS booked_spots
	FROM events e
	JOIN users u ON u.id = e.organizer_id
	LEFT JOIN (
		SELECT event_id, SUM(number_of_tickets) AS booked
		FROM bookings
		WHERE status <> 'cancelled'
		GROUP BY event_id
	) b ON b.event_id = e.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (*entity.Event, error) {
	var e entity.Event
	dest := []any{
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.Date, &e.Time,
		&e.Duration, &e.Capacity, &e.Price, &e.Image, &e.OrganizerID, &e.Featured,
		&e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEventWithAvailability(row rowScanner) (*entity.EventWithAvailability, error) {
	var organizer entity.Organizer
	var booked int
	e, err := scanEvent(row, &organizer.Name, &organizer.Email, &booked)
	if err != nil {
		return nil, err
	}
	organizer.ID = e.OrganizerID

	ev := entity.NewEventWithAvailability(*e, booked)
	ev.Organizer = &organizer
	return ev, nil
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (
			title, description, category, location, date, start_time, duration,
			capacity, price, image, organizer_id, featured, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING id, created_at, updated_at
	`

	now := time.Now().UTC()
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Category,
		event.Location,
		event.Date,
		event.Time,
		event.Duration,
		event.Capacity,
		event.Price,
		event.Image,
		event.OrganizerID,
		event.Featured,
		now,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return entity.ErrUserNotFound
		}
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.EventWithAvailability, error) {
	query := eventWithAvailabilitySelect + ` WHERE e.id = $1`

	event, err := scanEventWithAvailability(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1 FOR UPDATE`

	event, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context, filter entity.EventFilter) ([]*entity.EventWithAvailability, error) {
	where, args := buildEventFilter(filter)
	query := eventWithAvailabilitySelect + where + ` ORDER BY e.date ASC, e.id ASC`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.EventWithAvailability, 0)
	for rows.Next() {
		event, err := scanEventWithAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		// listings only expose the organizer name
		event.Organizer.Email = ""
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// buildEventFilter turns the filter into a WHERE clause with positional args.
func buildEventFilter(f entity.EventFilter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		conds = append(conds, "e.category = "+arg(f.Category))
	}
	if !f.DateFrom.IsZero() {
		conds = append(conds, "e.date >= "+arg(f.DateFrom))
	}
	if !f.DateTo.IsZero() {
		conds = append(conds, "e.date < "+arg(f.DateTo))
	}
	if f.Location != "" {
		conds = append(conds, `e.location ILIKE `+arg(likePattern(f.Location))+` ESCAPE '\'`)
	}
	if f.Search != "" {
		p := arg(likePattern(f.Search))
		conds = append(conds, `(e.title ILIKE `+p+` ESCAPE '\' OR e.description ILIKE `+p+` ESCAPE '\')`)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, category = $3, location = $4, date = $5,
			start_time = $6, duration = $7, price = $8, image = $9, featured = $10, updated_at = $11
		WHERE id = $12
		RETURNING updated_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Category,
		event.Location,
		event.Date,
		event.Time,
		event.Duration,
		event.Price,
		event.Image,
		event.Featured,
		time.Now().UTC(),
		event.ID,
	).Scan(&event.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}
