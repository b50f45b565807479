package service

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"
)

// memStore is an in-memory stand-in for the Postgres repositories.
// GetForUpdate inside WithTx takes a per-event lock held until the
// transaction ends, like a row lock; nothing else serialises transactions.
type memStore struct {
	mu sync.Mutex

	events   map[int64]entity.Event
	bookings map[int64]entity.Booking
	users    map[int64]entity.User
	nextID   int64

	rowLocks map[int64]*sync.Mutex
	reminded map[int64]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[int64]entity.Event),
		bookings: make(map[int64]entity.Booking),
		users:    make(map[int64]entity.User),
		rowLocks: make(map[int64]*sync.Mutex),
		reminded: make(map[int64]time.Time),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

type memTxKey struct{}

type memTx struct {
	locked map[int64]*sync.Mutex
	undo   []func()
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &memTx{locked: make(map[int64]*sync.Mutex)}
	defer func() {
		for _, l := range tx.locked {
			l.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		m.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// lockRow blocks until the transaction in ctx owns the event row.
func (m *memStore) lockRow(ctx context.Context, id int64) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	if _, held := tx.locked[id]; held {
		return
	}

	m.mu.Lock()
	l, ok := m.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[id] = l
	}
	m.mu.Unlock()

	l.Lock()
	tx.locked[id] = l
}

// onRollback registers an undo step; callers hold m.mu.
func (m *memStore) onRollback(ctx context.Context, fn func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

func (m *memStore) addUser(name string, role entity.Role) *entity.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := entity.User{ID: m.id(), Name: name, Email: strings.ToLower(name) + "@example.com", Role: role}
	m.users[u.ID] = u
	return &u
}

func (m *memStore) addEvent(organizer *entity.User, date time.Time, capacity int) *entity.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entity.Event{
		ID:          m.id(),
		Title:       "Go Meetup",
		Description: "Talks",
		Category:    entity.CategoryNetworking,
		Location:    "Berlin",
		Date:        date,
		Time:        "18:00",
		Duration:    120,
		Capacity:    capacity,
		Image:       entity.DefaultImage,
		OrganizerID: organizer.ID,
	}
	m.events[e.ID] = e
	return &e
}

func (m *memStore) addBooking(eventID, userID int64, tickets int, status entity.BookingStatus) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := entity.Booking{ID: m.id(), EventID: eventID, UserID: userID, NumberOfTickets: tickets, Status: status}
	m.bookings[b.ID] = b
	return &b
}

func (m *memStore) activeTickets(eventID int64) int {
	total := 0
	for _, b := range m.bookings {
		if b.EventID == eventID && b.Status != entity.BookingStatusCancelled {
			total += b.NumberOfTickets
		}
	}
	return total
}

func (m *memStore) withAvailability(e entity.Event) *entity.EventWithAvailability {
	ev := entity.NewEventWithAvailability(e, m.activeTickets(e.ID))
	if u, ok := m.users[e.OrganizerID]; ok {
		ev.Organizer = &entity.Organizer{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return ev
}

type memEvents struct{ *memStore }

func (r memEvents) Create(_ context.Context, e *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[e.OrganizerID]; !ok {
		return entity.ErrUserNotFound
	}
	e.ID = r.id()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	r.events[e.ID] = *e
	return nil
}

func (r memEvents) GetByID(_ context.Context, id int64) (*entity.EventWithAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return r.withAvailability(e), nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id int64) (*entity.Event, error) {
	r.lockRow(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return &e, nil
}

func (r memEvents) List(_ context.Context, f entity.EventFilter) ([]*entity.EventWithAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.EventWithAvailability, 0)
	for _, e := range r.events {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.DateFrom.IsZero() && e.Date.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && !e.Date.Before(f.DateTo) {
			continue
		}
		if f.Location != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
			continue
		}
		if f.Search != "" {
			q := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Description), q) {
				continue
			}
		}
		out = append(out, r.withAvailability(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r memEvents) Update(_ context.Context, e *entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[e.ID]; !ok {
		return entity.ErrEventNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	r.events[e.ID] = *e
	return nil
}

func (r memEvents) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return entity.ErrEventNotFound
	}
	delete(r.events, id)
	r.onRollback(ctx, func() { r.events[id] = e })
	return nil
}

type memBookings struct{ *memStore }

func (r memBookings) Create(ctx context.Context, b *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[b.EventID]; !ok {
		return entity.ErrEventNotFound
	}
	b.ID = r.id()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	r.bookings[b.ID] = *b
	id := b.ID
	r.onRollback(ctx, func() { delete(r.bookings, id) })
	return nil
}

func (r memBookings) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return &b, nil
}

func (r memBookings) GetByUserID(_ context.Context, userID int64) ([]*entity.BookingWithEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.BookingWithEvent, 0)
	for _, b := range r.bookings {
		if b.UserID != userID {
			continue
		}
		e := r.events[b.EventID]
		out = append(out, &entity.BookingWithEvent{Booking: b, Event: entity.SummaryOf(&e)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingDate.After(out[j].BookingDate) })
	return out, nil
}

func (r memBookings) SumActiveTickets(_ context.Context, eventID int64) (int, error) {
	r.mu.Lock()
	total := r.activeTickets(eventID)
	r.mu.Unlock()

	// widen the read-then-insert window so an unlocked caller oversells
	runtime.Gosched()
	return total, nil
}

func (r memBookings) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	delete(r.bookings, id)
	r.onRollback(ctx, func() { r.bookings[id] = b })
	return nil
}

func (r memBookings) DeleteByEventID(ctx context.Context, eventID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, b := range r.bookings {
		if b.EventID == eventID {
			delete(r.bookings, id)
			r.onRollback(ctx, func() { r.bookings[id] = b })
			n++
		}
	}
	return n, nil
}

func (r memBookings) GetPendingReminders(_ context.Context, from, to time.Time, limit int) ([]*entity.BookingReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.BookingReminder
	for _, b := range r.bookings {
		e := r.events[b.EventID]
		if b.Status != entity.BookingStatusConfirmed || e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		if _, done := r.reminded[b.ID]; done {
			continue
		}
		u := r.users[b.UserID]
		out = append(out, &entity.BookingReminder{
			BookingID: b.ID, UserID: b.UserID, UserEmail: u.Email, UserName: u.Name,
			EventID: e.ID, EventTitle: e.Title, EventDate: e.Date, EventTime: e.Time,
			NumberOfTickets: b.NumberOfTickets,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memBookings) MarkReminderSent(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return entity.ErrBookingNotFound
	}
	r.reminded[id] = at
	return nil
}

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return entity.ErrUserAlreadyExists
		}
	}
	u.ID = r.id()
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu      sync.Mutex
	msgs    []published
	err     error
	ctxErrs []error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic, payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.topic)
	}
	return out
}

type mapCache struct {
	mu      sync.Mutex
	entries map[int64]*entity.EventWithAvailability
	deletes []int64
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[int64]*entity.EventWithAvailability)}
}

func (c *mapCache) GetEvent(_ context.Context, id int64) (*entity.EventWithAvailability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return e, nil
	}
	return nil, errCacheDisabled
}

func (c *mapCache) SetEvent(_ context.Context, e *entity.EventWithAvailability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.ID] = e
	return nil
}

func (c *mapCache) DeleteEvent(ctx context.Context, id int64) error {
	// a real Redis call fails on a dead context
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.deletes = append(c.deletes, id)
	return nil
}
