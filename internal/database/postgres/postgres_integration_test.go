package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/ds124wfegd/eventbook/internal/database/postgres"
	"github.com/ds124wfegd/eventbook/internal/entity"
	"github.com/ds124wfegd/eventbook/internal/service"
	"github.com/ds124wfegd/eventbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_ListFiltersAndAvailability(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewEventRepository(db)

	olga := testutil.InsertUser(t, db, "olga", entity.RoleUser)
	june1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	inside := testutil.InsertEvent(t, db, olga.ID, "Morning Talk", june1.Add(9*time.Hour), 10)
	testutil.InsertEvent(t, db, olga.ID, "Midnight", june1.AddDate(0, 0, 1), 10)
	testutil.InsertEvent(t, db, olga.ID, "Eve", june1.Add(-time.Minute), 10)

	testutil.InsertBooking(t, db, inside, olga.ID, 3, entity.BookingStatusConfirmed)
	testutil.InsertBooking(t, db, inside, olga.ID, 4, entity.BookingStatusCancelled)

	from, to, err := entity.DayRange("2025-06-01")
	require.NoError(t, err)

	events, err := repo.List(ctx, entity.EventFilter{DateFrom: from, DateTo: to})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, inside, events[0].ID)
	assert.Equal(t, 3, events[0].BookedSpots)
	assert.Equal(t, 7, events[0].AvailableSpots)
	assert.Equal(t, "olga", events[0].Organizer.Name)
	assert.Empty(t, events[0].Organizer.Email)

	events, err = repo.List(ctx, entity.EventFilter{Search: "MORNING"})
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = repo.List(ctx, entity.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "Eve", events[0].Title)

	got, err := repo.GetByID(ctx, inside)
	require.NoError(t, err)
	assert.Equal(t, "olga@example.com", got.Organizer.Email)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewUserRepository(db)

	require.NoError(t, repo.Create(ctx, &entity.User{Name: "A", Email: "Same@Example.com", PasswordHash: "x", Role: entity.RoleUser}))
	err := repo.Create(ctx, &entity.User{Name: "B", Email: "same@example.com", PasswordHash: "x", Role: entity.RoleUser})
	assert.ErrorIs(t, err, entity.ErrConflict)

	u, err := repo.GetByEmail(ctx, " SAME@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)
}

func TestEventDelete_CascadesBookings(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	olga := testutil.InsertUser(t, db, "olga", entity.RoleUser)
	root := testutil.InsertUser(t, db, "root", entity.RoleAdmin)
	eventID := testutil.InsertEvent(t, db, olga.ID, "Doomed", time.Now().AddDate(0, 1, 0), 10)
	testutil.InsertBooking(t, db, eventID, olga.ID, 2, entity.BookingStatusConfirmed)

	bookingRepo := repository.NewBookingRepository(db)
	svc := service.NewEventService(repository.NewTransactor(db), repository.NewEventRepository(db), bookingRepo, nil, nil)

	require.NoError(t, svc.DeleteEvent(ctx, root, eventID))

	var remaining int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE event_id = $1`, eventID).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestCreateBooking_ConcurrentLastSpots(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	olga := testutil.InsertUser(t, db, "olga", entity.RoleUser)
	eventID := testutil.InsertEvent(t, db, olga.ID, "Sold Out Soon", time.Now().AddDate(0, 1, 0), 10)
	testutil.InsertBooking(t, db, eventID, olga.ID, 8, entity.BookingStatusConfirmed)

	bookingRepo := repository.NewBookingRepository(db)
	svc := service.NewBookingService(
		repository.NewTransactor(db),
		bookingRepo,
		repository.NewEventRepository(db),
		nil, nil,
	)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			one := 1
			_, err := svc.CreateBooking(ctx, olga, &service.CreateBookingRequest{EventID: eventID, NumberOfTickets: &one})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, entity.ErrCapacityExceeded):
				refused++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, workers-2, refused)

	total, err := bookingRepo.SumActiveTickets(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
}

func TestBookingRepository_Reminders(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := repository.NewBookingRepository(db)

	olga := testutil.InsertUser(t, db, "olga", entity.RoleUser)
	now := time.Now().UTC()
	soon := testutil.InsertEvent(t, db, olga.ID, "Soon", now.Add(2*time.Hour), 10)
	later := testutil.InsertEvent(t, db, olga.ID, "Later", now.AddDate(0, 0, 3), 10)
	due := testutil.InsertBooking(t, db, soon, olga.ID, 1, entity.BookingStatusConfirmed)
	testutil.InsertBooking(t, db, soon, olga.ID, 1, entity.BookingStatusPending)
	testutil.InsertBooking(t, db, later, olga.ID, 1, entity.BookingStatusConfirmed)

	reminders, err := repo.GetPendingReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, due, reminders[0].BookingID)
	assert.Equal(t, "olga@example.com", reminders[0].UserEmail)
	assert.Equal(t, "Soon", reminders[0].EventTitle)

	require.NoError(t, repo.MarkReminderSent(ctx, due, now))

	reminders, err = repo.GetPendingReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}
