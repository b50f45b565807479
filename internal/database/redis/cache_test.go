package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/eventbook/internal/entity"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() *entity.EventWithAvailability {
	ev := entity.NewEventWithAvailability(entity.Event{
		ID:          12,
		Title:       "Jazz Night",
		Category:    entity.CategoryConcert,
		Date:        time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC),
		Time:        "20:00",
		Capacity:    50,
		Price:       decimal.RequireFromString("19.99"),
		OrganizerID: 3,
	}, 20)
	ev.Organizer = &entity.Organizer{ID: 3, Name: "Olga", Email: "olga@example.com"}
	return ev
}

func TestEventCache_SetAndGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewEventCache(db, 5*time.Minute)
	ev := sampleEvent()

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	mock.ExpectSet("event:12", data, 5*time.Minute).SetVal("OK")
	mock.ExpectGet("event:12").SetVal(string(data))

	require.NoError(t, cache.SetEvent(context.Background(), ev))

	got, err := cache.GetEvent(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", got.Title)
	assert.Equal(t, 30, got.AvailableSpots)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "Olga", got.Organizer.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewEventCache(db, time.Minute)

	mock.ExpectGet("event:99").RedisNil()

	_, err := cache.GetEvent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewEventCache(db, time.Minute)

	mock.ExpectGet("event:1").SetErr(errors.New("connection refused"))
	mock.ExpectGet("event:2").SetVal("{broken")

	_, err := cache.GetEvent(context.Background(), 1)
	assert.EqualError(t, err, "connection refused")

	_, err = cache.GetEvent(context.Background(), 2)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewEventCache(db, time.Minute)

	mock.ExpectDel("event:12").SetVal(1)

	require.NoError(t, cache.DeleteEvent(context.Background(), 12))
	assert.NoError(t, mock.ExpectationsWereMet())
}
