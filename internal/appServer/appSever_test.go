package appServer

import (
	"context"
	"testing"

	"github.com/ds124wfegd/eventbook/pkg/broker"

	"github.com/go-redis/redismock/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDeadLetters(t *testing.T) {
	hook := test.NewGlobal()
	t.Cleanup(hook.Reset)

	db, mock := redismock.NewClientMock()
	stored := `{"message":{"id":"m1","topic":"booking.created","occurredAt":"2025-01-01T00:00:00Z","payload":{}},"error":"broker down","attempts":3,"failedAt":"2025-01-01T00:00:01Z"}`
	mock.ExpectZRevRange("eventbook:dlq", 0, deadLetterPreview-1).SetVal([]string{stored})

	logDeadLetters(context.Background(), broker.NewRedisDeadLetter(db, "eventbook:dlq"))

	require.NoError(t, mock.ExpectationsWereMet())
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Undelivered notification", entry.Message)
	assert.Equal(t, "m1", entry.Data["message_id"])
	assert.Equal(t, "booking.created", entry.Data["topic"])
	assert.Equal(t, "broker down", entry.Data["error"])
}
