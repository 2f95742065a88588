package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	payload, err := json.Marshal(Job{
		To:      "ann@example.com",
		Name:    "Ann",
		Subject: "Booking approved",
		Body:    "See you",
		Created: created,
	})
	require.NoError(t, err)
	mock.ExpectLPush("emails", payload).SetVal(1)

	q := New(db, "")
	q.now = func() time.Time { return created }

	require.NoError(t, q.Enqueue(context.Background(), "ann@example.com", "Ann", "Booking approved", "See you"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueRedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush("emails:field", `.*`).SetErr(errors.New("connection refused"))

	err := New(db, "emails:field").Enqueue(context.Background(), "a@b.c", "A", "s", "b")
	assert.ErrorIs(t, err, ErrEnqueue)
}

func TestLen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen("emails").SetVal(3)

	n, err := New(db, "").Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
