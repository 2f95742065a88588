package broadcaster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, key, messageID string, v any) error {
	return m.Called(ctx, key, messageID, v).Error(0)
}

func TestPublishWrapsPayload(t *testing.T) {
	publisher := new(mockPublisher)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	var sent Envelope
	publisher.On("PublishJSON", mock.Anything, "slot.freed", mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(3).(Envelope) }).
		Return(nil).Once()

	b := New(publisher)
	b.now = func() time.Time { return now }

	event := domain.SlotEvent{BookingID: 10, ResourceID: 3}
	require.NoError(t, b.Publish(context.Background(), domain.EventSlotFreed, event))

	_, err := uuid.Parse(sent.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.EventSlotFreed, sent.Topic)
	assert.Equal(t, now, sent.OccurredAt)
	assert.Equal(t, event, sent.Payload)
	publisher.AssertExpectations(t)
}

func TestPublishFailure(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	err := New(publisher).Publish(context.Background(), domain.EventSlotReserved, nil)
	assert.ErrorIs(t, err, ErrPublish)
}
