package reaper

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
)

// memoryRepo повторяет выборки репозитория бронирований в памяти
type memoryRepo struct {
	mu           sync.Mutex
	bookings     map[int64]*domain.Booking
	deposit      map[int64]bool // field id -> requires deposit
	paid         map[int64]bool // booking id -> payment exists
	facilities   map[int64]int  // booking id -> allocation rows
	listErr      error
	beforeReject func()
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bookings:   make(map[int64]*domain.Booking),
		deposit:    make(map[int64]bool),
		paid:       make(map[int64]bool),
		facilities: make(map[int64]int),
	}
}

func (m *memoryRepo) add(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

func (m *memoryRepo) status(id int64) domain.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func (m *memoryRepo) sorted() []*domain.Booking {
	out := make([]*domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasStatus(s domain.BookingStatus, statuses []domain.BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (m *memoryRepo) ListStartingBetween(_ context.Context, from, to time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Booking
	for _, b := range m.sorted() {
		if hasStatus(b.Status, statuses) && !b.StartAt.Before(from) && b.StartAt.Before(to) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) marker(b *domain.Booking, marker booking.NotificationMarker) **time.Time {
	if marker == booking.MarkerUpcoming {
		return &b.UpcomingNotifiedAt
	}
	return &b.StartNotifiedAt
}

func (m *memoryRepo) ClaimNotification(_ context.Context, id int64, marker booking.NotificationMarker, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	field := m.marker(m.bookings[id], marker)
	if *field != nil {
		return false, nil
	}
	*field = &at
	return true, nil
}

func (m *memoryRepo) ReleaseNotification(_ context.Context, id int64, marker booking.NotificationMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	*m.marker(m.bookings[id], marker) = nil
	return nil
}

func (m *memoryRepo) ListDepositCandidates(_ context.Context, graceDeadline, now time.Time) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Booking
	for _, b := range m.sorted() {
		if !hasStatus(b.Status, domain.DepositTrackedStatuses) || !m.deposit[b.FieldID] || m.paid[b.ID] {
			continue
		}
		if b.UpdatedAt.Before(graceDeadline) || !b.StartAt.After(now) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) RejectUnpaid(_ context.Context, ids []int64) ([]int64, error) {
	if m.beforeReject != nil {
		m.beforeReject()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rejected := []int64{}
	for _, id := range ids {
		b := m.bookings[id]
		if hasStatus(b.Status, domain.DepositTrackedStatuses) && !m.paid[id] {
			b.Status = domain.StatusRejected
			rejected = append(rejected, id)
		}
	}
	return rejected, nil
}

func (m *memoryRepo) DeleteFacilityAllocations(_ context.Context, bookingIDs ...int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range bookingIDs {
		deleted += int64(m.facilities[id])
		delete(m.facilities, id)
	}
	return deleted, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	sent       []*domain.Notification
	broadcasts []domain.SlotEvent
	failFor    map[int64]bool
}

func (n *recordingNotifier) Notify(_ context.Context, notification *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[notification.KeyID] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) Broadcast(_ context.Context, _ domain.EventTopic, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, payload.(domain.SlotEvent))
	return nil
}

func (n *recordingNotifier) topics() map[int64][]domain.NotificationTopic {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[int64][]domain.NotificationTopic)
	for _, s := range n.sent {
		out[s.KeyID] = append(out[s.KeyID], s.Topic)
	}
	return out
}

type countingMetrics struct {
	transitions []string
	effects     map[string]int
}

func (c *countingMetrics) RecordTransition(from, to, actor string) {
	c.transitions = append(c.transitions, from+"->"+to+":"+actor)
}

func (c *countingMetrics) RecordReaperEffect(kind string, count int) {
	if c.effects == nil {
		c.effects = make(map[string]int)
	}
	c.effects[kind] += count
}

type passthroughTx struct{}

func (passthroughTx) DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
func (discardLogger) Debug(string, ...interface{}) {}
