package reserve_booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// memoryStore хранилище в памяти с блокировками строк, освобождаемыми при завершении транзакции
type memoryStore struct {
	mu          sync.Mutex
	rowLocks    map[string]*sync.Mutex
	resources   map[int64]*domain.Resource
	facilities  map[int64]*domain.Facility
	bookings    []*domain.Booking
	allocations []domain.FacilityAllocation
	nextID      int64

	failAllocations bool
}

type txKey struct{}

type memoryTx struct {
	held        []*sync.Mutex
	bookings    []*domain.Booking
	allocations []domain.FacilityAllocation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rowLocks:   make(map[string]*sync.Mutex),
		resources:  make(map[int64]*domain.Resource),
		facilities: make(map[int64]*domain.Facility),
	}
}

func (s *memoryStore) DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &memoryTx{}
	defer func() {
		for i := len(tx.held) - 1; i >= 0; i-- {
			tx.held[i].Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.bookings = append(s.bookings, tx.bookings...)
	s.allocations = append(s.allocations, tx.allocations...)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) lockRow(ctx context.Context, key string) {
	tx, ok := ctx.Value(txKey{}).(*memoryTx)
	if !ok {
		return
	}

	s.mu.Lock()
	l, exists := s.rowLocks[key]
	if !exists {
		l = &sync.Mutex{}
		s.rowLocks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	tx.held = append(tx.held, l)
}

func (s *memoryStore) GetResource(_ context.Context, resourceID int64) (*domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resourceID]
	if !ok {
		return nil, fieldRepo.ErrResourceNotFound
	}
	return r, nil
}

func (s *memoryStore) LockResource(ctx context.Context, resourceID int64) error {
	if _, err := s.GetResource(ctx, resourceID); err != nil {
		return err
	}
	s.lockRow(ctx, fmt.Sprintf("sub_fields:%d", resourceID))
	return nil
}

func (s *memoryStore) GetFacility(ctx context.Context, fieldID, facilityID int64) (*domain.Facility, error) {
	s.mu.Lock()
	f, ok := s.facilities[facilityID]
	s.mu.Unlock()
	if !ok || f.FieldID != fieldID {
		return nil, fieldRepo.ErrFacilityNotFound
	}
	s.lockRow(ctx, fmt.Sprintf("facilities:%d", facilityID))
	return f, nil
}

func (s *memoryStore) ListOverlapping(_ context.Context, resourceID int64, window timewindow.Window) ([]*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Booking
	for _, b := range s.bookings {
		if b.ResourceID == resourceID && b.IsActive() && b.Window().Overlaps(window) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *memoryStore) SumFacilityAllocated(_ context.Context, fieldID, facilityID int64, window timewindow.Window) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, a := range s.allocations {
		if a.FieldID != fieldID || a.FacilityID != facilityID {
			continue
		}
		for _, b := range s.bookings {
			if b.ID == a.BookingID && b.IsActive() && b.Window().Overlaps(window) {
				total += a.Quantity
			}
		}
	}
	return total, nil
}

func (s *memoryStore) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	tx := ctx.Value(txKey{}).(*memoryTx)

	s.mu.Lock()
	s.nextID++
	booking.ID = s.nextID
	s.mu.Unlock()

	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	tx.bookings = append(tx.bookings, booking)
	return booking, nil
}

func (s *memoryStore) CreateFacilityAllocations(ctx context.Context, bookingID int64, allocations []domain.FacilityAllocation) error {
	if s.failAllocations {
		return errors.New("connection reset by peer")
	}
	tx := ctx.Value(txKey{}).(*memoryTx)
	for _, a := range allocations {
		a.BookingID = bookingID
		tx.allocations = append(tx.allocations, a)
	}
	return nil
}

func (s *memoryStore) committedBookings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memoryStore) committedAllocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allocations)
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []*domain.Notification
	events        []domain.EventTopic
	fail          bool
}

func (n *recordingNotifier) Notify(_ context.Context, notification *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	if n.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *recordingNotifier) Broadcast(_ context.Context, topic domain.EventTopic, _ interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, topic)
	if n.fail {
		return errors.New("broker unavailable")
	}
	return nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) RecordReservation(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]int)
	}
	m.outcomes[outcome]++
}

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time {
	return f.now
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
