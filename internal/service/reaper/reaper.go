// Package reaper продвигает брони по жизненному циклу в зависимости от времени:
// уведомления о скором начале и автоматическое отклонение броней без депозита.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
)

// Виды эффектов для метрик
const (
	EffectUpcoming       = "upcoming"
	EffectStartingNow    = "starting_now"
	EffectExpired        = "expired"
	EffectNotifyFailures = "notify_failed"
)

// Effects результат одного запуска
type Effects struct {
	Upcoming       []int64
	StartingNow    []int64
	Expired        []int64
	NotifyFailures int
}

// Reaper выполняет оба прохода за один вызов Tick
type Reaper struct {
	bookingRepo BookingRepository
	notifier    Notifier
	metrics     Metrics
	txManager   TransactionManager
	location    *time.Location
	logger      Logger
}

// New создает новый экземпляр reaper
func New(bookingRepo BookingRepository, notifier Notifier, metrics Metrics, txManager TransactionManager, location *time.Location, logger Logger) *Reaper {
	return &Reaper{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		metrics:     metrics,
		txManager:   txManager,
		location:    location,
		logger:      logger,
	}
}

// Tick выполняет проход уведомлений и проход истечения депозита на момент now.
// Проходы независимы: ошибка одного не отменяет другой.
func (r *Reaper) Tick(ctx context.Context, at time.Time) (*Effects, error) {
	effects := &Effects{
		Upcoming:    []int64{},
		StartingNow: []int64{},
		Expired:     []int64{},
	}

	errA := r.notifyProximity(ctx, at, effects)
	if errA != nil {
		errA = fmt.Errorf("%w: %v", ErrProximityPass, errA)
	}

	errB := r.expireUnpaid(ctx, at, effects)
	if errB != nil {
		errB = fmt.Errorf("%w: %v", ErrExpiryPass, errB)
	}

	r.metrics.RecordReaperEffect(EffectUpcoming, len(effects.Upcoming))
	r.metrics.RecordReaperEffect(EffectStartingNow, len(effects.StartingNow))
	r.metrics.RecordReaperEffect(EffectExpired, len(effects.Expired))
	r.metrics.RecordReaperEffect(EffectNotifyFailures, effects.NotifyFailures)

	if err := errors.Join(errA, errB); err != nil {
		return effects, err
	}

	r.logger.Debug("Reaper: tick at %s: upcoming=%d, starting=%d, expired=%d, notify_failures=%d",
		at.Format(time.RFC3339), len(effects.Upcoming), len(effects.StartingNow), len(effects.Expired), effects.NotifyFailures)
	return effects, nil
}

// notifyProximity отправляет уведомления о брони через 29-31 минуту и о брони, начинающейся сейчас
func (r *Reaper) notifyProximity(ctx context.Context, at time.Time, effects *Effects) error {
	day := now.With(at.In(r.location))
	from := day.BeginningOfDay()
	to := from.AddDate(0, 0, 1)

	bookings, err := r.bookingRepo.ListStartingBetween(ctx, from, to, domain.ProximityStatuses)
	if err != nil {
		return err
	}

	for _, b := range bookings {
		minutes := domain.MinutesUntilStart(b, at)

		var (
			marker booking.NotificationMarker
			topic  domain.NotificationTopic
			msg    string
		)
		switch {
		case minutes >= domain.UpcomingNoticeFromMinutes && minutes <= domain.UpcomingNoticeToMinutes:
			marker = booking.MarkerUpcoming
			topic = domain.TopicBookingUpcoming
			msg = fmt.Sprintf("Your booking #%d starts at %s, in %d minutes", b.ID, b.StartTime(r.location), minutes)
		case minutes == 0:
			marker = booking.MarkerStarting
			topic = domain.TopicBookingStarting
			msg = fmt.Sprintf("Your booking #%d is starting now", b.ID)
		default:
			continue
		}

		// Каждая бронь обрабатывается отдельно: сбой одной не прерывает пакет
		claimed, err := r.bookingRepo.ClaimNotification(ctx, b.ID, marker, at)
		if err != nil {
			effects.NotifyFailures++
			r.logger.Warn("Reaper: failed to claim %s for booking id=%d: %v", marker, b.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		n := &domain.Notification{
			RecipientID: b.UserID,
			Topic:       topic,
			Message:     msg,
			KeyID:       b.ID,
		}
		if err := r.notifier.Notify(ctx, n); err != nil {
			effects.NotifyFailures++
			r.logger.Warn("Reaper: failed to notify user=%d about booking id=%d: %v", b.UserID, b.ID, err)
			if err := r.bookingRepo.ReleaseNotification(ctx, b.ID, marker); err != nil {
				r.logger.Error("Reaper: failed to release %s for booking id=%d: %v", marker, b.ID, err)
			}
			continue
		}

		if marker == booking.MarkerUpcoming {
			effects.Upcoming = append(effects.Upcoming, b.ID)
		} else {
			effects.StartingNow = append(effects.StartingNow, b.ID)
		}
	}

	return nil
}

// expireUnpaid отклоняет подтверждённые брони, по которым депозит не поступил вовремя
func (r *Reaper) expireUnpaid(ctx context.Context, at time.Time, effects *Effects) error {
	candidates, err := r.bookingRepo.ListDepositCandidates(ctx, at.Add(-domain.DepositProofGrace), at)
	if err != nil {
		return err
	}

	overdue := make(map[int64]*domain.Booking, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, b := range candidates {
		// Кандидаты уже отфильтрованы по депозиту и отсутствию оплаты
		if domain.DepositOverdue(b, true, false, at) {
			overdue[b.ID] = b
			ids = append(ids, b.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	// Статус и отсутствие оплаты перепроверяются в UPDATE: бронь могла быть оплачена после выборки
	var rejected []int64
	err = r.txManager.DoReadCommitted(ctx, func(ctx context.Context) error {
		var err error
		rejected, err = r.bookingRepo.RejectUnpaid(ctx, ids)
		if err != nil {
			return err
		}
		if len(rejected) == 0 {
			return nil
		}
		_, err = r.bookingRepo.DeleteFacilityAllocations(ctx, rejected...)
		return err
	})
	if err != nil {
		return err
	}

	for _, id := range rejected {
		b := overdue[id]
		r.metrics.RecordTransition(string(b.Status), string(domain.StatusRejected), string(domain.ActorReaper))
		r.logger.Info("Reaper: booking id=%d rejected, deposit not received", id)

		n := &domain.Notification{
			RecipientID: b.UserID,
			Topic:       domain.TopicBookingExpired,
			Message: fmt.Sprintf("Your booking #%d on %s %s-%s was cancelled: the deposit was not received in time",
				b.ID, b.StartDate(r.location), b.StartTime(r.location), b.EndTime(r.location)),
			KeyID: b.ID,
		}
		if err := r.notifier.Notify(ctx, n); err != nil {
			effects.NotifyFailures++
			r.logger.Warn("Reaper: failed to notify user=%d about expired booking id=%d: %v", b.UserID, b.ID, err)
		}

		if err := r.notifier.Broadcast(ctx, domain.EventSlotFreed, domain.NewSlotEvent(b)); err != nil {
			r.logger.Warn("Reaper: failed to broadcast %s for booking id=%d: %v", domain.EventSlotFreed, b.ID, err)
		}
	}

	effects.Expired = append(effects.Expired, rejected...)
	return nil
}
