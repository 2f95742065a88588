package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

// Service сервис жизненного цикла бронирований: смена статуса, отмена, удаление и чтение.
// Все изменения статуса выполняются под блокировкой строки брони; уведомления и удаление чеков
// из внешнего хранилища выполняются после коммита.
type Service struct {
	bookingRepo  BookingRepository
	resourceRepo ResourceRepository
	paymentRepo  PaymentRepository
	files        FileStorage
	notifier     Notifier
	metrics      Metrics
	txManager    TransactionManager
	timeProvider TimeProvider
	location     *time.Location
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	resourceRepo ResourceRepository,
	paymentRepo PaymentRepository,
	files FileStorage,
	notifier Notifier,
	metrics Metrics,
	txManager TransactionManager,
	location *time.Location,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepo,
		resourceRepo: resourceRepo,
		paymentRepo:  paymentRepo,
		files:        files,
		notifier:     notifier,
		metrics:      metrics,
		txManager:    txManager,
		timeProvider: realTimeProvider{},
		location:     location,
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник времени
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// GetByID получает бронирование по ID.
// Доступно клиенту брони, владельцу поля и администратору.
func (s *Service) GetByID(ctx context.Context, id int64, req *models.GetBookingRequest) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, req.UserID)

	booking, err := s.getBooking(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	resource, err := s.getResource(ctx, "GetByID", booking.ResourceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.resolveActor(booking, resource, req.UserID, req.Role); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", req.UserID, id)
		return nil, err
	}

	booking.Facilities, err = s.bookingRepo.GetFacilityAllocations(ctx, id)
	if err != nil {
		s.logger.Error("GetByID: failed to get facilities for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - get facilities: %v", ErrInternal, err)
	}

	s.logger.Info("GetByID: successfully fetched booking id=%d", id)
	return models.FromDomainBooking(booking, s.location), nil
}

// GetUserBookings получает историю бронирований пользователя.
// Пользователь видит только свои брони, администратор любые.
func (s *Service) GetUserBookings(ctx context.Context, req *models.GetUserBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetUserBookings: fetching bookings for user=%d by user=%d, status=%v", req.UserID, req.RequesterID, req.Status)

	if req.RequesterID != req.UserID && req.Role != domain.RoleAdmin {
		s.logger.Warn("GetUserBookings: user=%d cannot read bookings of user=%d", req.RequesterID, req.UserID)
		return nil, ErrAccessDenied
	}

	var status *domain.BookingStatus
	if req.Status != nil {
		parsed, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetUserBookings: invalid status=%s for user=%d", *req.Status, req.UserID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		status = &parsed
	}

	bookings, err := s.bookingRepo.GetByUserID(ctx, req.UserID, status)
	if err != nil {
		s.logger.Error("GetUserBookings: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetUserBookings: successfully fetched %d bookings for user=%d", len(bookings), req.UserID)
	return models.FromDomainBookingList(bookings, s.location), nil
}

// GetResourceBookings получает бронирования подполя.
// Доступно владельцу поля и администратору.
func (s *Service) GetResourceBookings(ctx context.Context, req *models.GetResourceBookingsRequest) (*models.BookingListResponse, error) {
	logMsg := fmt.Sprintf("GetResourceBookings: fetching bookings for resource=%d, user=%d", req.ResourceID, req.UserID)
	if req.Date != nil {
		logMsg += fmt.Sprintf(", date=%s", req.Date.Format(domain.DateFormat))
	}
	if req.Status != nil {
		logMsg += fmt.Sprintf(", status=%s", *req.Status)
	}
	s.logger.Info(logMsg)

	resource, err := s.getResource(ctx, "GetResourceBookings", req.ResourceID)
	if err != nil {
		return nil, err
	}

	if err := s.checkOwnerAccess(resource, req.UserID, req.Role); err != nil {
		return nil, err
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetResourceBookings: invalid filter for resource=%d: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: invalid filter", ErrInvalidInput)
	}

	bookings, err := s.bookingRepo.GetByResourceWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetResourceBookings: repository error for resource=%d: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: GetResourceBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetResourceBookings: successfully fetched %d bookings for resource=%d", len(bookings), req.ResourceID)
	return models.FromDomainBookingList(bookings, s.location), nil
}

// SetStatus переводит бронь в новый статус по таблице переходов.
// При подтверждении updated_at становится якорем дедлайна депозита.
// При отклонении удаляются позиции инвентаря и оплата, чеки удаляются из хранилища после коммита.
func (s *Service) SetStatus(ctx context.Context, bookingID int64, req *models.SetStatusRequest) (*models.BookingResponse, error) {
	s.logger.Info("SetStatus: booking id=%d to status=%s by user=%d", bookingID, req.Status, req.UserID)

	to, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		s.logger.Warn("SetStatus: invalid status=%s for booking id=%d", req.Status, bookingID)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	reason := strings.TrimSpace(req.Reason)
	if len(reason) > domain.MaxReasonLength {
		return nil, fmt.Errorf("%w: reason must not exceed %d characters", ErrInvalidInput, domain.MaxReasonLength)
	}

	var (
		booking   *domain.Booking
		resource  *domain.Resource
		actor     domain.Actor
		from      domain.BookingStatus
		artifacts []string
	)

	err = s.txManager.DoReadCommitted(ctx, func(txCtx context.Context) error {
		var err error

		// 1. Блокируем бронь
		booking, err = s.getBooking(txCtx, "SetStatus", bookingID)
		if err != nil {
			return err
		}

		resource, err = s.getResource(txCtx, "SetStatus", booking.ResourceID)
		if err != nil {
			return err
		}

		// 2. Определяем роль пользователя относительно брони
		actor, err = s.resolveActor(booking, resource, req.UserID, req.Role)
		if err != nil {
			s.logger.Warn("SetStatus: access denied for user=%d to booking id=%d", req.UserID, bookingID)
			return err
		}

		// 3. Проверяем переход по таблице
		from = booking.Status
		if err := booking.TransitionTo(to, actor); err != nil {
			s.logger.Warn("SetStatus: %v", err)
			return err
		}

		// 4. Сохраняем
		switch to {
		case domain.StatusApproved:
			now := s.timeProvider.Now()
			if err := s.bookingRepo.MarkApproved(txCtx, bookingID, from, now); err != nil {
				return s.mapUpdateError("SetStatus", bookingID, err)
			}
			booking.UpdatedAt = now
		case domain.StatusRejected:
			if err := s.bookingRepo.UpdateStatus(txCtx, bookingID, from, to); err != nil {
				return s.mapUpdateError("SetStatus", bookingID, err)
			}
			artifacts, err = s.cleanup(txCtx, "SetStatus", bookingID)
			if err != nil {
				return err
			}
		default:
			if err := s.bookingRepo.UpdateStatus(txCtx, bookingID, from, to); err != nil {
				return s.mapUpdateError("SetStatus", bookingID, err)
			}
		}

		if to != domain.StatusRejected {
			booking.Facilities, err = s.bookingRepo.GetFacilityAllocations(txCtx, bookingID)
			if err != nil {
				s.logger.Error("SetStatus: failed to get facilities for booking id=%d: %v", bookingID, err)
				return fmt.Errorf("%w: SetStatus - get facilities: %v", ErrInternal, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, s.wrapTxError("SetStatus", err)
	}

	s.metrics.RecordTransition(string(from), string(to), string(actor))
	s.logger.Info("SetStatus: booking id=%d moved %s -> %s by %s", bookingID, from, to, actor)

	// 5. Побочные эффекты после коммита
	s.deleteArtifacts(ctx, "SetStatus", artifacts)
	s.notifyStatusChange(ctx, booking, resource, req.UserID, reason)
	if to == domain.StatusRejected {
		s.broadcastFreed(ctx, "SetStatus", booking)
	}

	return models.FromDomainBooking(booking, s.location), nil
}

// Cancel отменяет бронирование по запросу клиента или владельца поля.
//
// Если у поля нет политики отмены или отменяет владелец (администратор), бронь переводится в rejected.
// Иначе до дедлайна (начало минус cancel_hours) бронь удаляется целиком, после дедлайна отмена запрещена.
// Текущее время берётся с часов сервера.
func (s *Service) Cancel(ctx context.Context, bookingID int64, req *models.CancelBookingRequest) (*models.CancelResponse, error) {
	s.logger.Info("Cancel: cancelling booking id=%d by user=%d", bookingID, req.UserID)

	now := s.timeProvider.Now()

	var (
		booking   *domain.Booking
		resource  *domain.Resource
		actor     domain.Actor
		from      domain.BookingStatus
		result    *models.CancelResponse
		artifacts []string
	)

	err := s.txManager.DoReadCommitted(ctx, func(txCtx context.Context) error {
		var err error

		booking, err = s.getBooking(txCtx, "Cancel", bookingID)
		if err != nil {
			return err
		}

		resource, err = s.getResource(txCtx, "Cancel", booking.ResourceID)
		if err != nil {
			return err
		}

		actor, err = s.resolveActor(booking, resource, req.UserID, req.Role)
		if err != nil {
			s.logger.Warn("Cancel: access denied for user=%d to booking id=%d", req.UserID, bookingID)
			return err
		}

		from = booking.Status
		if !booking.CanBeCancelled() || actor == domain.ActorReaper {
			s.logger.Warn("Cancel: booking id=%d cannot be cancelled, status=%s", bookingID, booking.Status)
			return &domain.TransitionError{From: from, To: domain.StatusRejected, Actor: actor}
		}

		field := resource.Field
		start := booking.StartAt.In(s.location)

		// Без политики отмены или отмена владельцем: мягкая отмена
		if !field.HasCancelPolicy() || actor != domain.ActorCustomer {
			if err := booking.Cancel(actor); err != nil {
				return err
			}
			if err := s.bookingRepo.UpdateStatus(txCtx, bookingID, from, domain.StatusRejected); err != nil {
				return s.mapUpdateError("Cancel", bookingID, err)
			}
			artifacts, err = s.cleanup(txCtx, "Cancel", bookingID)
			if err != nil {
				return err
			}

			result = &models.CancelResponse{
				BookingID:    bookingID,
				Outcome:      models.CancelOutcomeRejected,
				BookingStart: start,
				Message:      fmt.Sprintf("Booking #%d on %s was cancelled", bookingID, start.Format("2006-01-02 15:04")),
			}
			return nil
		}

		deadline := timewindow.CancelDeadline(booking.StartAt, *field.CancelHours).In(s.location)
		if !now.Before(deadline) {
			s.logger.Warn("Cancel: booking id=%d cancellation deadline %s passed (now=%s)",
				bookingID, deadline.Format(time.RFC3339), now.Format(time.RFC3339))
			return &CancellationWindowExpiredError{Deadline: deadline, BookingStart: start}
		}

		// До дедлайна: удаляем бронь, слот сразу свободен
		artifacts, err = s.cleanup(txCtx, "Cancel", bookingID)
		if err != nil {
			return err
		}
		if err := s.bookingRepo.Delete(txCtx, bookingID); err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			s.logger.Error("Cancel: failed to delete booking id=%d: %v", bookingID, err)
			return fmt.Errorf("%w: Cancel - delete booking: %v", ErrInternal, err)
		}

		result = &models.CancelResponse{
			BookingID:    bookingID,
			Outcome:      models.CancelOutcomeDeleted,
			Deadline:     &deadline,
			BookingStart: start,
			Message: fmt.Sprintf("Booking #%d was cancelled before the deadline %s and removed",
				bookingID, deadline.Format("2006-01-02 15:04")),
		}
		return nil
	})
	if err != nil {
		return nil, s.wrapTxError("Cancel", err)
	}

	s.metrics.RecordTransition(string(from), string(domain.StatusRejected), string(actor))
	s.logger.Info("Cancel: booking id=%d cancelled by %s, outcome=%s", bookingID, actor, result.Outcome)

	s.deleteArtifacts(ctx, "Cancel", artifacts)
	s.notifyCancellation(ctx, booking, resource, actor, req.UserID)
	s.broadcastFreed(ctx, "Cancel", booking)

	return result, nil
}

// AdminDelete удаляет бронирование в обход жизненного цикла. Только для администратора.
func (s *Service) AdminDelete(ctx context.Context, bookingID int64, req *models.AdminDeleteRequest) error {
	s.logger.Info("AdminDelete: deleting booking id=%d by user=%d", bookingID, req.UserID)

	if req.Role != domain.RoleAdmin {
		s.logger.Warn("AdminDelete: user=%d is not an admin", req.UserID)
		return ErrAccessDenied
	}

	var (
		booking   *domain.Booking
		artifacts []string
	)

	err := s.txManager.DoReadCommitted(ctx, func(txCtx context.Context) error {
		var err error

		booking, err = s.getBooking(txCtx, "AdminDelete", bookingID)
		if err != nil {
			return err
		}

		artifacts, err = s.cleanup(txCtx, "AdminDelete", bookingID)
		if err != nil {
			return err
		}

		if err := s.bookingRepo.Delete(txCtx, bookingID); err != nil {
			if errors.Is(err, bookingRepo.ErrBookingNotFound) {
				return ErrBookingNotFound
			}
			s.logger.Error("AdminDelete: failed to delete booking id=%d: %v", bookingID, err)
			return fmt.Errorf("%w: AdminDelete - delete booking: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return s.wrapTxError("AdminDelete", err)
	}

	s.logger.Info("AdminDelete: booking id=%d deleted", bookingID)

	s.deleteArtifacts(ctx, "AdminDelete", artifacts)
	if booking.IsActive() {
		s.broadcastFreed(ctx, "AdminDelete", booking)
	}

	return nil
}

// Вспомогательные методы

func (s *Service) getBooking(ctx context.Context, method string, id int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", method, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", method, id, err)
		return nil, fmt.Errorf("%w: %s - get booking: %v", ErrInternal, method, err)
	}
	return booking, nil
}

func (s *Service) getResource(ctx context.Context, method string, id int64) (*domain.Resource, error) {
	resource, err := s.resourceRepo.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, fieldRepo.ErrResourceNotFound) {
			s.logger.Warn("%s: resource id=%d not found", method, id)
			return nil, ErrResourceNotFound
		}
		s.logger.Error("%s: failed to get resource id=%d: %v", method, id, err)
		return nil, fmt.Errorf("%w: %s - get resource: %v", ErrInternal, method, err)
	}
	return resource, nil
}

// resolveActor определяет, от чьего имени действует пользователь: администратор, владелец поля или клиент брони
func (s *Service) resolveActor(booking *domain.Booking, resource *domain.Resource, userID int64, role domain.Role) (domain.Actor, error) {
	switch {
	case role == domain.RoleAdmin:
		return domain.ActorAdmin, nil
	case resource.OwnerID() == userID:
		return domain.ActorOwner, nil
	case booking.UserID == userID:
		return domain.ActorCustomer, nil
	default:
		return "", ErrAccessDenied
	}
}

// checkOwnerAccess проверяет, что пользователь владеет полем подполя или является администратором
func (s *Service) checkOwnerAccess(resource *domain.Resource, userID int64, role domain.Role) error {
	if role == domain.RoleAdmin || resource.OwnerID() == userID {
		return nil
	}
	s.logger.Warn("checkOwnerAccess: user=%d is not an owner of field=%d", userID, resource.FieldID)
	return ErrAccessDenied
}

// cleanup удаляет позиции инвентаря и оплату брони, возвращает ссылки на чеки для удаления из хранилища
func (s *Service) cleanup(ctx context.Context, method string, bookingID int64) ([]string, error) {
	if _, err := s.bookingRepo.DeleteFacilityAllocations(ctx, bookingID); err != nil {
		s.logger.Error("%s: failed to delete facilities of booking id=%d: %v", method, bookingID, err)
		return nil, fmt.Errorf("%w: %s - delete facilities: %v", ErrInternal, method, err)
	}

	payment, err := s.paymentRepo.DeleteByBookingID(ctx, bookingID)
	if err != nil {
		s.logger.Error("%s: failed to delete payment of booking id=%d: %v", method, bookingID, err)
		return nil, fmt.Errorf("%w: %s - delete payment: %v", ErrInternal, method, err)
	}
	if payment == nil {
		return nil, nil
	}

	return payment.ArtifactURLs(), nil
}

// deleteArtifacts удаляет чеки из внешнего хранилища; ошибки только логируются
func (s *Service) deleteArtifacts(ctx context.Context, method string, urls []string) {
	for _, url := range urls {
		if err := s.files.Delete(ctx, url); err != nil {
			s.logger.Warn("%s: failed to delete artifact %s: %v", method, url, err)
		}
	}
}

func (s *Service) mapUpdateError(method string, bookingID int64, err error) error {
	if errors.Is(err, bookingRepo.ErrStatusChanged) {
		s.logger.Warn("%s: booking id=%d status changed concurrently", method, bookingID)
		return ErrConcurrentUpdate
	}
	s.logger.Error("%s: failed to update booking id=%d: %v", method, bookingID, err)
	return fmt.Errorf("%w: %s - update status: %v", ErrInternal, method, err)
}

// wrapTxError оставляет бизнес-ошибки как есть, остальные (begin/commit) оборачивает в ErrInternal
func (s *Service) wrapTxError(method string, err error) error {
	var (
		transition *domain.TransitionError
		expired    *CancellationWindowExpiredError
	)
	switch {
	case errors.Is(err, ErrInternal),
		errors.Is(err, ErrBookingNotFound),
		errors.Is(err, ErrResourceNotFound),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrConcurrentUpdate),
		errors.As(err, &transition),
		errors.As(err, &expired):
		return err
	default:
		s.logger.Error("%s: transaction failed: %v", method, err)
		return fmt.Errorf("%w: %s - transaction: %v", ErrInternal, method, err)
	}
}
