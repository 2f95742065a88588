package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-FieldBookingService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

var bookingColumns = []string{
	"id",
	"user_id",
	"sub_field_id",
	"field_id",
	"booking_date",
	"start_at",
	"end_at",
	"selected_slots",
	"total_hours",
	"total_price",
	"total_remaining",
	"pay_method",
	"activity",
	"status",
	"upcoming_notified_at",
	"start_notified_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями и их позициями инвентаря
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование
// Должен вызываться в той же транзакции, в которой проверено отсутствие пересечений
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"user_id",
			"sub_field_id",
			"field_id",
			"booking_date",
			"start_at",
			"end_at",
			"selected_slots",
			"total_hours",
			"total_price",
			"total_remaining",
			"pay_method",
			"activity",
			"status",
		).
		Values(
			booking.UserID,
			booking.ResourceID,
			booking.FieldID,
			booking.BookingDate.Format(domain.DateFormat),
			booking.StartAt,
			booking.EndAt,
			pq.Array(booking.SelectedSlots),
			booking.TotalHours,
			booking.TotalPrice,
			booking.TotalRemaining,
			booking.PayMethod,
			booking.Activity,
			booking.Status,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return booking, nil
}

// CreateFacilityAllocations сохраняет позиции инвентаря брони одним запросом
func (r *Repository) CreateFacilityAllocations(ctx context.Context, bookingID int64, allocations []domain.FacilityAllocation) error {
	if len(allocations) == 0 {
		return nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	insert := psqlbuilder.Insert("booking_fac").
		Columns("booking_id", "field_id", "facility_id", "facility_name", "quantity")
	for _, a := range allocations {
		insert = insert.Values(bookingID, a.FieldID, a.FacilityID, a.FacilityName, a.Quantity)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreateFacilityAllocations - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: CreateFacilityAllocations - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByID получает бронирование по ID
// Внутри транзакции строка блокируется (FOR UPDATE), чтобы переходы статуса не гонялись друг с другом
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// GetFacilityAllocations получает позиции инвентаря брони
func (r *Repository) GetFacilityAllocations(ctx context.Context, bookingID int64) ([]domain.FacilityAllocation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "booking_id", "field_id", "facility_id", "facility_name", "quantity").
		From("booking_fac").
		Where(squirrel.Eq{"booking_id": bookingID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetFacilityAllocations - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetFacilityAllocations - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	allocations := make([]domain.FacilityAllocation, 0)
	for rows.Next() {
		var a domain.FacilityAllocation
		if err := rows.Scan(&a.ID, &a.BookingID, &a.FieldID, &a.FacilityID, &a.FacilityName, &a.Quantity); err != nil {
			return nil, fmt.Errorf("%w: GetFacilityAllocations - scan row: %v", ErrScanRow, err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetFacilityAllocations - rows error: %v", ErrScanRow, err)
	}

	return allocations, nil
}

// ListOverlapping получает не отклонённые брони подполя, пересекающиеся с окном.
// Внутри транзакции найденные строки блокируются (FOR UPDATE).
func (r *Repository) ListOverlapping(ctx context.Context, resourceID int64, window timewindow.Window) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"sub_field_id": resourceID}).
		Where(squirrel.NotEq{"status": domain.StatusRejected}).
		Where(squirrel.Lt{"start_at": window.End}).
		Where(squirrel.Gt{"end_at": window.Start}).
		OrderBy("start_at ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListOverlapping - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListOverlapping - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// SumFacilityAllocated суммирует количество инвентаря, занятого не отклонёнными бронями поля в пересекающемся окне.
// Агрегат нельзя выбрать FOR UPDATE, поэтому вызывающий код предварительно блокирует строку facilities.
func (r *Repository) SumFacilityAllocated(ctx context.Context, fieldID, facilityID int64, window timewindow.Window) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COALESCE(SUM(bf.quantity), 0)").
		From("booking_fac bf").
		Join("bookings b ON b.id = bf.booking_id").
		Where(squirrel.Eq{"b.field_id": fieldID}).
		Where(squirrel.Eq{"bf.facility_id": facilityID}).
		Where(squirrel.NotEq{"b.status": domain.StatusRejected}).
		Where(squirrel.Lt{"b.start_at": window.End}).
		Where(squirrel.Gt{"b.end_at": window.Start}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: SumFacilityAllocated - build select query: %v", ErrBuildQuery, err)
	}

	var total int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: SumFacilityAllocated - scan sum: %v", ErrScanRow, err)
	}

	return total, nil
}

// GetByUserID получает список бронирований пользователя
// Опционально фильтрует по статусу
func (r *Repository) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("start_at DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetByResourceWithFilter получает бронирования подполя с фильтрацией по дате и статусу
func (r *Repository) GetByResourceWithFilter(ctx context.Context, filter domain.ResourceBookingsFilter) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"sub_field_id": filter.ResourceID})

	if filter.Date != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"booking_date": filter.Date.Format(domain.DateFormat)})
	}

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeRejected {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": domain.StatusRejected})
	}

	query, args, err := selectBuilder.OrderBy("start_at ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByResourceWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByResourceWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// UpdateStatus переводит бронь из статуса from в статус to.
// Если статус уже не from, возвращает ErrStatusChanged.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) error {
	return r.updateStatus(ctx, "UpdateStatus", psqlbuilder.Update("bookings").
		Set("status", to).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": from}), id)
}

// MarkApproved подтверждает бронь и ставит updated_at = approvedAt (якорь дедлайна депозита)
func (r *Repository) MarkApproved(ctx context.Context, id int64, from domain.BookingStatus, approvedAt time.Time) error {
	return r.updateStatus(ctx, "MarkApproved", psqlbuilder.Update("bookings").
		Set("status", domain.StatusApproved).
		Set("updated_at", approvedAt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": from}), id)
}

func (r *Repository) updateStatus(ctx context.Context, method string, update squirrel.UpdateBuilder, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, method, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, method, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, method, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: booking id=%d", ErrStatusChanged, id)
	}

	return nil
}

// Delete физически удаляет бронирование (позиции инвентаря и оплата удаляются каскадно)
func (r *Repository) Delete(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

// DeleteFacilityAllocations удаляет позиции инвентаря указанных броней
func (r *Repository) DeleteFacilityAllocations(ctx context.Context, bookingIDs ...int64) (int64, error) {
	if len(bookingIDs) == 0 {
		return 0, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("booking_fac").
		Where(squirrel.Eq{"booking_id": bookingIDs}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteFacilityAllocations - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteFacilityAllocations - execute delete: %v", ErrExecQuery, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteFacilityAllocations - get rows affected: %v", ErrExecQuery, err)
	}

	return deleted, nil
}

// ListStartingBetween получает брони с указанными статусами, начинающиеся в [from, to)
func (r *Repository) ListStartingBetween(ctx context.Context, from, to time.Time, statuses []domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"status": statuses}).
		Where(squirrel.GtOrEq{"start_at": from}).
		Where(squirrel.Lt{"start_at": to}).
		OrderBy("start_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListStartingBetween - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListStartingBetween - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ClaimNotification атомарно ставит маркер отправки уведомления.
// Возвращает false, если маркер уже стоял (уведомление отправлено ранее).
func (r *Repository) ClaimNotification(ctx context.Context, id int64, marker NotificationMarker, at time.Time) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set(string(marker), at).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{string(marker): nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: ClaimNotification - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: ClaimNotification - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: ClaimNotification - get rows affected: %v", ErrExecQuery, err)
	}

	return rowsAffected == 1, nil
}

// ReleaseNotification снимает маркер, чтобы следующий запуск повторил отправку
func (r *Repository) ReleaseNotification(ctx context.Context, id int64, marker NotificationMarker) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set(string(marker), nil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: ReleaseNotification - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: ReleaseNotification - execute update: %v", ErrExecQuery, err)
	}

	return nil
}

// ListDepositCandidates получает подтверждённые брони полей с обязательным депозитом, по которым нет оплаты,
// и у которых либо истёк льготный период после подтверждения, либо уже наступило начало.
// Точную проверку выполняет domain.DepositOverdue.
func (r *Repository) ListDepositCandidates(ctx context.Context, graceDeadline, now time.Time) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	columns := make([]string, len(bookingColumns))
	for i, c := range bookingColumns {
		columns[i] = "b." + c
	}

	query, args, err := psqlbuilder.Select(columns...).
		From("bookings b").
		Join("fields f ON f.id = b.field_id").
		Where(squirrel.Eq{"b.status": domain.DepositTrackedStatuses}).
		Where(squirrel.Gt{"f.price_deposit": 0}).
		Where("NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id)").
		Where(squirrel.Or{
			squirrel.Lt{"b.updated_at": graceDeadline},
			squirrel.LtOrEq{"b.start_at": now},
		}).
		OrderBy("b.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListDepositCandidates - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListDepositCandidates - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// RejectUnpaid переводит указанные брони в rejected, повторно проверяя текущий статус и отсутствие оплаты.
// Возвращает ID броней, которые действительно были отклонены.
func (r *Repository) RejectUnpaid(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("bookings").
		Set("status", domain.StatusRejected).
		Where(squirrel.Eq{"id": ids}).
		Where(squirrel.Eq{"status": domain.DepositTrackedStatuses}).
		Where("NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = bookings.id)").
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: RejectUnpaid - build update query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: RejectUnpaid - execute update: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	rejected := make([]int64, 0, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: RejectUnpaid - scan id: %v", ErrScanRow, err)
		}
		rejected = append(rejected, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: RejectUnpaid - rows error: %v", ErrScanRow, err)
	}

	return rejected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		booking            domain.Booking
		upcoming, starting sql.NullTime
	)

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.ResourceID,
		&booking.FieldID,
		&booking.BookingDate,
		&booking.StartAt,
		&booking.EndAt,
		pq.Array(&booking.SelectedSlots),
		&booking.TotalHours,
		&booking.TotalPrice,
		&booking.TotalRemaining,
		&booking.PayMethod,
		&booking.Activity,
		&booking.Status,
		&upcoming,
		&starting,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if upcoming.Valid {
		booking.UpcomingNotifiedAt = &upcoming.Time
	}
	if starting.Valid {
		booking.StartNotifiedAt = &starting.Time
	}

	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}
