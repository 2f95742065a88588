package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-FieldBookingService/pkg/psqlbuilder"
)

type DBExecutor = dbmetrics.DBExecutor

var paymentColumns = []string{"id", "booking_id", "deposit_slip_url", "total_slip_url", "created_at"}

// Repository оплаты броней. Строки создаются внешним сервисом загрузки чеков, здесь только чтение и очистка.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория оплат
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByBookingID получает оплату брони
func (r *Repository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From("payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingID - build select query: %v", ErrBuildQuery, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByBookingID - scan payment: %v", ErrScanRow, err)
	}

	return payment, nil
}

// DeleteByBookingID удаляет оплату брони и возвращает удалённую строку (нужны ссылки на чеки).
// Если оплаты нет, возвращает nil без ошибки.
func (r *Repository) DeleteByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("payments").
		Where(squirrel.Eq{"booking_id": bookingID}).
		Suffix("RETURNING id, booking_id, deposit_slip_url, total_slip_url, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: DeleteByBookingID - build delete query: %v", ErrBuildQuery, err)
	}

	payment, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: DeleteByBookingID - execute delete: %v", ErrExecQuery, err)
	}

	return payment, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment    domain.Payment
		depositURL sql.NullString
		totalURL   sql.NullString
	)

	if err := row.Scan(&payment.ID, &payment.BookingID, &depositURL, &totalURL, &payment.CreatedAt); err != nil {
		return nil, err
	}

	if depositURL.Valid {
		payment.DepositSlipURL = &depositURL.String
	}
	if totalURL.Valid {
		payment.TotalSlipURL = &totalURL.String
	}

	return &payment, nil
}
