package field

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

// Repository каталог полей, подполей и инвентаря.
// Сервис только читает эти таблицы; блокировки строк используются как точки сериализации бронирований.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория каталога
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetResource получает подполе вместе с настройками поля
func (r *Repository) GetResource(ctx context.Context, resourceID int64) (*domain.Resource, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"s.id",
		"s.field_id",
		"s.name",
		"s.price",
		"f.owner_id",
		"f.name",
		"f.open_time",
		"f.close_time",
		"f.slot_duration_minutes",
		"f.cancel_hours",
		"f.price_deposit",
	).
		From("sub_fields s").
		Join("fields f ON f.id = s.field_id").
		Where(squirrel.Eq{"s.id": resourceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetResource - build select query: %v", ErrBuildQuery, err)
	}

	var (
		resource    domain.Resource
		field       domain.Field
		cancelHours sql.NullInt64
	)

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&resource.ID,
		&resource.FieldID,
		&resource.Name,
		&resource.Price,
		&field.OwnerID,
		&field.Name,
		&field.OpenTime,
		&field.CloseTime,
		&field.SlotDurationMinutes,
		&cancelHours,
		&field.PriceDeposit,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetResource - scan resource: %v", ErrScanRow, err)
	}

	field.ID = resource.FieldID
	if cancelHours.Valid {
		hours := int(cancelHours.Int64)
		field.CancelHours = &hours
	}
	resource.Field = &field

	return &resource, nil
}

// LockResource блокирует строку подполя до конца транзакции.
// Все резервирования одного подполя проходят через эту блокировку, поэтому проверка пересечений
// работает и тогда, когда на подполе ещё нет ни одной брони.
func (r *Repository) LockResource(ctx context.Context, resourceID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From("sub_fields").
		Where(squirrel.Eq{"id": resourceID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: LockResource - build select query: %v", ErrBuildQuery, err)
	}

	var id int64
	err = executor.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResourceNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: LockResource - execute query: %v", ErrExecQuery, err)
	}

	return nil
}

// GetFacility получает инвентарь поля.
// Внутри транзакции строка блокируется (FOR UPDATE): так сериализуются проверки вместимости одного инвентаря.
func (r *Repository) GetFacility(ctx context.Context, fieldID, facilityID int64) (*domain.Facility, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("id", "field_id", "name", "quantity_total", "price").
		From("facilities").
		Where(squirrel.Eq{"id": facilityID}).
		Where(squirrel.Eq{"field_id": fieldID})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetFacility - build select query: %v", ErrBuildQuery, err)
	}

	var facility domain.Facility
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&facility.ID,
		&facility.FieldID,
		&facility.Name,
		&facility.QuantityTotal,
		&facility.Price,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFacilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetFacility - scan facility: %v", ErrScanRow, err)
	}

	return &facility, nil
}
