package field

import "errors"

var (
	// ErrResourceNotFound возвращается, когда подполе не найдено
	ErrResourceNotFound = errors.New("field.repository: resource not found")

	// ErrFacilityNotFound возвращается, когда инвентарь не найден у поля
	ErrFacilityNotFound = errors.New("field.repository: facility not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("field.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("field.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("field.repository: failed to scan row")
)
