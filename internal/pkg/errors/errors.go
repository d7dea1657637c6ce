package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены (или принадлежат другому домену).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации и несовпадения владельца.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (попытка уже завершена, членство уже активно и т.п.).
	ErrConflict = errors.New("resource state conflict")

	// ErrPrecondition - не выполнено предусловие: не настроен платёжный шлюз, не указана причина вступления.
	ErrPrecondition = errors.New("precondition failed")

	// ErrGateway - ошибка внешнего платёжного шлюза.
	ErrGateway = errors.New("payment gateway error")
)
