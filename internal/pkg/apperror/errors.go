package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeStoreUnavailable  ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeAlertDispatch     ErrorCode = "ALERT_DISPATCH_WARNING"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields перечисляет отсутствующие или некорректные поля для VALIDATION_ERROR.
	Fields []string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation создаёт VALIDATION_ERROR со списком полей.
// Сообщение содержит поля, чтобы его можно было показать пользователю как есть.
func Validation(message string, fields ...string) *AppError {
	e := New(ErrCodeValidation, message)
	if len(fields) > 0 {
		e.Fields = append([]string(nil), fields...)
		e.Message = fmt.Sprintf("%s: %s", message, strings.Join(fields, ", "))
	}
	return e
}

// StoreUnavailable оборачивает ошибку транспорта до хранилища.
func StoreUnavailable(err error, message string) *AppError {
	return Wrap(err, ErrCodeStoreUnavailable, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrCodeInvalidTransition)
}

func IsStoreUnavailable(err error) bool {
	return hasCode(err, ErrCodeStoreUnavailable)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// HTTPStatus возвращает HTTP статус для ошибки, 500 для неизвестных.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

var (
	ErrReportNotFound = New(ErrCodeNotFound, "отчёт не найден")
	ErrAlertNotFound  = New(ErrCodeNotFound, "оповещение не найдено")
	ErrAlertExists    = New(ErrCodeConflict, "оповещение для отчёта уже создано")
	ErrDuplicateID    = New(ErrCodeConflict, "идентификатор уже занят")

	ErrReportStatusChanged = New(ErrCodeInvalidTransition, "статус отчёта уже изменён другим запросом")
	ErrAlertStatusChanged  = New(ErrCodeInvalidTransition, "статус оповещения уже изменён другим запросом")
)
