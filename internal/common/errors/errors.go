package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode классифицирует ошибки приложения
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeLimitReached ErrorCode = "LIMIT_REACHED"

	// Ошибки внешних API
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
	ErrCodeChessAPI    ErrorCode = "CHESS_API_ERROR"

	// Ошибки персистентности и целостности данных
	ErrCodeSnapshot  ErrorCode = "SNAPSHOT_ERROR"
	ErrCodeIntegrity ErrorCode = "DATA_INTEGRITY_FAULT"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode         `json:"code"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Cause     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// New создает новую ошибку приложения
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf оборачивает существующую ошибку с форматированием
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// HasCode проверяет, несет ли ошибка (или ее причина) данный код
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// NewUnauthorizedError создает ошибку авторизации
func NewUnauthorizedError(subscriberID string) *AppError {
	return New(ErrCodeUnauthorized, "subscriber is not authorized").
		WithContext("subscriber_id", subscriberID)
}

// NewChessAPIError создает ошибку chess.com API
func NewChessAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeChessAPI, fmt.Sprintf("chess.com API operation failed: %s", operation))
}

// NewTelegramAPIError создает ошибку Telegram API
func NewTelegramAPIError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeTelegramAPI, fmt.Sprintf("Telegram API operation failed: %s", operation))
}

// NewSnapshotError создает ошибку сохранения/загрузки снапшота
func NewSnapshotError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeSnapshot, fmt.Sprintf("snapshot operation failed: %s", operation))
}

// NewIntegrityError создает ошибку целостности данных
func NewIntegrityError(message string) *AppError {
	return New(ErrCodeIntegrity, message)
}
