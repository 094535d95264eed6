// Package apperr описывает таксономию ошибок клиента: хранилище, удаленный сервис, валидация.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// StorageError - локальное хранилище недоступно или нарушено ограничение.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage оборачивает err в StorageError. nil остается nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// RemoteError - ответ не 2xx или ошибка транспорта.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("remote: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote: %s: status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Retryable: 5xx, 429 и транспортные ошибки (StatusCode == 0).
func (e *RemoteError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsRemote(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRetryable сообщает, стоит ли повторять вызов удаленного сервиса.
func IsRetryable(err error) bool {
	var target *RemoteError
	if errors.As(err, &target) {
		return target.Retryable()
	}
	return false
}
