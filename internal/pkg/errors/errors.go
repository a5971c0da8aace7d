package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap отдает исходную ошибку для errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы errors.Is(err, ErrInput) работал для любых InputError
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// Wrap создает копию ошибки-шаблона с конкретной причиной и сообщением
func Wrap(kind *AppError, err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:       kind.Code,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: kind.StatusCode,
		Details:    make(map[string]interface{}),
		Err:        err,
	}
}

// Newf создает ошибку заданного вида без причины
func Newf(kind *AppError, format string, args ...interface{}) *AppError {
	return Wrap(kind, nil, format, args...)
}

// CodeOf возвращает код AppError из цепочки или пустую строку
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsFatal сообщает, должна ли ошибка остановить запуск целиком
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeInput, CodeIO:
		return true
	default:
		return false
	}
}
