package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind класс ошибки ядра.
type ErrorKind string

const (
	KindConnection         ErrorKind = "connection_error"
	KindInitialization     ErrorKind = "initialization_error"
	KindSymbolNotFound     ErrorKind = "symbol_not_found"
	KindNotFound           ErrorKind = "not_found"
	KindInvalidOrderKind   ErrorKind = "invalid_order_kind"
	KindInvalidStops       ErrorKind = "invalid_stops"
	KindValidation         ErrorKind = "validation_error"
	KindWrongOrderCategory ErrorKind = "wrong_order_category"
	KindTradeExecution     ErrorKind = "trade_execution_error"
	KindCancelFailed       ErrorKind = "cancel_failed"
	KindModifyFailed       ErrorKind = "modify_failed"
	KindUnknown            ErrorKind = "unknown_error"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindForbidden          ErrorKind = "forbidden"
	KindInternal           ErrorKind = "internal_error"
)

// HTTPStatus статус, с которым вид ошибки уходит наружу.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindConnection, KindInitialization, KindInternal:
		return http.StatusInternalServerError
	case KindSymbolNotFound, KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Error единый тип ошибки ядра. Retcode заполнен, если ответ пришёл от брокера.
type Error struct {
	Kind      ErrorKind
	Message   string
	Retcode   int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по Kind: errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf достаёт вид ошибки; всё незнакомое считается internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError *Error из цепочки err, иначе обёртка вида internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(KindInternal, "internal error", err)
}
