package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeNetwork      Code = "NETWORK_ERROR"
	CodeServer       Code = "SERVER_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// NetworkErrorMessage is the fixed message carried by every status-0 error.
const NetworkErrorMessage = "network error: no response received"

type Metadata struct {
	DefaultStatus int
	Retryable     bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {DefaultStatus: http.StatusBadRequest, Retryable: false},
	CodeUnauthorized: {DefaultStatus: http.StatusUnauthorized, Retryable: false},
	CodeForbidden:    {DefaultStatus: http.StatusForbidden, Retryable: false},
	CodeNotFound:     {DefaultStatus: http.StatusNotFound, Retryable: false},
	CodeConflict:     {DefaultStatus: http.StatusConflict, Retryable: false},
	CodeNetwork:      {DefaultStatus: 0, Retryable: true},
	CodeServer:       {DefaultStatus: http.StatusInternalServerError, Retryable: false},
	CodeInternal:     {DefaultStatus: http.StatusInternalServerError, Retryable: false},
	CodeDependency:   {DefaultStatus: http.StatusServiceUnavailable, Retryable: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the uniform failure shape surfaced to every caller: a stable code,
// a human-readable message, the originating HTTP status (0 when no response
// was received), and whatever structured payload the server attached.
type Error struct {
	code    Code
	message string
	status  int
	data    any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message, status: MetadataFor(code).DefaultStatus}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	e := New(code, message)
	e.cause = err
	return e
}

// NewNetwork reports a request that produced no response at all.
func NewNetwork(err error) *Error {
	e := Wrap(CodeNetwork, err, NetworkErrorMessage)
	e.status = 0
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Status returns the HTTP status the error was observed with.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

func (e *Error) Data() any {
	if e == nil {
		return nil
	}
	return e.data
}

func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.status = status
	return e
}

func (e *Error) WithData(data any) *Error {
	if e == nil {
		return nil
	}
	e.data = data
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsValidation reports whether err is a local validation failure that never
// reached the network layer.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool {
	return hasCode(err, CodeNetwork)
}

func hasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
