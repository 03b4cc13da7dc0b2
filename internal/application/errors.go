package application

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrNotFound           = errors.New("not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUnreachable        = errors.New("backend unreachable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrSyncFailed         = errors.New("sync failed")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrInvalidOperation   = errors.New("invalid operation")
)

// ErrorKind classifies failures reported by the backend gateway
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindServiceUnavailable
	KindValidation
	KindSyncFailed
	KindNetwork // the request never got an answer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindValidation:
		return "validation"
	case KindSyncFailed:
		return "sync_failed"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// GatewayError is a failed backend call
type GatewayError struct {
	Op      string // e.g. "list files"
	Kind    ErrorKind
	Status  int // transport status code when known
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	case ErrInvalidInput:
		return e.Kind == KindValidation
	case ErrSyncFailed:
		return e.Kind == KindSyncFailed
	case ErrUnreachable:
		return e.Kind == KindNetwork
	}
	return false
}

// KindOf returns the gateway error kind of err
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrInvalidInput):
		return KindValidation
	case errors.Is(err, ErrSyncFailed):
		return KindSyncFailed
	case errors.Is(err, ErrUnreachable):
		return KindNetwork
	}
	return KindUnknown
}

// UserMessage renders err for the error banner
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}

	var detail string
	var gwErr *GatewayError
	var valErr *ValidationError
	switch {
	case errors.As(err, &valErr):
		return valErr.Message
	case errors.As(err, &gwErr):
		detail = gwErr.Error()
	default:
		detail = err.Error()
	}

	switch KindOf(err) {
	case KindNotFound:
		return "Not found (try refreshing): " + detail
	case KindServiceUnavailable:
		return "Vector service unavailable: " + detail
	case KindValidation:
		return "Invalid input: " + detail
	case KindSyncFailed:
		return "Sync failed: " + detail
	case KindNetwork:
		return "Cannot reach backend: " + detail
	}
	if errors.Is(err, ErrSyncInProgress) {
		return "A sync is already running for this collection"
	}
	return detail
}
