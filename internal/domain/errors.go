package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhaseMix    = errors.New("invalid phase mix")
	ErrInvalidSeason      = errors.New("invalid season length")
	ErrInvalidWindow      = errors.New("invalid refresh window")
	ErrWeekNotInPlan      = errors.New("week is not part of the plan")
	ErrInvalidTournament  = errors.New("invalid tournament")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlanNotFound       = errors.New("annual plan not found")
	ErrTemplateNotFound   = errors.New("no matching session template")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Storage rejections that fail the same way on every attempt.
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidRecord = errors.New("invalid record")
)

// ConfigurationError is fatal and raised before anything is written.
type ConfigurationError struct {
	Err    error // one of the ErrInvalid* sentinels
	Detail string
}

func NewConfigurationError(err error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NotFoundError reports a missing athlete or plan.
type NotFoundError struct {
	Err error
	ID  string
}

func NewNotFoundError(err error, id string) *NotFoundError {
	return &NotFoundError{Err: err, ID: id}
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.ID) }

func (e *NotFoundError) Unwrap() error { return e.Err }

// TemplateResolutionMiss means no template matched. The scheduler records it
// and skips the day.
type TemplateResolutionMiss struct {
	TenantID    string
	SessionType SessionType
	Tier        string
}

func (e *TemplateResolutionMiss) Error() string {
	return fmt.Sprintf("%v: tenant=%s type=%s tier=%s", ErrTemplateNotFound, e.TenantID, e.SessionType, e.Tier)
}

func (e *TemplateResolutionMiss) Unwrap() error { return ErrTemplateNotFound }

// PersistenceError wraps a storage failure. The scheduler retries these
// unless the store rejected the write itself.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a persistence failure worth retrying.
// Duplicate keys and invalid records are permanent.
func IsRetryable(err error) bool {
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		return false
	}
	return !errors.Is(err, ErrDuplicateKey) && !errors.Is(err, ErrInvalidRecord)
}
