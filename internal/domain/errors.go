package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the categorical label every VAAC failure carries.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NotFound"
	KindForbiddenTransition ErrorKind = "ForbiddenTransition"
	KindUnauthorizedActor   ErrorKind = "UnauthorizedActor"
	KindInvalidCriterion    ErrorKind = "InvalidCriterion"
	KindNoCatalog           ErrorKind = "NoCatalog"
	KindMissingAssessment   ErrorKind = "MissingAssessment"
	KindSlotExhausted       ErrorKind = "SlotExhausted"
	KindAllocationMissing   ErrorKind = "AllocationMissing"
	KindConcurrentRewrite   ErrorKind = "ConcurrentRewrite"
	KindBadTransition       ErrorKind = "BadTransition"
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindConflict            ErrorKind = "Conflict"
)

// Error is a kind plus optional detail text and cause.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbiddenTransition = &Error{Kind: KindForbiddenTransition}
	ErrUnauthorizedActor   = &Error{Kind: KindUnauthorizedActor}
	ErrInvalidCriterion    = &Error{Kind: KindInvalidCriterion}
	ErrNoCatalog           = &Error{Kind: KindNoCatalog}
	ErrMissingAssessment   = &Error{Kind: KindMissingAssessment}
	ErrSlotExhausted       = &Error{Kind: KindSlotExhausted}
	ErrAllocationMissing   = &Error{Kind: KindAllocationMissing}
	ErrConcurrentRewrite   = &Error{Kind: KindConcurrentRewrite}
	ErrBadTransition       = &Error{Kind: KindBadTransition}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrConflict            = &Error{Kind: KindConflict}
)

// Errorf builds an *Error of kind with formatted detail.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// NotFoundf is shorthand for Errorf(KindNotFound, ...).
func NotFoundf(format string, args ...any) *Error {
	return Errorf(KindNotFound, format, args...)
}

// KindOf returns the kind carried by err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
