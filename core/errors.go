package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StoreError reports a failure of the relational store: missing table, constraint violation, connection failure.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(err error, op string) error {
	return &StoreError{Op: op, Err: err}
}

func (err *StoreError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *StoreError) Unwrap() error { return err.Err }

// LookupError reports a missing reference: a student not in the roster, a slot not in the timetable...
type LookupError struct {
	Kind string
	Key  string
}

func NewLookupError(kind string, key interface{}) error {
	return &LookupError{Kind: kind, Key: fmt.Sprint(key)}
}

func (err *LookupError) Error() string {
	return fmt.Sprintf("%s not found: %s", err.Kind, err.Key)
}

// IOError reports a file that could not be read or written.
type IOError struct {
	Path string
	Err  error
}

func NewIOError(err error, path string) error {
	return &IOError{Path: path, Err: err}
}

func (err *IOError) Error() string {
	return err.Path + ": " + err.Err.Error()
}

func (err *IOError) Unwrap() error { return err.Err }

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

func IsIOError(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
