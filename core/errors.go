package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a lookup by key matches zero rows (or more than one).
	ErrNotFound = errors.New("registro no encontrado")

	// ErrConfirmationRequired is returned when a destructive action was not confirmed.
	ErrConfirmationRequired = errors.New("se requiere confirmación para eliminar")

	// ErrNoSession is returned when an operation needs a signed-in operator.
	ErrNoSession = errors.New("no hay una sesión activa")
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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMap returns the field errors keyed by field name.
func (err ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		if _, ok := m[f.Field]; !ok { // first error wins
			m[f.Field] = f.Error
		}
	}
	return m
}

// SchemaMismatchError reports a remote row that does not fit the expected record shape.
type SchemaMismatchError struct {
	Table   string
	Unknown []string
	Missing []string
	Err     error
}

func (err *SchemaMismatchError) Error() string {
	var parts []string
	if len(err.Unknown) > 0 {
		parts = append(parts, "columnas desconocidas: "+strings.Join(err.Unknown, ", "))
	}
	if len(err.Missing) > 0 {
		parts = append(parts, "columnas faltantes: "+strings.Join(err.Missing, ", "))
	}
	if err.Err != nil {
		parts = append(parts, err.Err.Error())
	}
	return fmt.Sprintf("esquema inesperado en %q: %s", err.Table, strings.Join(parts, "; "))
}

func IsSchemaMismatch(err error) bool {
	_, ok := errors.Cause(err).(*SchemaMismatchError)
	return ok
}

// RemoteError carries a failure reported by the remote data service, message verbatim.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (err *RemoteError) Error() string {
	return err.Message
}

func IsRemote(err error) bool {
	_, ok := errors.Cause(err).(*RemoteError)
	return ok
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
