// Package errs holds the error taxonomy shared by every nestql package.
// The root package re-exports these types; import that instead.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the four failure classes.
var (
	// ErrMapping indicates a problem in the relational mapping metadata.
	ErrMapping = errors.New("nestql: invalid mapping")
	// ErrArgument indicates an invalid query argument.
	ErrArgument = errors.New("nestql: invalid argument")
	// ErrInvalidCursor indicates a malformed or mismatched pagination cursor.
	ErrInvalidCursor = errors.New("nestql: invalid cursor")
	// ErrContract indicates a row-fetch result of an unexpected shape.
	ErrContract = errors.New("nestql: fetch contract violated")
	// ErrUnsupported indicates a capability the active dialect lacks.
	ErrUnsupported = errors.New("nestql: unsupported by dialect")
	// ErrConfig indicates an invalid option value.
	ErrConfig = errors.New("nestql: invalid configuration")
)

// MappingError is a programmer error in the mapping metadata of a type or field.
type MappingError struct {
	Type    string // GraphQL type name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("nestql: mapping error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// NewMappingError creates a new MappingError.
func NewMappingError(typeName, fieldName, message string) *MappingError {
	return &MappingError{Type: typeName, Field: fieldName, Message: message}
}

// Mappingf creates a MappingError with a formatted message.
func Mappingf(typeName, fieldName, format string, args ...any) *MappingError {
	return NewMappingError(typeName, fieldName, fmt.Sprintf(format, args...))
}

// ArgumentError is raised for invalid or contradictory query arguments.
type ArgumentError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("nestql: argument error on field %q: %s", e.Field, msg)
	}
	return "nestql: argument error: " + msg
}

// Unwrap returns the underlying error.
func (e *ArgumentError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgument
}

// NewArgumentError creates a new ArgumentError.
func NewArgumentError(field, message string) *ArgumentError {
	return &ArgumentError{Field: field, Message: message}
}

// CursorError reports a cursor that cannot be decoded or does not match the sort key.
type CursorError struct {
	Cursor  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CursorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nestql: %s: %v", e.Message, e.Cause)
	}
	return "nestql: " + e.Message
}

// Unwrap returns the underlying error.
func (e *CursorError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target is ErrInvalidCursor or ErrArgument.
func (e *CursorError) Is(target error) bool {
	return target == ErrInvalidCursor || target == ErrArgument
}

// NewCursorError creates a new CursorError.
func NewCursorError(cursor, message string, cause error) *CursorError {
	return &CursorError{Cursor: cursor, Message: message, Cause: cause}
}

// ContractError reports a row-fetch result that is neither a row list nor an
// object holding one.
type ContractError struct {
	Got any
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("nestql: fetch must return a list of rows or an object with a \"rows\" list, got %T", e.Got)
}

// Is reports whether the target matches ErrContract.
func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

// UnsupportedError is returned when a dialect lacks a capability.
type UnsupportedError struct {
	Dialect string
	Feature string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("nestql: %s: This type of pagination not supported on this dialect", e.Dialect)
	}
	return fmt.Sprintf("nestql: %s: %s not supported on this dialect", e.Dialect, e.Feature)
}

// Is reports whether the target matches ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// ConfigError represents an invalid option value.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("nestql: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("nestql: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}
