package nestql

import (
	"errors"

	"github.com/syssam/nestql/internal/errs"
)

// Sentinel errors, one per failure class.
var (
	// ErrMapping is matched by every *MappingError.
	ErrMapping = errs.ErrMapping
	// ErrArgument is matched by every *ArgumentError and *CursorError.
	ErrArgument = errs.ErrArgument
	// ErrInvalidCursor is matched by every *CursorError.
	ErrInvalidCursor = errs.ErrInvalidCursor
	// ErrContract is matched by every *ContractError.
	ErrContract = errs.ErrContract
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errs.ErrUnsupported
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errs.ErrConfig
)

type (
	// MappingError reports invalid relational metadata on a type or field.
	MappingError = errs.MappingError
	// ArgumentError reports an invalid or contradictory field argument.
	ArgumentError = errs.ArgumentError
	// CursorError reports a malformed cursor or one not matching the sort key.
	CursorError = errs.CursorError
	// ContractError reports a fetch result of an unexpected shape.
	ContractError = errs.ContractError
	// UnsupportedError reports a capability the active dialect lacks.
	UnsupportedError = errs.UnsupportedError
	// ConfigError reports an invalid option value.
	ConfigError = errs.ConfigError
)

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *MappingError
	return errors.As(err, &e) || errors.Is(err, ErrMapping)
}

// IsArgumentError returns true if the error was caused by query arguments,
// cursors included.
func IsArgumentError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrArgument)
}

// IsCursorError returns true if the error is a CursorError.
func IsCursorError(err error) bool {
	if err == nil {
		return false
	}
	var e *CursorError
	return errors.As(err, &e)
}

// IsContractError returns true if the error is a ContractError.
func IsContractError(err error) bool {
	if err == nil {
		return false
	}
	var e *ContractError
	return errors.As(err, &e)
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}
