package nestql_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/nestql"
)

func TestMappingError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &nestql.MappingError{Type: "User", Field: "posts", Message: "missing linkage"}
		assert.Equal(t, "nestql: mapping error on type User field posts: missing linkage", err.Error())

		err = &nestql.MappingError{Message: "root level field can not have sqlJoin"}
		assert.Equal(t, "nestql: mapping error: root level field can not have sqlJoin", err.Error())
	})

	t.Run("IsMappingError", func(t *testing.T) {
		err := fmt.Errorf("compile: %w", &nestql.MappingError{Type: "User"})
		assert.True(t, nestql.IsMappingError(err))
		assert.True(t, errors.Is(err, nestql.ErrMapping))
		assert.False(t, nestql.IsMappingError(errors.New("other")))
		assert.False(t, nestql.IsMappingError(nil))
	})
}

func TestArgumentError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &nestql.ArgumentError{Field: "users", Message: "first must be positive"}
		assert.Equal(t, `nestql: argument error on field "users": first must be positive`, err.Error())

		err = &nestql.ArgumentError{Message: "bad", Cause: errors.New("boom")}
		assert.Equal(t, "nestql: argument error: bad: boom", err.Error())
	})

	t.Run("IsArgumentError", func(t *testing.T) {
		err := fmt.Errorf("wrap: %w", &nestql.ArgumentError{Field: "users"})
		assert.True(t, nestql.IsArgumentError(err))
		assert.False(t, nestql.IsCursorError(err))
		assert.False(t, nestql.IsArgumentError(nil))
	})
}

func TestCursorError(t *testing.T) {
	cause := errors.New("illegal base64 data")
	err := &nestql.CursorError{Cursor: "!!", Message: "invalid cursor", Cause: cause}
	assert.Equal(t, "nestql: invalid cursor: illegal base64 data", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, nestql.ErrInvalidCursor)
	assert.True(t, nestql.IsCursorError(err))
	assert.True(t, nestql.IsArgumentError(err), "cursor errors are argument errors")
}

func TestContractError(t *testing.T) {
	err := &nestql.ContractError{Got: 42}
	assert.Contains(t, err.Error(), "got int")
	assert.ErrorIs(t, err, nestql.ErrContract)
	assert.True(t, nestql.IsContractError(fmt.Errorf("fetch: %w", err)))
	assert.False(t, nestql.IsContractError(nil))
}

func TestUnsupportedError(t *testing.T) {
	err := &nestql.UnsupportedError{Dialect: "mysql"}
	assert.Equal(t, "nestql: mysql: This type of pagination not supported on this dialect", err.Error())
	err = &nestql.UnsupportedError{Dialect: "mysql", Feature: "LATERAL"}
	assert.Equal(t, "nestql: mysql: LATERAL not supported on this dialect", err.Error())
	assert.True(t, nestql.IsUnsupported(err))
	assert.ErrorIs(t, err, nestql.ErrUnsupported)
	assert.False(t, nestql.IsUnsupported(nil))
}

func TestConfigError(t *testing.T) {
	err := &nestql.ConfigError{Option: "Concurrency", Value: -1, Message: "concurrency cannot be negative"}
	assert.Equal(t, `nestql: config error for "Concurrency" (value: -1): concurrency cannot be negative`, err.Error())
	err = &nestql.ConfigError{Option: "Logger", Message: "logger cannot be nil"}
	assert.Equal(t, `nestql: config error for "Logger": logger cannot be nil`, err.Error())
	assert.True(t, nestql.IsConfigError(err))
	assert.ErrorIs(t, err, nestql.ErrConfig)
	assert.False(t, nestql.IsConfigError(nil))
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		nestql.ErrMapping,
		nestql.ErrArgument,
		nestql.ErrInvalidCursor,
		nestql.ErrContract,
		nestql.ErrUnsupported,
		nestql.ErrConfig,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
