package schema

import "context"

// Args holds the resolved argument values of a field.
type Args map[string]any

// Thunk is a value supplied either directly or as a function of the field
// arguments and the request context.
type Thunk[T any] struct {
	value T
	fn    func(context.Context, Args) (T, error)
	set   bool
}

// Static returns a thunk holding v.
func Static[T any](v T) Thunk[T] {
	return Thunk[T]{value: v, set: true}
}

// Dynamic returns a thunk computed by fn at compile time.
func Dynamic[T any](fn func(context.Context, Args) (T, error)) Thunk[T] {
	return Thunk[T]{fn: fn, set: fn != nil}
}

// IsSet reports whether the thunk was declared.
func (t Thunk[T]) IsSet() bool {
	return t.set
}

// Resolve returns the thunk value. An unset thunk yields the zero value.
func (t Thunk[T]) Resolve(ctx context.Context, args Args) (T, error) {
	if t.fn != nil {
		return t.fn(ctx, args)
	}
	return t.value, nil
}
