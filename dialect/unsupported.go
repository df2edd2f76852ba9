package dialect

import (
	"context"

	"github.com/syssam/nestql/internal/errs"
)

// PaginationUnsupported implements Paginator by failing every builder. Embed
// it in dialects that cannot page some or all relation shapes.
type PaginationUnsupported struct {
	DialectName string
}

func (u PaginationUnsupported) fail() ([]string, error) {
	return nil, &errs.UnsupportedError{Dialect: u.DialectName}
}

// PaginateRoot fails with an *errs.UnsupportedError.
func (u PaginationUnsupported) PaginateRoot(context.Context, *Page) ([]string, error) {
	return u.fail()
}

// JoinedOneToMany fails with an *errs.UnsupportedError.
func (u PaginationUnsupported) JoinedOneToMany(context.Context, *Page) ([]string, error) {
	return u.fail()
}

// JoinedManyToMany fails with an *errs.UnsupportedError.
func (u PaginationUnsupported) JoinedManyToMany(context.Context, *Page) ([]string, error) {
	return u.fail()
}

// BatchedOneToMany fails with an *errs.UnsupportedError.
func (u PaginationUnsupported) BatchedOneToMany(context.Context, *Page) ([]string, error) {
	return u.fail()
}

// BatchedManyToMany fails with an *errs.UnsupportedError.
func (u PaginationUnsupported) BatchedManyToMany(context.Context, *Page) ([]string, error) {
	return u.fail()
}
