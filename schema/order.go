package schema

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sort directions.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

var upper = cases.Upper(language.Und)

// OrderTerm orders by one column.
type OrderTerm struct {
	Column    string
	Direction string
}

// OrderBy is an ordered list of order terms.
type OrderBy []OrderTerm

// OrderAsc is shorthand for ascending terms on the given columns.
func OrderAsc(columns ...string) OrderBy {
	o := make(OrderBy, len(columns))
	for i, c := range columns {
		o[i] = OrderTerm{Column: c, Direction: Asc}
	}
	return o
}

// Normalize validates every direction and returns a copy with upper-cased
// directions. An empty direction means ascending.
func (o OrderBy) Normalize() (OrderBy, error) {
	out := make(OrderBy, len(o))
	for i, t := range o {
		dir, err := ParseDirection(t.Direction)
		if err != nil {
			return nil, err
		}
		out[i] = OrderTerm{Column: t.Column, Direction: dir}
	}
	return out, nil
}

// SortKey is the keyset pagination key: one or more columns sorted in a
// single direction.
type SortKey struct {
	Order string
	Key   []string
}

// Descending reports whether the key sorts in descending order.
func (s *SortKey) Descending() bool {
	return upper.String(s.Order) == Desc
}

// ParseDirection case-folds a sort direction.
func ParseDirection(s string) (string, error) {
	if s == "" {
		return Asc, nil
	}
	switch d := upper.String(s); d {
	case Asc, Desc:
		return d, nil
	default:
		return "", fmt.Errorf("%q is not a valid sorting direction", s)
	}
}
