package sqlast

import (
	"strings"
	"unicode"
)

// symbols is the alphabet of minified aliases.
const symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ#$"

// Namespace generates the SQL aliases of one compilation.
//
// In verbose mode a table alias is the sanitized table name, suffixed with
// "$" until unused, and a column alias is the column name itself. In minified
// mode every table receives a fresh symbol and every distinct column name one
// memoized symbol.
type Namespace struct {
	minify  bool
	used    map[string]struct{}
	columns map[string]string
	counter int
}

// NewNamespace returns an empty namespace.
func NewNamespace(minify bool) *Namespace {
	return &Namespace{
		minify:  minify,
		used:    make(map[string]struct{}),
		columns: make(map[string]string),
	}
}

// Minified reports whether aliases are minified.
func (ns *Namespace) Minified() bool {
	return ns.minify
}

// Column returns the alias of a column.
func (ns *Namespace) Column(name string) string {
	if !ns.minify {
		return name
	}
	if as, ok := ns.columns[name]; ok {
		return as
	}
	as := ns.next()
	ns.columns[name] = as
	return as
}

// Table returns a fresh alias for a table.
func (ns *Namespace) Table(name string) string {
	if ns.minify {
		return ns.next()
	}
	as := sanitize(name)
	for {
		if _, ok := ns.used[as]; !ok {
			break
		}
		as += "$"
	}
	ns.used[as] = struct{}{}
	return as
}

// next yields symbols in order of length, then lexically: a, b, ..., $, aa, ab, ...
func (ns *Namespace) next() string {
	n := ns.counter
	ns.counter++
	base := len(symbols)
	width, span := 1, base
	for n >= span {
		n -= span
		width++
		span *= base
	}
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = symbols[n%base]
		n /= base
	}
	return string(buf)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
