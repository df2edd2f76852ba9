package dialect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/syssam/nestql/sqlast"
)

// Dialect names.
const (
	Postgres = "pg"
	Oracle   = "oracle"
	MariaDB  = "mariadb"
	MySQL    = "mysql"
	MySQL8   = "mysql8"
	SQLite   = "sqlite3"

	// Standard is the deprecated name of SQLite.
	Standard = "standard"
)

// Dialect is the capability set of one SQL engine.
type Dialect interface {
	Name() string
	// Quote quotes an identifier.
	Quote(ident string) string
	// CompositeKey concatenates columns of a table alias into one identity
	// expression.
	CompositeKey(table string, columns []string) string
	// Literal renders a value as a SQL literal.
	Literal(v any) string
	// MaxLimit is the LIMIT used when a page has no size.
	MaxLimit() string
	// RowComparison reports whether the engine compares row values natively,
	// as in (a, b) > (1, 2).
	RowComparison() bool
	// Lateral joins a correlated single-row table expression.
	Lateral(table, as string) string
	Paginator
}

// Paginator builds the FROM/JOIN fragments of paginated or limited tables.
// Every builder returns the fragments to append to the table list.
type Paginator interface {
	PaginateRoot(ctx context.Context, p *Page) ([]string, error)
	JoinedOneToMany(ctx context.Context, p *Page) ([]string, error)
	JoinedManyToMany(ctx context.Context, p *Page) ([]string, error)
	BatchedOneToMany(ctx context.Context, p *Page) ([]string, error)
	BatchedManyToMany(ctx context.Context, p *Page) ([]string, error)
}

// Page is the input of a pagination builder.
type Page struct {
	Parent *sqlast.Node
	Node   *sqlast.Node
	// Scope holds the batch parent-key values of a batched query.
	Scope []any
	// Join is the resolved predicate linking the node table: the node join
	// for one-to-many, the junction-to-node join for many-to-many.
	Join string
	// JunctionJoin is the resolved parent-to-junction predicate of a joined
	// many-to-many relation.
	JunctionJoin string
}

var (
	mu       sync.RWMutex
	registry = map[string]Dialect{}
)

func init() {
	for _, d := range []Dialect{NewPostgres(), NewOracle(), NewMariaDB(), NewMySQL8(), NewMySQL(), NewSQLite()} {
		registry[d.Name()] = d
	}
}

// Register adds a dialect to the registry, replacing any with the same name.
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Name()] = d
}

// Lookup returns the dialect registered under name. An empty name selects
// SQLite.
func Lookup(name string) (Dialect, error) {
	switch name {
	case "":
		name = SQLite
	case Standard:
		slog.Warn("nestql: dialect \"standard\" is deprecated, use \"sqlite3\"")
		name = SQLite
	}
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("nestql: unknown dialect %q (known: %v)", name, names())
	}
	return d, nil
}

func names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
