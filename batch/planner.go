// Package batch loads the batch-loaded relations of a hydrated result, one
// query per relation and tree level.
//
// The planner walks the SQL-AST level by level. At each level every
// batch-loaded relation becomes a task scoped to the parent keys found in the
// data of the level above. Tasks of one level run concurrently; their results
// are attached to the parents in a single goroutine before the next level
// starts.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/hydrate"
	"github.com/syssam/nestql/postprocess"
	"github.com/syssam/nestql/shape"
	"github.com/syssam/nestql/sqlast"
	"github.com/syssam/nestql/sqlgen"
)

// FetchFunc runs one query and returns its rows.
type FetchFunc func(ctx context.Context, query string) ([]hydrate.Row, error)

// Hydrator nests the rows of one query.
type Hydrator func(rows []hydrate.Row, def *shape.Definition) (any, error)

// UnmatchedPolicy decides what happens to a parent whose required to-one
// batch relation has no matching row.
type UnmatchedPolicy uint8

const (
	// UnmatchedNull attaches null.
	UnmatchedNull UnmatchedPolicy = iota
	// UnmatchedDropRoot removes the root object owning the parent from the
	// result. Below the root it behaves like UnmatchedNull.
	UnmatchedDropRoot
)

// String returns the policy name.
func (p UnmatchedPolicy) String() string {
	switch p {
	case UnmatchedNull:
		return "null"
	case UnmatchedDropRoot:
		return "drop-root"
	default:
		return fmt.Sprintf("UnmatchedPolicy(%d)", p)
	}
}

// Planner resolves batch-loaded relations.
type Planner struct {
	Dialect dialect.Dialect
	Fetch   FetchFunc
	// Hydrate defaults to hydrate.Nest.
	Hydrate Hydrator
	// Concurrency bounds the queries in flight at one level; zero or less
	// means unbounded.
	Concurrency int
	Unmatched   UnmatchedPolicy
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// item is a table node together with the objects it hydrated.
type item struct {
	node    *sqlast.Node
	objects []map[string]any
}

// task is one batched query: a relation and the parents it is loaded for.
type task struct {
	node    *sqlast.Node
	parents []map[string]any
	root    bool
	// values maps a parent key to the value attached to matching parents.
	values map[any]any
}

// Run loads every batch-loaded relation below root into data, which must be
// the hydrated and post-processed result of the root query. It returns data,
// minus the root objects dropped by UnmatchedDropRoot.
func (p *Planner) Run(ctx context.Context, root *sqlast.Node, data any) (any, error) {
	if p.Dialect == nil || p.Fetch == nil {
		return nil, errors.New("nestql: batch planner needs a dialect and a fetch function")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dropped := make(map[uintptr]struct{})
	level := []item{{node: root, objects: postprocess.Objects(data)}}
	for depth := 1; ; depth++ {
		tasks := p.expand(level, depth == 1)
		if len(tasks) == 0 {
			break
		}
		g, gctx := errgroup.WithContext(ctx)
		if p.Concurrency > 0 {
			g.SetLimit(p.Concurrency)
		}
		for _, t := range tasks {
			g.Go(func() error {
				return p.run(gctx, logger, t, depth)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		level = level[:0]
		for _, t := range tasks {
			level = append(level, item{node: t.node, objects: p.attach(t, dropped)})
		}
	}
	if len(dropped) > 0 {
		data = drop(data, dropped)
	}
	return data, nil
}

// expand turns the batch-loaded children reachable from level without
// crossing another batch boundary into tasks.
func (p *Planner) expand(level []item, root bool) []*task {
	var tasks []*task
	queue := append([]item(nil), level...)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if len(it.objects) == 0 {
			continue
		}
		for _, child := range it.node.AllChildren() {
			if !child.IsTable() {
				continue
			}
			parents := it.objects
			if child.DeferredFrom != "" {
				parents = postprocess.OfType(it.node, parents, child.DeferredFrom)
				if len(parents) == 0 {
					continue
				}
			}
			if child.IsBatched() {
				tasks = append(tasks, &task{node: child, parents: parents, root: root && it.node.Parent == sqlast.NoParent})
				continue
			}
			var objects []map[string]any
			for _, obj := range parents {
				objects = append(objects, postprocess.Objects(obj[child.FieldName])...)
			}
			queue = append(queue, item{node: child, objects: objects})
		}
	}
	return tasks
}

// run computes the attached values of t. It touches nothing but t.
func (p *Planner) run(ctx context.Context, logger *slog.Logger, t *task, depth int) error {
	keys := t.node.BatchKeys()
	scope := Scope(t.parents, keys.ParentKey.FieldName)
	if len(scope) == 0 {
		return nil
	}
	query, err := sqlgen.Stringify(ctx, t.node, p.Dialect, scope)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "nestql: query", "sql", query, "depth", depth, "field", t.node.FieldName)
	rows, err := p.Fetch(ctx, query)
	if err != nil {
		return err
	}
	hydrator := p.Hydrate
	if hydrator == nil {
		hydrator = hydrate.Nest
	}
	data, err := hydrator(rows, shape.Compile(t.node).AsMany())
	if err != nil {
		return fmt.Errorf("hydrate %s: %w", t.node.FieldName, err)
	}
	postprocess.ResolveUnions(t.node, data)

	list, _ := data.([]any)
	groups := GroupByKey(list, func(v any) any {
		obj, _ := v.(map[string]any)
		return hydrate.Key(obj[keys.ThisKey.FieldName])
	})
	t.values = make(map[any]any, len(groups))
	for k, group := range groups {
		switch {
		case t.node.Paginate:
			conn, err := postprocess.ToConnection(t.node, group)
			if err != nil {
				return err
			}
			t.values[k] = conn
		case t.node.GrabMany:
			if _, err := postprocess.ToConnection(t.node, group); err != nil {
				return err
			}
			t.values[k] = group
		default:
			if _, err := postprocess.ToConnection(t.node, group[:1]); err != nil {
				return err
			}
			t.values[k] = group[0]
		}
	}
	return nil
}

// attach stores the values of t on its parents and returns the attached
// objects.
func (p *Planner) attach(t *task, dropped map[uintptr]struct{}) []map[string]any {
	n := t.node
	keys := n.BatchKeys()
	var next []map[string]any
	for _, obj := range t.parents {
		var v any
		if k := obj[keys.ParentKey.FieldName]; k != nil {
			v = t.values[hydrate.Key(k)]
		}
		switch {
		case v != nil:
			next = append(next, postprocess.Objects(v)...)
		case n.Paginate:
			v = postprocess.EmptyConnection(n)
		case n.GrabMany:
			v = []any{}
		case n.Required && t.root && p.Unmatched == UnmatchedDropRoot:
			dropped[reflect.ValueOf(obj).Pointer()] = struct{}{}
		}
		obj[n.OutputKey()] = v
		postprocess.Fold(obj, n)
	}
	return next
}

// drop removes the dropped root objects from data.
func drop(data any, dropped map[uintptr]struct{}) any {
	kept := func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return true
		}
		_, gone := dropped[reflect.ValueOf(obj).Pointer()]
		return !gone
	}
	switch d := data.(type) {
	case []any:
		out := make([]any, 0, len(d))
		for _, v := range d {
			if kept(v) {
				out = append(out, v)
			}
		}
		return out
	case map[string]any:
		edges, ok := d["edges"].([]any)
		if !ok {
			if !kept(d) {
				return nil
			}
			return d
		}
		out := make([]any, 0, len(edges))
		for _, e := range edges {
			edge, _ := e.(map[string]any)
			if kept(edge["node"]) {
				out = append(out, e)
			}
		}
		d["edges"] = out
		return d
	}
	return data
}
