package compiler

import "github.com/syssam/nestql/sqlast"

// prune merges the ColumnDeps of every children list of the tree rooted at n.
func prune(n *sqlast.Node, ns *sqlast.Namespace) {
	n.Children = pruneList(n.Children, ns)
	for _, tc := range n.Typed {
		tc.Children = pruneList(tc.Children, ns)
	}
}

// pruneList keeps one ColumnDeps node per owning table, with deduplicated
// dependencies and fresh aliases, after the other children.
func pruneList(children []*sqlast.Node, ns *sqlast.Namespace) []*sqlast.Node {
	var (
		out    = make([]*sqlast.Node, 0, len(children))
		groups = map[string]*sqlast.Node{}
		seen   = map[string]map[string]struct{}{}
		order  []string
	)
	for _, child := range children {
		switch {
		case child.Kind == sqlast.KindColumnDeps:
			owner := child.FromOtherTable
			g, ok := groups[owner]
			if !ok {
				g = child
				deps := g.Deps
				g.Deps = nil
				child = &sqlast.Node{Deps: deps}
				groups[owner] = g
				seen[owner] = map[string]struct{}{}
				order = append(order, owner)
			}
			for _, dep := range child.Deps {
				if _, dup := seen[owner][dep.Name]; dup {
					continue
				}
				seen[owner][dep.Name] = struct{}{}
				g.Deps = append(g.Deps, sqlast.Dep{Name: dep.Name})
			}
			continue
		case child.IsTable():
			prune(child, ns)
		}
		out = append(out, child)
	}
	for _, owner := range order {
		g := groups[owner]
		for i := range g.Deps {
			g.Deps[i].As = ns.Column(g.Deps[i].Name)
		}
		out = append(out, g)
	}
	return out
}
