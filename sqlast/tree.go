package sqlast

// Tree owns every node of one compilation. Nodes refer to their parent by
// NodeID so the tree holds no parent pointers.
type Tree struct {
	Root  *Node
	nodes []*Node
	ns    *Namespace
}

// NewTree returns an empty tree with its own alias namespace.
func NewTree(minify bool) *Tree {
	return &Tree{ns: NewNamespace(minify)}
}

// Namespace returns the alias namespace of the compilation.
func (t *Tree) Namespace() *Namespace {
	return t.ns
}

// New allocates a node of the given kind under parent. A nil parent makes the
// node the root.
func (t *Tree) New(kind Kind, parent *Node) *Node {
	n := &Node{ID: NodeID(len(t.nodes)), Parent: NoParent, Kind: kind}
	if parent != nil {
		n.Parent = parent.ID
	}
	t.nodes = append(t.nodes, n)
	if parent == nil && t.Root == nil {
		t.Root = n
	}
	return n
}

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// ParentOf returns the parent of n, or nil for the root.
func (t *Tree) ParentOf(n *Node) *Node {
	return t.Node(n.Parent)
}

// Len returns the number of allocated nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}
