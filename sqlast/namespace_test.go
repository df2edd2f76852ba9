package sqlast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceVerbose(t *testing.T) {
	t.Parallel()

	t.Run("sanitizes table names", func(t *testing.T) {
		ns := NewNamespace(false)
		assert.Equal(t, "accounts", ns.Table("accounts"))
		assert.Equal(t, "public_acc", ns.Table("public.accounts"))
		assert.Equal(t, "SELECT_fro", ns.Table("(SELECT * from x)"[1:]))
	})

	t.Run("suffixes repeated tables", func(t *testing.T) {
		ns := NewNamespace(false)
		assert.Equal(t, "posts", ns.Table("posts"))
		assert.Equal(t, "posts$", ns.Table("posts"))
		assert.Equal(t, "posts$$", ns.Table("posts"))
	})

	t.Run("columns keep their name", func(t *testing.T) {
		ns := NewNamespace(false)
		assert.Equal(t, "email_address", ns.Column("email_address"))
		assert.Equal(t, "email_address", ns.Column("email_address"))
	})
}

func TestNamespaceMinified(t *testing.T) {
	t.Parallel()

	t.Run("memoizes columns", func(t *testing.T) {
		ns := NewNamespace(true)
		a := ns.Column("id")
		b := ns.Column("name")
		assert.Equal(t, "a", a)
		assert.Equal(t, "b", b)
		assert.Equal(t, a, ns.Column("id"))
	})

	t.Run("tables always get a fresh symbol", func(t *testing.T) {
		ns := NewNamespace(true)
		assert.Equal(t, "a", ns.Table("posts"))
		assert.Equal(t, "b", ns.Table("posts"))
	})

	t.Run("rolls over to two symbols", func(t *testing.T) {
		ns := NewNamespace(true)
		var last string
		for range len(symbols) {
			last = ns.Table("t")
		}
		assert.Equal(t, "$", last)
		assert.Equal(t, "aa", ns.Table("t"))
		assert.Equal(t, "ab", ns.Table("t"))
	})
}

func TestNamespaceUniqueTables(t *testing.T) {
	t.Parallel()

	for _, minify := range []bool{false, true} {
		ns := NewNamespace(minify)
		seen := make(map[string]struct{})
		for i := range 500 {
			name := []string{"accounts", "posts", "comments", "public.accounts"}[i%4]
			as := ns.Table(name)
			_, dup := seen[as]
			require.False(t, dup, "duplicate alias %q (minify=%v)", as, minify)
			seen[as] = struct{}{}
		}
	}
}

func TestTreeParents(t *testing.T) {
	t.Parallel()

	tree := NewTree(false)
	root := tree.New(KindTable, nil)
	child := tree.New(KindColumn, root)
	root.Children = append(root.Children, child)

	assert.Same(t, root, tree.Root)
	assert.Nil(t, tree.ParentOf(root))
	assert.Same(t, root, tree.ParentOf(child))
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, "column", child.Kind.String())
}
