package shape

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/syssam/nestql/sqlast"
)

func leaf(name, as string) *sqlast.Node {
	return &sqlast.Node{Kind: sqlast.KindColumn, FieldName: name, Column: name, As: as}
}

func TestCompile(t *testing.T) {
	root := &sqlast.Node{
		Kind:     sqlast.KindTable,
		As:       "accounts",
		GrabMany: true,
		Children: []*sqlast.Node{
			leaf("id", "id"),
			leaf("email", "email_address"),
			{Kind: sqlast.KindColumnDeps, Deps: []sqlast.Dep{{Name: "first_name", As: "first_name"}}},
			{Kind: sqlast.KindNoop, FieldName: "__typename"},
			{
				Kind:      sqlast.KindTable,
				FieldName: "posts",
				As:        "posts",
				GrabMany:  true,
				Children: []*sqlast.Node{
					leaf("id", "id"),
					{
						Kind:      sqlast.KindTable,
						FieldName: "author",
						As:        "author",
						Children:  []*sqlast.Node{leaf("id", "id")},
					},
				},
			},
			{
				Kind:      sqlast.KindTable,
				FieldName: "comments",
				As:        "comments",
				Batch: &sqlast.BatchKey{
					ThisKey:   leaf("author_id", "author_id"),
					ParentKey: leaf("id", "id"),
				},
			},
		},
	}
	want := &Definition{
		Many: true,
		Fields: []Field{
			{Name: "id", Column: "id"},
			{Name: "email", Column: "email_address"},
			{Name: "first_name", Column: "first_name"},
			{Name: "posts", Nested: &Definition{
				Many: true,
				Fields: []Field{
					{Name: "id", Column: "posts__id"},
					{Name: "author", Nested: &Definition{
						Fields: []Field{{Name: "id", Column: "posts__author__id"}},
					}},
				},
			}},
			{Name: "id", Column: "id"},
		},
	}
	got := Compile(root)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
	if got.Identity() != "id" {
		t.Errorf("Identity() = %q, want id", got.Identity())
	}
}

func TestCompileUnion(t *testing.T) {
	root := &sqlast.Node{
		Kind: sqlast.KindUnion,
		As:   "pets",
		Children: []*sqlast.Node{
			leaf("id", "id"),
		},
		Typed: []*sqlast.TypedChildren{
			{TypeName: "Dog", Children: []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "name", Column: "dog_name", As: "dog_name", DeferredFrom: "Dog"}}},
			{TypeName: "Cat", Children: []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "name", Column: "cat_name", As: "cat_name", DeferredFrom: "Cat"}}},
		},
	}
	want := &Definition{Fields: []Field{
		{Name: "id", Column: "id"},
		{Name: "name@Dog", Column: "dog_name"},
		{Name: "name@Cat", Column: "cat_name"},
	}}
	if diff := cmp.Diff(want, Compile(root)); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestAsMany(t *testing.T) {
	def := &Definition{Fields: []Field{{Name: "id", Column: "id"}}}
	many := def.AsMany()
	if !many.Many || def.Many {
		t.Fatalf("AsMany() must copy: got %v, original %v", many.Many, def.Many)
	}
	if (&Definition{Fields: []Field{{Name: "x", Nested: def}}}).Identity() != "" {
		t.Error("Identity() of a definition without leaves must be empty")
	}
}
