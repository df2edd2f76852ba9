// Package fixture holds the schema, mapping and data shared by package tests.
package fixture

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/nestql/dialect/sql"
	"github.com/syssam/nestql/schema"

	_ "modernc.org/sqlite"
)

// SDL is the GraphQL schema of the fixture.
const SDL = `
interface Node {
  id: ID!
}

type Query {
  user(id: Int!): User
  users: [User!]!
  usersConn(first: Int, after: String, last: Int, before: String): UserConnection
  postsConn(first: Int, after: String, last: Int, before: String): PostConnection
  recentPosts: [Post]
  animals: [Animal]
  node(id: ID!): Node
}

type User implements Node {
  id: ID!
  fullName: String
  email: String
  favoriteColor: String
  colorName: String
  secret: String
  closeness: String
  posts: [Post]
  comments(first: Int, after: String, last: Int, before: String): CommentConnection
  following: [User]
  followers: [User]
}

type Post implements Node {
  id: ID!
  body: String
  authorId: Int
  author: User
  writer: User!
  comments: [Comment]
  numComments: Int
}

type Comment implements Node {
  id: ID!
  body: String
  postId: Int
}

union Animal = Dog | Cat

type Dog {
  id: ID!
  name: String
  barks: Boolean
  owner: User
}

type Cat {
  id: ID!
  name: String
  meows: Boolean
}

type PageInfo {
  hasNextPage: Boolean!
  hasPreviousPage: Boolean!
  startCursor: String
  endCursor: String
}

type UserConnection {
  edges: [UserEdge]
  pageInfo: PageInfo!
  total: Int
}

type UserEdge {
  cursor: String
  node: User
}

type PostConnection {
  edges: [PostEdge]
  pageInfo: PageInfo!
  total: Int
}

type PostEdge {
  cursor: String
  node: Post
}

type CommentConnection {
  edges: [CommentEdge]
  pageInfo: PageInfo!
  total: Int
}

type CommentEdge {
  cursor: String
  node: Comment
}
`

// MappingYAML maps the object types of SDL onto the tables of DDL.
const MappingYAML = `
types:
  User:
    table: accounts
    fields:
      fullName:
        expr: "{table}.first_name || ' ' || {table}.last_name"
      email:
        column: email_address
      favoriteColor:
        resolver: true
        deps: [color, shade]
      colorName:
        resolver: true
        deps: color
      secret:
        ignoreAll: true
      posts:
        batch: {thisKey: author_id, parentKey: id}
        orderBy: id
      comments:
        join: "{parent}.id = {child}.author_id"
        paginate: true
        sortKey: {order: desc, key: id}
      following:
        junction:
          table: relationships
          joins:
            - "{parent}.id = {child}.follower_id"
            - "{parent}.followee_id = {child}.id"
          include:
            closeness: {column: closeness}
      followers:
        orderBy: id
        junction:
          table: relationships
          batch:
            thisKey: followee_id
            parentKey: id
            join: "{parent}.follower_id = {child}.id"
  Post:
    fields:
      authorId:
        column: author_id
      author:
        join: "{parent}.author_id = {child}.id"
      writer:
        batch: {thisKey: id, parentKey: author_id}
      comments:
        batch: {thisKey: post_id, parentKey: id}
        orderBy: id
      numComments:
        expr: "(SELECT count(*) FROM comments c WHERE c.post_id = {table}.id)"
  Comment:
    fields:
      postId:
        column: post_id
  Animal:
    table: animals
    alwaysFetch: kind
    typeColumn: kind
`

// DDL creates the fixture tables.
const DDL = `
CREATE TABLE accounts (
  id INTEGER PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email_address TEXT,
  color TEXT,
  shade TEXT
);
CREATE TABLE posts (
  id INTEGER PRIMARY KEY,
  body TEXT NOT NULL,
  author_id INTEGER NOT NULL REFERENCES accounts(id)
);
CREATE TABLE comments (
  id INTEGER PRIMARY KEY,
  body TEXT NOT NULL,
  post_id INTEGER NOT NULL REFERENCES posts(id),
  author_id INTEGER NOT NULL REFERENCES accounts(id)
);
CREATE TABLE relationships (
  follower_id INTEGER NOT NULL REFERENCES accounts(id),
  followee_id INTEGER NOT NULL REFERENCES accounts(id),
  closeness TEXT
);
CREATE TABLE animals (
  id INTEGER PRIMARY KEY,
  kind TEXT NOT NULL,
  name TEXT,
  barks INTEGER,
  meows INTEGER,
  owner_id INTEGER REFERENCES accounts(id)
);
`

// Seed fills the fixture tables.
const Seed = `
INSERT INTO accounts VALUES
  (1, 'Alivia', 'Waelchi', 'alivia@example.com', 'blue', 'dark'),
  (2, 'Hudson', 'Hyatt', 'hudson@example.com', 'red', 'light'),
  (3, 'Coleman', 'Abernathy', NULL, NULL, NULL);
INSERT INTO posts VALUES
  (1, 'Check out this cool new GraphQL library', 2),
  (2, 'Here is who to contact if your brain has been ruined', 1),
  (3, 'I have no idea what I am doing', 2);
INSERT INTO comments VALUES
  (1, 'Wow this is a great post, Hudson.', 1, 1),
  (2, 'That is super weird', 1, 3),
  (3, 'Do not forget to check the docs', 2, 2);
INSERT INTO relationships VALUES
  (1, 2, 'best friends'),
  (2, 1, 'acquaintances'),
  (3, 1, 'mentor');
INSERT INTO animals VALUES
  (1, 'Dog', 'Rex', 1, NULL, 1),
  (2, 'Cat', 'Tom', NULL, 0, 2);
`

// Schema parses SDL.
func Schema(tb testing.TB) *ast.Schema {
	tb.Helper()
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "fixture.graphql", Input: SDL})
	require.NoError(tb, err)
	return s
}

// Mapping loads MappingYAML and adds the root query fields, which carry
// argument-dependent predicates.
func Mapping(tb testing.TB) *schema.Mapping {
	tb.Helper()
	m, err := schema.LoadMapping(strings.NewReader(MappingYAML))
	require.NoError(tb, err)
	m.SetField("Query", "user", &schema.Field{
		Where: func(_ context.Context, table string, args schema.Args) (string, error) {
			id, _, err := args.Int("id")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s.id = %d", table, id), nil
		},
	})
	m.SetField("Query", "usersConn", &schema.Field{
		Paginate: true,
		OrderBy:  schema.Static(schema.OrderAsc("id")),
	})
	m.SetField("Query", "postsConn", &schema.Field{
		Paginate: true,
		SortKey:  schema.Static(&schema.SortKey{Order: "asc", Key: []string{"id"}}),
	})
	m.SetField("Dog", "owner", &schema.Field{
		Batch: &schema.Batch{ThisKey: "id", ParentKey: "owner_id"},
	})
	m.SetField("Query", "recentPosts", &schema.Field{
		Limit: schema.Static(2),
		OrderBy: schema.Dynamic(func(context.Context, schema.Args) (schema.OrderBy, error) {
			return schema.OrderBy{{Column: "id", Direction: "desc"}}, nil
		}),
	})
	return m
}

// DB opens an in-memory SQLite database holding DDL and Seed.
func DB(tb testing.TB) *sql.Driver {
	tb.Helper()
	drv, err := sql.Open("sqlite", ":memory:")
	require.NoError(tb, err)
	// Every connection to ":memory:" opens a new database.
	drv.DB().SetMaxOpenConns(1)
	tb.Cleanup(func() { drv.Close() })
	ctx := context.Background()
	require.NoError(tb, drv.Exec(ctx, DDL))
	require.NoError(tb, drv.Exec(ctx, Seed))
	return drv
}

// Selection is the parsed selection of one root query field.
type Selection struct {
	Schema    *ast.Schema
	Fields    []*ast.Field
	Parent    *ast.Definition
	Fragments ast.FragmentDefinitionList
	Variables map[string]any
}

// Select parses query against s and returns the selections of its first root
// field.
func Select(tb testing.TB, s *ast.Schema, query string, vars map[string]any) *Selection {
	tb.Helper()
	doc, gerr := gqlparser.LoadQuery(s, query)
	if len(gerr) > 0 {
		require.NoError(tb, gerr)
	}
	require.NotEmpty(tb, doc.Operations)
	op := doc.Operations[0]
	sel := &Selection{
		Schema:    s,
		Parent:    s.Query,
		Fragments: doc.Fragments,
		Variables: vars,
	}
	for _, set := range op.SelectionSet {
		f, ok := set.(*ast.Field)
		if !ok {
			continue
		}
		if len(sel.Fields) == 0 || sel.Fields[0].Name == f.Name {
			sel.Fields = append(sel.Fields, f)
		}
	}
	require.NotEmpty(tb, sel.Fields, "query selects no root field")
	return sel
}
