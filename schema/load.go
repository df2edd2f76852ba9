package schema

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// mappingFile is the YAML layout read by LoadMapping:
//
//	types:
//	  User:
//	    table: accounts
//	    uniqueKey: id
//	    fields:
//	      fullName:
//	        expr: "{table}.first_name || ' ' || {table}.last_name"
//	      posts:
//	        batch: {thisKey: author_id, parentKey: id}
//	        orderBy: {id: desc}
type mappingFile struct {
	Types map[string]typeFile `yaml:"types"`
}

type typeFile struct {
	Table       string               `yaml:"table,omitempty"`
	UniqueKey   StringList           `yaml:"uniqueKey,omitempty"`
	AlwaysFetch StringList           `yaml:"alwaysFetch,omitempty"`
	TypeColumn  string               `yaml:"typeColumn,omitempty"`
	TypeHint    string               `yaml:"typeHint,omitempty"`
	Fields      map[string]fieldFile `yaml:"fields,omitempty"`
}

type fieldFile struct {
	Column       string        `yaml:"column,omitempty"`
	Expr         string        `yaml:"expr,omitempty"`
	ForeignTable string        `yaml:"foreignTable,omitempty"`
	Deps         StringList    `yaml:"deps,omitempty"`
	Resolver     bool          `yaml:"resolver,omitempty"`
	IgnoreAll    bool          `yaml:"ignoreAll,omitempty"`
	IgnoreTable  bool          `yaml:"ignoreTable,omitempty"`
	Join         string        `yaml:"join,omitempty"`
	Batch        *Batch        `yaml:"batch,omitempty"`
	Junction     *junctionFile `yaml:"junction,omitempty"`
	Where        string        `yaml:"where,omitempty"`
	OrderBy      orderFile     `yaml:"orderBy,omitempty"`
	SortKey      *sortKeyFile  `yaml:"sortKey,omitempty"`
	Limit        int           `yaml:"limit,omitempty"`
	Paginate     bool          `yaml:"paginate,omitempty"`
}

type junctionFile struct {
	Table   string               `yaml:"table"`
	Include map[string]fieldFile `yaml:"include,omitempty"`
	OrderBy orderFile            `yaml:"orderBy,omitempty"`
	SortKey *sortKeyFile         `yaml:"sortKey,omitempty"`
	Where   string               `yaml:"where,omitempty"`
	Joins   []string             `yaml:"joins,omitempty"`
	Batch   *struct {
		ThisKey   string `yaml:"thisKey"`
		ParentKey string `yaml:"parentKey"`
		Join      string `yaml:"join"`
	} `yaml:"batch,omitempty"`
}

type sortKeyFile struct {
	Order string     `yaml:"order"`
	Key   StringList `yaml:"key"`
}

// orderFile keeps the declaration order of a YAML mapping.
type orderFile OrderBy

// UnmarshalYAML implements yaml.Unmarshaler for orderFile. It accepts a
// mapping of column to direction, or a single column name.
func (o *orderFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*o = orderFile{{Column: node.Value, Direction: Asc}}
		return nil
	case yaml.MappingNode:
		terms := make(orderFile, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			terms = append(terms, OrderTerm{
				Column:    node.Content[i].Value,
				Direction: node.Content[i+1].Value,
			})
		}
		*o = terms
		return nil
	default:
		return fmt.Errorf("orderBy: expected column or mapping, got %v", node.Kind)
	}
}

// StringList is a YAML type that can be either a string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler for StringList.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("expected string or list, got %v", node.Kind)
	}
}

// LoadMappingFile reads a YAML mapping from path.
func LoadMappingFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()
	return LoadMapping(f)
}

// LoadMapping decodes a YAML mapping. Types without a table default to the
// pluralized, underscored type name.
func LoadMapping(r io.Reader) (*Mapping, error) {
	var file mappingFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	m := NewMapping()
	for name, tf := range file.Types {
		table := tf.Table
		if table == "" {
			table = DefaultTable(name)
		}
		key := []string(tf.UniqueKey)
		if len(key) == 0 {
			key = []string{"id"}
		}
		m.SetType(name, &Type{
			Table:       Static(table),
			UniqueKey:   key,
			AlwaysFetch: tf.AlwaysFetch,
			TypeColumn:  tf.TypeColumn,
			TypeHint:    tf.TypeHint,
		})
		for fieldName, ff := range tf.Fields {
			f, err := ff.build()
			if err != nil {
				return nil, fmt.Errorf("type %s field %s: %w", name, fieldName, err)
			}
			m.SetField(name, fieldName, f)
		}
	}
	return m, nil
}

// DefaultTable derives a table name from a type name, e.g. "BlogPost" becomes
// "blog_posts".
func DefaultTable(typeName string) string {
	return inflect.Underscore(inflect.Pluralize(typeName))
}

func (ff fieldFile) build() (*Field, error) {
	f := &Field{
		Column:       ff.Column,
		Expr:         tableTemplate(ff.Expr),
		ForeignTable: tableTemplate(ff.ForeignTable),
		Deps:         ff.Deps,
		Resolver:     ff.Resolver,
		IgnoreAll:    ff.IgnoreAll,
		IgnoreTable:  ff.IgnoreTable,
		Join:         joinTemplate(ff.Join),
		Batch:        ff.Batch,
		Where:        tableTemplate(ff.Where),
		Paginate:     ff.Paginate,
	}
	if len(ff.OrderBy) > 0 {
		f.OrderBy = Static(OrderBy(ff.OrderBy))
	}
	if ff.SortKey != nil {
		f.SortKey = Static(&SortKey{Order: ff.SortKey.Order, Key: ff.SortKey.Key})
	}
	if ff.Limit > 0 {
		f.Limit = Static(ff.Limit)
	}
	if jf := ff.Junction; jf != nil {
		j := &Junction{
			Table: Static(jf.Table),
			Where: tableTemplate(jf.Where),
		}
		if len(jf.OrderBy) > 0 {
			j.OrderBy = Static(OrderBy(jf.OrderBy))
		}
		if jf.SortKey != nil {
			j.SortKey = Static(&SortKey{Order: jf.SortKey.Order, Key: jf.SortKey.Key})
		}
		switch {
		case len(jf.Joins) == 2:
			j.Joins = [2]JoinExpr{joinTemplate(jf.Joins[0]), joinTemplate(jf.Joins[1])}
		case len(jf.Joins) != 0:
			return nil, fmt.Errorf("junction joins: expected 2 predicates, got %d", len(jf.Joins))
		}
		if jf.Batch != nil {
			j.Batch = &JunctionBatch{
				ThisKey:   jf.Batch.ThisKey,
				ParentKey: jf.Batch.ParentKey,
				Join:      joinTemplate(jf.Batch.Join),
			}
		}
		if len(jf.Include) > 0 {
			include := make(map[string]*Field, len(jf.Include))
			for name, inc := range jf.Include {
				sub, err := inc.build()
				if err != nil {
					return nil, fmt.Errorf("junction include %s: %w", name, err)
				}
				include[name] = sub
			}
			j.Include = Static(include)
		}
		f.Junction = j
	}
	return f, nil
}

func tableTemplate(tmpl string) TableExpr {
	if tmpl == "" {
		return nil
	}
	return func(_ context.Context, table string, _ Args) (string, error) {
		return strings.ReplaceAll(tmpl, "{table}", table), nil
	}
}

func joinTemplate(tmpl string) JoinExpr {
	if tmpl == "" {
		return nil
	}
	return func(_ context.Context, parent, child string, _ Args) (string, error) {
		r := strings.NewReplacer("{parent}", parent, "{child}", child)
		return r.Replace(tmpl), nil
	}
}
