package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/schema"
)

// project is the schema and mapping queries are compiled against.
type project struct {
	schema  *ast.Schema
	mapping *schema.Mapping
}

func loadProject(cfg *Config) (*project, error) {
	sdl, err := os.ReadFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := gqlparser.LoadSchema(&ast.Source{Name: cfg.Schema, Input: string(sdl)})
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	m, err := schema.LoadMappingFile(cfg.Mapping)
	if err != nil {
		return nil, err
	}
	return &project{schema: s, mapping: m}, nil
}

// request parses the query file at path and selects the first root field
// of the named operation, or of the first operation when name is empty.
func (p *project) request(path, name, vars string) (*compiler.Request, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}
	doc, gerr := gqlparser.LoadQuery(p.schema, string(src))
	if len(gerr) > 0 {
		return nil, fmt.Errorf("parsing query: %w", gerr)
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("%s has no operation", path)
	}
	op := doc.Operations[0]
	if name != "" {
		if op = doc.Operations.ForName(name); op == nil {
			return nil, fmt.Errorf("operation %q not found in %s", name, path)
		}
	}
	if op.Operation != ast.Query {
		return nil, fmt.Errorf("operation %q is a %s, only queries are supported", op.Name, op.Operation)
	}
	req := &compiler.Request{
		Schema:     p.schema,
		ParentType: p.schema.Query,
		Fragments:  doc.Fragments,
	}
	if vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			return nil, fmt.Errorf("parsing variables: %w", err)
		}
	}
	for _, sel := range op.SelectionSet {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		if len(req.Fields) == 0 || req.Fields[0].Name == f.Name {
			req.Fields = append(req.Fields, f)
		}
	}
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("operation %q selects no field", op.Name)
	}
	return req, nil
}

// write encodes v in format.
func write(w io.Writer, format string, v any) error {
	if format == "msgpack" {
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
