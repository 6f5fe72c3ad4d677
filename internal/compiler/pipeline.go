package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/into/internal/variant"
)

// Pipeline is a compiled pipeline definition.
type Pipeline struct {
	Name        string
	Operations  []OperationSpec
	Connections []Connection
}

// OperationSpec declares one operation instance.
type OperationSpec struct {
	Name       string
	Type       string
	Properties map[string]variant.Variant
	Threaded   bool
	Pos        token.Pos
}

// Connection wires an output to an input.
type Connection struct {
	From Endpoint
	To   Endpoint
	Pos  token.Pos
}

func (c Connection) String() string { return c.From.String() + " -> " + c.To.String() }

// Operation returns the spec called name.
func (p *Pipeline) Operation(name string) (OperationSpec, bool) {
	for _, op := range p.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return OperationSpec{}, false
}

// Compile parses a CUE value into a Pipeline. The value should be the
// pipeline struct itself, e.g. the result of
// v.LookupPath(cue.ParsePath("pipeline.binarize")).
func Compile(v cue.Value) (*Pipeline, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}

	p := &Pipeline{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		p.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	opsVal := v.LookupPath(cue.ParsePath("operations"))
	if !opsVal.Exists() {
		return nil, &CompileError{Field: "operations", Message: "operations are required", Pos: v.Pos()}
	}
	iter, err := opsVal.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	for iter.Next() {
		op, err := compileOperation(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		p.Operations = append(p.Operations, op)
	}
	if len(p.Operations) == 0 {
		return nil, &CompileError{Field: "operations", Message: "at least one operation is required", Pos: opsVal.Pos()}
	}

	connVal := v.LookupPath(cue.ParsePath("connections"))
	if connVal.Exists() {
		list, err := connVal.List()
		if err != nil {
			return nil, fromCUE(err)
		}
		for list.Next() {
			item := list.Value()
			expr, err := item.String()
			if err != nil {
				return nil, fromCUE(err)
			}
			conns, err := ParseConnection(expr)
			if err != nil {
				return nil, &CompileError{Field: "connections", Message: err.Error(), Pos: item.Pos()}
			}
			for i := range conns {
				conns[i].Pos = item.Pos()
			}
			p.Connections = append(p.Connections, conns...)
		}
	}
	return p, nil
}

func compileOperation(name string, v cue.Value) (OperationSpec, error) {
	op := OperationSpec{Name: name, Pos: v.Pos(), Properties: make(map[string]variant.Variant)}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return op, &CompileError{
			Field:   fmt.Sprintf("operations.%s.type", name),
			Message: "type is required",
			Pos:     v.Pos(),
		}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return op, fromCUE(err)
	}
	op.Type = typeName

	if threaded := v.LookupPath(cue.ParsePath("threaded")); threaded.Exists() {
		if op.Threaded, err = threaded.Bool(); err != nil {
			return op, fromCUE(err)
		}
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return op, nil
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return op, fromCUE(err)
	}
	for iter.Next() {
		value, err := propertyValue(iter.Value())
		if err != nil {
			return op, &CompileError{
				Field:   fmt.Sprintf("operations.%s.properties.%s", name, iter.Label()),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		op.Properties[iter.Label()] = value
	}
	return op, nil
}

// propertyValue converts a concrete CUE value to a Variant. Structs are
// read as tagged envelopes, e.g. {kind: "uint8", value: 3}; lists become
// matrices.
func propertyValue(v cue.Value) (variant.Variant, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}
	if v.Kind() == cue.StructKind {
		data, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return variant.Unmarshal(data)
	}
	g, err := goValue(v)
	if err != nil {
		return nil, err
	}
	return variant.FromGo(g)
}

func goValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var list []any
		for iter.Next() {
			item, err := goValue(iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported property kind %v", v.Kind())
	}
}

// CompileAll compiles every pipeline under the top-level "pipeline" field
// of v, in declaration order.
func CompileAll(v cue.Value) ([]*Pipeline, error) {
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}
	root := v.LookupPath(cue.ParsePath("pipeline"))
	if !root.Exists() {
		return nil, &CompileError{Field: "pipeline", Message: "no pipelines defined", Pos: v.Pos()}
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}
	var pipelines []*Pipeline
	for iter.Next() {
		p, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

// CompileString compiles CUE source held in memory. filename is used in
// error positions.
func CompileString(filename, src string) ([]*Pipeline, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return CompileAll(v)
}
