package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/into/internal/engine"
)

// Build validates p, instantiates its operations from reg and returns an
// engine with every connection made. The engine is Stopped.
func Build(p *Pipeline, reg *engine.Registry, opts ...engine.Option) (*engine.Engine, error) {
	if verrs := Validate(p, reg); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("pipeline %s: %w", p.Name, errors.Join(errs...))
	}
	for _, w := range AnalyzeCycles(p) {
		slog.Warn("pipeline cycle", "pipeline", p.Name, "path", w.Path)
	}

	e := engine.New(opts...)
	for _, spec := range p.Operations {
		op, err := reg.Create(spec.Type, spec.Name)
		if err != nil {
			return nil, err
		}
		base := op.Base()
		for _, name := range sortedKeys(spec.Properties) {
			if err := base.SetProperty(name, spec.Properties[name]); err != nil {
				return nil, err
			}
		}
		base.SetThreaded(spec.Threaded)
		if err := e.AddOperation(op); err != nil {
			return nil, err
		}
	}
	for _, c := range p.Connections {
		if err := e.Connect(c.From.Operation, c.From.Socket, c.To.Operation, c.To.Socket); err != nil {
			return nil, fmt.Errorf("connect %s: %w", c, err)
		}
	}
	slog.Debug("pipeline built", "pipeline", p.Name,
		"operations", len(p.Operations), "connections", len(p.Connections))
	return e, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
