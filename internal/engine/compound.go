package engine

import (
	"context"

	"github.com/roach88/into/internal/socket"
)

// compound is implemented by *Compound and any type embedding it.
type compound interface {
	compound() *Compound
}

// Compound groups child operations behind sockets of its own. Its inputs
// and outputs are the external halves of proxies wired to the children.
//
// The compound itself is never scheduled; the engine adds its children as
// regular operations.
type Compound struct {
	BaseOperation
	children      []Operation
	inputProxies  []*socket.Proxy
	outputProxies []*socket.Proxy
}

// NewCompound returns an empty compound operation.
func NewCompound(name string) *Compound {
	return &Compound{BaseOperation: NewBaseOperation(name)}
}

func (c *Compound) compound() *Compound { return c }

// AddChild adds op inside the compound.
func (c *Compound) AddChild(op Operation) error {
	for _, child := range c.children {
		if child.Name() == op.Name() {
			return configError(c.Name(), op.Name(), ErrDuplicateOperation)
		}
	}
	c.children = append(c.children, op)
	return nil
}

// Children returns the child operations in insertion order.
func (c *Compound) Children() []Operation {
	out := make([]Operation, len(c.children))
	copy(out, c.children)
	return out
}

// ExposeInput creates a compound input called name that fans out to
// targets. The input is optional only when every target is.
func (c *Compound) ExposeInput(name string, targets ...*socket.Input) (*socket.Input, error) {
	p := socket.NewProxy(name)
	if err := c.attachInput(p.Input()); err != nil {
		return nil, err
	}
	optional := true
	for _, t := range targets {
		t.ConnectOutput(p.Output())
		optional = optional && t.IsOptional()
	}
	p.Input().SetOptional(optional)
	c.inputProxies = append(c.inputProxies, p)
	return p.Input(), nil
}

// ExposeOutput creates a compound output called name that forwards the
// named output of child.
func (c *Compound) ExposeOutput(name string, child Operation, output string) (*socket.Output, error) {
	src := child.Base().Output(output)
	if src == nil {
		return nil, configError(child.Name(), output, ErrUnknownSocket)
	}
	p := socket.NewProxy(name)
	if err := c.attachOutput(p.Output()); err != nil {
		return nil, err
	}
	p.Input().ConnectOutput(src)
	c.outputProxies = append(c.outputProxies, p)
	return p.Output(), nil
}

func (c *Compound) proxies() []*socket.Proxy {
	all := make([]*socket.Proxy, 0, len(c.inputProxies)+len(c.outputProxies))
	all = append(all, c.inputProxies...)
	return append(all, c.outputProxies...)
}

// Check validates the compound's own inputs and every child. A child input
// fed only by an unconnected compound input counts as unconnected.
func (c *Compound) Check(reset bool) error {
	if err := c.BaseOperation.Check(reset); err != nil {
		return err
	}
	for _, child := range c.children {
		if err := child.Check(reset); err != nil {
			return err
		}
	}
	return nil
}

// Process is never called; children are scheduled instead.
func (c *Compound) Process(context.Context, *Round) error {
	return nil
}
