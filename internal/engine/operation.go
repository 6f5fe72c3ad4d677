package engine

import (
	"context"
	"slices"

	"github.com/roach88/into/internal/socket"
	"github.com/roach88/into/internal/variant"
)

// Operation is a node of the dataflow graph.
//
// Most implementations embed BaseOperation, which supplies Name, Base and a
// default Check, and implement Process themselves.
type Operation interface {
	Name() string
	Base() *BaseOperation

	// Check validates configuration. reset is true on a fresh start and
	// false when resuming from Paused; per-run state is discarded only on
	// reset. Check must be callable repeatedly.
	Check(reset bool) error

	// Process performs one unit of work. Operations with inputs read the
	// heads of the active group through r; sources are called every round.
	Process(ctx context.Context, r *Round) error
}

// SyncHandler is implemented by operations that react to sync events.
type SyncHandler interface {
	SyncEvent(ctx context.Context, r *Round, ev SyncEvent) error
}

// Finisher is implemented by operations that flush state when their input
// streams end. Finish runs once, before Stop is emitted on the outputs.
type Finisher interface {
	Finish(ctx context.Context, r *Round) error
}

// PropertyDecl declares a configurable property.
type PropertyDecl struct {
	Name    string
	Accepts variant.KindSet
	Default variant.Variant // nil or Invalid means no default
	Doc     string
}

type property struct {
	decl  PropertyDecl
	value variant.Variant
}

// BaseOperation owns the sockets and properties of an operation.
type BaseOperation struct {
	name      string
	inputs    []*socket.Input
	outputs   []*socket.Output
	props     map[string]*property
	propOrder []string
	threaded  bool
}

// NewBaseOperation returns the base of an operation called name.
func NewBaseOperation(name string) BaseOperation {
	return BaseOperation{name: name, props: make(map[string]*property)}
}

// Name returns the operation name.
func (b *BaseOperation) Name() string { return b.name }

// Base returns b. It lets embedding types satisfy Operation.
func (b *BaseOperation) Base() *BaseOperation { return b }

// SetThreaded requests a dedicated worker goroutine for Process calls.
func (b *BaseOperation) SetThreaded(threaded bool) { b.threaded = threaded }

// IsThreaded reports whether the operation runs on its own worker.
func (b *BaseOperation) IsThreaded() bool { return b.threaded }

// AddInput creates an input socket. Socket names are unique across the
// inputs and outputs of one operation.
func (b *BaseOperation) AddInput(name string, accepts variant.KindSet) (*socket.Input, error) {
	in := socket.NewInput(name, accepts)
	if err := b.attachInput(in); err != nil {
		return nil, err
	}
	return in, nil
}

// AddOutput creates an output socket.
func (b *BaseOperation) AddOutput(name string) (*socket.Output, error) {
	out := socket.NewOutput(name)
	if err := b.attachOutput(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BaseOperation) hasSocket(name string) bool {
	return b.Input(name) != nil || b.Output(name) != nil
}

func (b *BaseOperation) attachInput(in *socket.Input) error {
	if b.hasSocket(in.Name()) {
		return configError(b.name, in.Name(), ErrDuplicateSocket)
	}
	b.inputs = append(b.inputs, in)
	return nil
}

func (b *BaseOperation) attachOutput(out *socket.Output) error {
	if b.hasSocket(out.Name()) {
		return configError(b.name, out.Name(), ErrDuplicateSocket)
	}
	b.outputs = append(b.outputs, out)
	return nil
}

// Input returns the input called name, or nil.
func (b *BaseOperation) Input(name string) *socket.Input {
	for _, in := range b.inputs {
		if in.Name() == name {
			return in
		}
	}
	return nil
}

// Output returns the output called name, or nil.
func (b *BaseOperation) Output(name string) *socket.Output {
	for _, out := range b.outputs {
		if out.Name() == name {
			return out
		}
	}
	return nil
}

// Inputs returns the input sockets in creation order.
func (b *BaseOperation) Inputs() []*socket.Input { return slices.Clone(b.inputs) }

// Outputs returns the output sockets in creation order.
func (b *BaseOperation) Outputs() []*socket.Output { return slices.Clone(b.outputs) }

// ConnectOutput connects this operation's output to target's input.
func (b *BaseOperation) ConnectOutput(output string, target Operation, input string) error {
	out := b.Output(output)
	if out == nil {
		return configError(b.name, output, ErrUnknownSocket)
	}
	in := target.Base().Input(input)
	if in == nil {
		return configError(target.Name(), input, ErrUnknownSocket)
	}
	in.ConnectOutput(out)
	return nil
}

// DeclareProperty registers a property. Declaring the same name twice
// replaces the declaration and drops any value.
func (b *BaseOperation) DeclareProperty(decl PropertyDecl) {
	if b.props == nil {
		b.props = make(map[string]*property)
	}
	if _, ok := b.props[decl.Name]; !ok {
		b.propOrder = append(b.propOrder, decl.Name)
	}
	b.props[decl.Name] = &property{decl: decl}
}

// Properties returns the declarations in declaration order.
func (b *BaseOperation) Properties() []PropertyDecl {
	decls := make([]PropertyDecl, 0, len(b.propOrder))
	for _, name := range b.propOrder {
		decls = append(decls, b.props[name].decl)
	}
	return decls
}

// SetProperty validates v against the declaration and stores it. Numeric
// values are converted to an accepted kind where that is lossless.
func (b *BaseOperation) SetProperty(name string, v variant.Variant) error {
	p, ok := b.props[name]
	if !ok {
		return configError(b.name, name, ErrUnknownProperty)
	}
	if !variant.IsValid(v) {
		p.value = nil
		return nil
	}
	coerced, err := variant.Coerce(v, p.decl.Accepts)
	if err != nil {
		return configError(b.name, name, err)
	}
	p.value = coerced
	return nil
}

// Property returns the value of name, its default when unset, or
// variant.Invalid{} when neither exists.
func (b *BaseOperation) Property(name string) variant.Variant {
	p, ok := b.props[name]
	if !ok {
		return variant.Invalid{}
	}
	if variant.IsValid(p.value) {
		return p.value
	}
	if variant.IsValid(p.decl.Default) {
		return p.decl.Default
	}
	return variant.Invalid{}
}

// RequireProperty returns the value of name or a *ConfigError when it has
// neither a value nor a default.
func (b *BaseOperation) RequireProperty(name string) (variant.Variant, error) {
	v := b.Property(name)
	if !variant.IsValid(v) {
		return nil, configError(b.name, name, ErrPropertyUnset)
	}
	return v, nil
}

// Check verifies that every non-optional input is connected.
func (b *BaseOperation) Check(bool) error {
	for _, in := range b.inputs {
		if !in.IsOptional() && !in.IsConnected() {
			return configError(b.name, in.Name(), ErrNotConnected)
		}
	}
	return nil
}
