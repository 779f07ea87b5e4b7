package memhost

import (
	"fmt"
	"sort"
	"strings"
)

// CommandFunc implements one host command. It receives the arguments after
// the command name and returns the reply; a nil reply is a nil reply.
type CommandFunc func(cc *CallContext, args []string) *Reply

// Registry is an immutable collection of named commands.
// Once created via NewRegistry, commands cannot be added or removed.
// Names are case-insensitive and stored upper-case.
type Registry struct {
	commands   map[string]CommandFunc
	names      []string // sorted for consistent iteration
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	commands   map[string]CommandFunc
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a Registry.
type RegistryOption func(*registryBuilder)

// NewRegistry creates an immutable Registry with the given options.
// Returns an error if any command name is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(BuiltinBundle()),
//	    WithCommand("HELLO", helloCommand),
//	)
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	b := &registryBuilder{
		commands: make(map[string]CommandFunc),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware in reverse order so the first one wraps outermost.
	wrapped := make(map[string]CommandFunc, len(b.commands))
	for name, fn := range b.commands {
		w := fn
		for i := len(b.middleware) - 1; i >= 0; i-- {
			w = b.middleware[i](w)
		}
		wrapped[name] = w
	}

	return &Registry{
		commands:   wrapped,
		names:      names,
		middleware: b.middleware,
	}, nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (CommandFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.commands[strings.ToUpper(name)]
	return fn, ok
}

// Has returns true if a command with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns a sorted list of all registered command names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

func (b *registryBuilder) addCommand(name string, fn CommandFunc) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("command %q has no implementation", name)
	}
	key := strings.ToUpper(name)
	if _, exists := b.commands[key]; exists {
		return fmt.Errorf("duplicate command name: %q", name)
	}
	b.commands[key] = fn
	return nil
}

// WithCommand registers fn under name.
func WithCommand(name string, fn CommandFunc) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addCommand(name, fn); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// Bundle is a named set of commands registered together.
type Bundle map[string]CommandFunc

// WithBundle registers every command of bundle.
func WithBundle(bundle Bundle) RegistryOption {
	return func(b *registryBuilder) {
		names := make([]string, 0, len(bundle))
		for name := range bundle {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := b.addCommand(name, bundle[name]); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
