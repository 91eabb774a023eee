package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// Module describes a statement kind.
//
// Type is the name statements use to select the kind, e.g. "concat". Method
// kinds are named "<object type>::<method>", e.g. "backtrack_point::go".
type Module struct {
	Type string

	// New creates the statement payload for inst. It is called when the
	// process frontier reaches the slot. Returning an error is the same as
	// the statement raising SignalDeadError immediately.
	//
	// New must not call back into the process synchronously; signals raised
	// on inst are queued on the reactor and delivered after New returns.
	New func(inst *Instance, params NewParams) (Statement, error)
}

// NewParams carries the evaluated arguments of a statement.
type NewParams struct {
	// Args is a list value. It lives in an arena that is released as soon
	// as New returns; copy out what must be kept.
	Args value.Value

	// MethodUser is the method-user of the resolved object for method
	// statements, nil otherwise.
	MethodUser any
}

// Statement is the kind-specific payload of an initialized slot.
type Statement interface {
	// Terminate releases the payload. It is called exactly once, when the
	// process tears the slot down. Any in-flight work must be cancelled or
	// ignored afterwards; no further method is called on the payload.
	Terminate()
}

// VarGetter is implemented by statements that expose variables.
//
// GetVar builds the value in mem and reports false for unknown names. It is
// only called while the statement is Up and must not have side effects.
type VarGetter interface {
	GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool)
}

// ObjGetter is implemented by statements that expose child objects.
type ObjGetter interface {
	GetObj(name strtab.ID) (Object, bool)
}

// Registry maps module types to modules.
//
// Thread-safety: Registry is safe for concurrent use; registration normally
// happens once at startup.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds m. Registering the same type twice is an error.
func (r *Registry) Register(m Module) error {
	if m.Type == "" {
		return fmt.Errorf("register module: empty type")
	}
	if m.New == nil {
		return fmt.Errorf("register module %q: nil constructor", m.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[m.Type]; exists {
		return fmt.Errorf("register module %q: already registered", m.Type)
	}
	r.modules[m.Type] = &m
	return nil
}

// MustRegister is Register that panics on error. Used by package init code.
func (r *Registry) MustRegister(mods ...Module) {
	for _, m := range mods {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the module registered under typ.
func (r *Registry) Lookup(typ string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[typ]
	return m, ok
}

// Types returns all registered types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.modules))
	for t := range r.modules {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
