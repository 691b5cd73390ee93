package core

import "sort"

// Registry maps task names to their override chains. The chain for a name
// is an explicit ordered list of definitions: the last element is the
// current implementation and each element's run-super binds to exactly its
// immediate predecessor. Definitions persist for the process lifetime;
// there is no unregistration.
//
// The registry is written only during the plugin-load phase and read-only
// once task execution starts, so it carries no locking.
type Registry struct {
	chains map[string][]*Definition
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{chains: map[string][]*Definition{}}
}

// Task declares or re-declares a visible task and returns its builder.
// Re-declaring an existing name starts a new chain link whose run-super
// reaches the previous definition; the new schema fully replaces the old.
func (r *Registry) Task(name string) *Builder {
	return r.declare(name, false)
}

// Subtask is Task with the definition hidden from top-level listings.
func (r *Registry) Subtask(name string) *Builder {
	return r.declare(name, true)
}

func (r *Registry) declare(name string, subtask bool) *Builder {
	def := newDefinition(name, subtask)
	if _, seen := r.chains[name]; !seen {
		r.order = append(r.order, name)
	}
	r.chains[name] = append(r.chains[name], def)
	return &Builder{def: def}
}

// Get returns the current definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	chain := r.chains[name]
	if len(chain) == 0 {
		return nil, false
	}
	return chain[len(chain)-1], true
}

// Chain returns the full override chain for name, oldest first.
func (r *Registry) Chain(name string) []*Definition {
	chain := r.chains[name]
	out := make([]*Definition, len(chain))
	copy(out, chain)
	return out
}

// Names returns all registered task names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// View returns the read-only view handed to the runtime environment.
func (r *Registry) View() TasksView { return TasksView{reg: r} }

// TasksView is the read-only face of the registry exposed through the
// runtime environment: tasks may inspect but not redefine each other.
type TasksView struct {
	reg *Registry
}

func (v TasksView) Get(name string) (*Definition, bool) { return v.reg.Get(name) }

func (v TasksView) Names() []string { return v.reg.Names() }

// Definitions returns the current definition of every task, sorted by
// name. Subtasks are included; listing surfaces filter on IsSubtask.
func (v TasksView) Definitions() []*Definition {
	names := v.reg.Names()
	out := make([]*Definition, 0, len(names))
	for _, n := range names {
		if d, ok := v.reg.Get(n); ok {
			out = append(out, d)
		}
	}
	return out
}
