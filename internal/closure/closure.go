// Package closure implements the lexically-chained scope each function
// activation looks variables up through: a linked list of Maps, the
// innermost scope first, walking outward to the enclosing function's
// scope and beyond to the program's top-level scope.
package closure

import (
	"noja/internal/heap"
	"noja/internal/object"
)

// Closure is one link in the lexical chain: its own variable bindings
// plus a pointer to the scope it was created inside of. Prev is nil
// only for the top-level program scope.
type Closure struct {
	Vars *object.Map
	Prev *Closure
}

// New creates a fresh closure. prev is nil for the top-level scope and
// the enclosing Closure for any nested function or block scope.
func New(h *heap.Heap, prev *Closure) (*Closure, error) {
	vars, err := object.NewMap(h, 0)
	if err != nil {
		return nil, err
	}
	return &Closure{Vars: vars, Prev: prev}, nil
}

// Bind assigns name to val in this closure's own scope, shadowing (but
// not disturbing) any binding of the same name in an enclosing scope.
func (c *Closure) Bind(h *heap.Heap, name string, val object.Object) error {
	key, err := object.NewStr(h, name)
	if err != nil {
		return err
	}
	return c.Vars.Set(h, key, val)
}

// Select walks outward from c through Prev, returning the first
// binding whose value is not the None singleton. A binding holding
// None in an inner scope is treated as though it were absent there, so
// the lookup keeps walking to check whether an enclosing scope binds
// the same name to something else; this is the scope chain's one
// documented quirk and is implemented exactly as worded, not "fixed".
//
// Select does no hashing of its own: it surfaces whatever error
// object.MapType.Select returns for key (e.g. UnhashableKey for a key
// type with no Hash capability) and stops the walk there. SelectName
// always passes a Str key.
func (c *Closure) Select(key object.Object) (object.Object, error) {
	for scope := c; scope != nil; scope = scope.Prev {
		val, ok, err := object.MapType.Select(scope.Vars, key, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if val == object.NoneValue {
			continue
		}
		return val, nil
	}
	return object.NoneValue, nil
}

// SelectName is a convenience wrapper for Select taking a plain string,
// allocating the lookup key against h.
func (c *Closure) SelectName(h *heap.Heap, name string) (object.Object, error) {
	key, err := object.NewStr(h, name)
	if err != nil {
		return nil, err
	}
	return c.Select(key)
}

// Walk exposes every scope's Vars map in the chain to the heap's
// tracer, satisfying object.Scope. It visits each scope's Vars through
// a writable reference slot, the same pattern object.List/object.Map
// use for their own elements, so a relocating Walk implementation could
// rewrite c.Vars (or any ancestor's) in place.
func (c *Closure) Walk(visit func(*object.Object)) {
	for scope := c; scope != nil; scope = scope.Prev {
		var ref object.Object = scope.Vars
		visit(&ref)
		if m, ok := ref.(*object.Map); ok {
			scope.Vars = m
		}
	}
}

// Assign rebinds name to val in the nearest scope (walking outward
// from c) that already binds it non-None, matching Select's notion of
// "found". If no scope binds name, it is created in c's own scope,
// matching an implicit-declaration assignment.
func (c *Closure) Assign(h *heap.Heap, name string, val object.Object) error {
	key, err := object.NewStr(h, name)
	if err != nil {
		return err
	}
	for scope := c; scope != nil; scope = scope.Prev {
		existing, ok, err := object.MapType.Select(scope.Vars, key, nil)
		if err != nil {
			return err
		}
		if ok && existing != object.NoneValue {
			return scope.Vars.Set(h, key, val)
		}
	}
	return c.Vars.Set(h, key, val)
}
