package codegen

import "noja/internal/errors"

// Promise is a write-once forward reference: the code generator can
// emit a jump whose target instruction index isn't known yet (an if
// statement's jump past its then-branch, a loop's jump past its body),
// hand out a Promise in the jump's operand slot, and fix the target
// once it is known. Resolving a Promise a second time with the same
// value is a harmless no-op; resolving it a second time with a
// different value means two different code paths both believe they
// own the same forward reference, a code generator bug.
type Promise struct {
	resolved bool
	value    int
}

// Resolve fixes p's target. See the type doc for the idempotence rule.
func (p *Promise) Resolve(value int) error {
	if !p.resolved {
		p.resolved = true
		p.value = value
		return nil
	}
	if p.value != value {
		return errors.New(errors.UnresolvedJumpTarget,
			"promise already resolved to instruction %d, cannot re-resolve to %d", p.value, value)
	}
	return nil
}

// Resolved reports whether Resolve has ever been called.
func (p *Promise) Resolved() bool { return p.resolved }

// Value returns the resolved target. Callers must only read this once
// Builder.Finalize (or Arena.Unresolved) has confirmed p is
// resolved; reading an unresolved Promise returns the zero value.
func (p *Promise) Value() int { return p.value }

// Arena tracks every Promise handed out during one compile call so
// Finalize can confirm all of them were eventually resolved, without
// the compiler threading a separate bookkeeping list by hand.
type Arena struct {
	promises []*Promise
}

// NewArena creates an empty scratch allocator for one compile call.
func NewArena() *Arena { return &Arena{} }

// New allocates and tracks a fresh, unresolved Promise.
func (a *Arena) New() *Promise {
	p := &Promise{}
	a.promises = append(a.promises, p)
	return p
}

// Unresolved returns every promise in a that Resolve was never called
// on, in allocation order.
func (a *Arena) Unresolved() []*Promise {
	var out []*Promise
	for _, p := range a.promises {
		if !p.resolved {
			out = append(out, p)
		}
	}
	return out
}
