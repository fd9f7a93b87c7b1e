// Package heap implements the typed and raw allocator the object model
// and code generator allocate against.
//
// The heap tracks bytes in use against a capacity, stamps every
// allocation with its Type and clears its Flags, and can trace a root
// set by invoking each object's Type.Walk. It does not collect: objects
// live until the Heap itself is discarded, matching the non-moving,
// non-collecting heap described for the source implementation. A
// garbage-collected implementation could substitute a moving Trace
// without changing any caller, since Walk already exposes writable
// reference slots.
package heap

import (
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"noja/internal/errors"
)

// Flags holds per-instance bits alongside an object's Type pointer.
type Flags uint8

const (
	// FlagStatic marks an object as not heap-owned: it must never be
	// freed, relocated, or mutated through the heap's tracing machinery.
	// True, False, None, and every Type descriptor are static.
	FlagStatic Flags = 1 << iota
)

// Header is embedded in every heap-managed object. It is deliberately a
// plain struct, not an interface, so concrete object types pay only for
// a type pointer and a flags byte.
type Header struct {
	Type  *TypeDescriptor
	Flags Flags
}

// IsStatic reports whether the object must not be freed or relocated.
func (h *Header) IsStatic() bool { return h.Flags&FlagStatic != 0 }

// Object is implemented by every value the heap can allocate or trace.
type Object interface {
	Header() *Header
}

// AtomicKind classifies a Type's primitive representation, used by the
// interpreter to fast-path coercions without a capability-table call.
type AtomicKind uint8

const (
	// AtomicNone marks composite types (lists, maps, functions, types).
	AtomicNone AtomicKind = iota
	AtomicBool
	AtomicInt
	AtomicFloat
	AtomicString
)

// TypeDescriptor is itself an Object: its Header().Type is TypeOfTypes,
// the process-wide "type of types" singleton. It carries a fixed,
// closed capability table; a nil entry means the capability is absent
// (e.g. Hash == nil means values of this type cannot be used as map
// keys).
type TypeDescriptor struct {
	hdr Header

	Name     string
	Size     uintptr
	Atomic   AtomicKind
	Hash     func(o Object) (uint64, bool)
	Compare  func(a, b Object) bool
	Copy     func(o Object, h *Heap) (Object, error)
	Select   func(o Object, key Object, h *Heap) (Object, bool, error)
	Insert   func(o Object, key, val Object, h *Heap) error
	Count    func(o Object) (int, bool)
	ToBool   func(o Object) (bool, bool)
	ToInt    func(o Object) (int64, bool)
	ToFloat  func(o Object) (float64, bool)
	Print    func(o Object) string
	Walk     func(o Object, visit func(*Object))
}

// Header implements Object.
func (t *TypeDescriptor) Header() *Header { return &t.hdr }

// TypeOfTypes is the static singleton every TypeDescriptor, including
// itself, points to as its own type.
var TypeOfTypes = &TypeDescriptor{Name: "Type", Atomic: AtomicNone}

func init() {
	TypeOfTypes.hdr.Type = TypeOfTypes
	TypeOfTypes.hdr.Flags = FlagStatic
}

// NewType registers a fresh, static TypeDescriptor. Concrete object
// packages call this once per variant at package init time.
func NewType(name string, size uintptr, atomic AtomicKind) *TypeDescriptor {
	t := &TypeDescriptor{Name: name, Size: size, Atomic: atomic}
	t.hdr.Type = TypeOfTypes
	t.hdr.Flags = FlagStatic
	return t
}

// Heap is a bump-accounted allocator: it does not itself hold object
// storage (Go's runtime owns that), but it enforces a capacity limit
// and produces deterministic OOM failures once exhausted, the way the
// source's arena-style heap does.
type Heap struct {
	id       uuid.UUID
	limit    uintptr
	used     uintptr
	allocs   int
}

// New creates a Heap with the given byte capacity. A limit of 0 means
// unlimited, useful for tests that don't exercise OOM paths.
func New(limit uintptr) *Heap {
	return &Heap{id: uuid.New(), limit: limit}
}

// ID uniquely identifies this heap instance for diagnostics when more
// than one heap is alive in a process (e.g. one per compile call).
func (h *Heap) ID() uuid.UUID { return h.id }

// Used returns the number of bytes currently accounted for.
func (h *Heap) Used() uintptr { return h.used }

// Allocs returns the number of successful typed/raw allocations.
func (h *Heap) Allocs() int { return h.allocs }

// AllocTyped accounts for size bytes against t and returns a Header
// stamped with t and zeroed flags, or an OOM Report if the heap is
// exhausted. Concrete object constructors (object.NewInt, and so on)
// embed the returned Header in the struct they build and return.
func (h *Heap) AllocTyped(t *TypeDescriptor) (Header, error) {
	if err := h.reserve(t.Size); err != nil {
		return Header{}, err
	}
	return Header{Type: t}, nil
}

// AllocRaw accounts for n bytes of untyped storage (a Map's mapper,
// keys, or vals arrays growing) and returns a zeroed slice, or an OOM
// Report if the heap is exhausted.
func (h *Heap) AllocRaw(n int) ([]byte, error) {
	if err := h.reserve(uintptr(n)); err != nil {
		return nil, err
	}
	return make([]byte, n), nil
}

func (h *Heap) reserve(size uintptr) error {
	if h.limit != 0 && h.used+size > h.limit {
		return errors.New(errors.OOM,
			"heap %s: requested %s, %s of %s already in use",
			h.id, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(h.used)), humanize.Bytes(uint64(h.limit)))
	}
	h.used += size
	h.allocs++
	return nil
}

// Trace walks every object reachable from roots via each object's
// Type.Walk, visiting each reachable object exactly once. It returns
// the objects in visitation order, which a moving collector would use
// to relocate storage and a non-collecting implementation (ours) uses
// for leak audits: anything in the returned set is live, and it is a
// bug for the heap's accounted bytes to imply more objects exist than
// Trace can reach from the declared roots.
func (h *Heap) Trace(roots []Object) []Object {
	seen := make(map[Object]bool, len(roots))
	var order []Object

	var visit func(o Object)
	visit = func(o Object) {
		if o == nil || seen[o] {
			return
		}
		seen[o] = true
		order = append(order, o)
		walk := o.Header().Type.Walk
		if walk == nil {
			return
		}
		walk(o, func(ref *Object) {
			if ref != nil && *ref != nil {
				visit(*ref)
			}
		})
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}
