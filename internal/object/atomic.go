// Package object implements the runtime value representation: the five
// atomic variants (int, float, string, bool, none), the composite List
// and Map, and the callable Function/NativeFunction pair. Every
// concrete type satisfies heap.Object and carries a package-level
// *heap.TypeDescriptor wiring up the capability table described in the
// data model: hash, compare, copy, select, insert, count, the to_*
// coercions, print, and walk.
package object

import (
	"fmt"
	"hash/fnv"
	"unsafe"

	"noja/internal/heap"
)

// Object is the value type the rest of the core operates on: anything
// a Map can hold as a key or value, a List can hold as an element, or
// an instruction operand can reference.
type Object = heap.Object

// Int is a 64-bit signed integer.
type Int struct {
	hdr   heap.Header
	Value int64
}

func (i *Int) Header() *heap.Header { return &i.hdr }

var IntType = heap.NewType("Int", unsafe.Sizeof(Int{}), heap.AtomicInt)

func init() {
	IntType.Hash = func(o heap.Object) (uint64, bool) {
		v := o.(*Int).Value
		return fnvHash64(uint64(v)), true
	}
	IntType.Compare = func(a, b heap.Object) bool { return a.(*Int).Value == b.(*Int).Value }
	// Integers are immutable; eliding the copy on map-key insertion is
	// safe per the map key-copy design note.
	IntType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) { return o, nil }
	IntType.ToBool = func(o heap.Object) (bool, bool) { return o.(*Int).Value != 0, true }
	IntType.ToInt = func(o heap.Object) (int64, bool) { return o.(*Int).Value, true }
	IntType.ToFloat = func(o heap.Object) (float64, bool) { return float64(o.(*Int).Value), true }
	IntType.Print = func(o heap.Object) string { return fmt.Sprintf("%d", o.(*Int).Value) }
}

// NewInt allocates a new Int against h.
func NewInt(h *heap.Heap, v int64) (*Int, error) {
	hdr, err := h.AllocTyped(IntType)
	if err != nil {
		return nil, err
	}
	return &Int{hdr: hdr, Value: v}, nil
}

// Float is an IEEE-754 double.
type Float struct {
	hdr   heap.Header
	Value float64
}

func (f *Float) Header() *heap.Header { return &f.hdr }

var FloatType = heap.NewType("Float", unsafe.Sizeof(Float{}), heap.AtomicFloat)

func init() {
	// Floats have no Hash: using a float as a map key is unsound under
	// rounding and not supported, matching the closed capability set.
	FloatType.Compare = func(a, b heap.Object) bool { return a.(*Float).Value == b.(*Float).Value }
	FloatType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) { return o, nil }
	FloatType.ToBool = func(o heap.Object) (bool, bool) { return o.(*Float).Value != 0, true }
	FloatType.ToInt = func(o heap.Object) (int64, bool) { return int64(o.(*Float).Value), true }
	FloatType.ToFloat = func(o heap.Object) (float64, bool) { return o.(*Float).Value, true }
	FloatType.Print = func(o heap.Object) string { return fmt.Sprintf("%g", o.(*Float).Value) }
}

// NewFloat allocates a new Float against h.
func NewFloat(h *heap.Heap, v float64) (*Float, error) {
	hdr, err := h.AllocTyped(FloatType)
	if err != nil {
		return nil, err
	}
	return &Float{hdr: hdr, Value: v}, nil
}

// Str is an immutable, length-prefixed (by Go's native string header)
// UTF-8 string, hashable via an FNV-1a digest of its bytes.
type Str struct {
	hdr   heap.Header
	Value string
}

func (s *Str) Header() *heap.Header { return &s.hdr }

var StrType = heap.NewType("String", unsafe.Sizeof(Str{}), heap.AtomicString)

func init() {
	StrType.Hash = func(o heap.Object) (uint64, bool) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(o.(*Str).Value))
		return h.Sum64(), true
	}
	StrType.Compare = func(a, b heap.Object) bool { return a.(*Str).Value == b.(*Str).Value }
	StrType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) { return o, nil }
	StrType.ToBool = func(o heap.Object) (bool, bool) { return o.(*Str).Value != "", true }
	StrType.Count = func(o heap.Object) (int, bool) { return len(o.(*Str).Value), true }
	StrType.Print = func(o heap.Object) string { return o.(*Str).Value }
}

// NewStr allocates a new Str against h.
func NewStr(h *heap.Heap, v string) (*Str, error) {
	hdr, err := h.AllocTyped(StrType)
	if err != nil {
		return nil, err
	}
	return &Str{hdr: hdr, Value: v}, nil
}

// Bool wraps the two static boolean singletons.
type Bool struct {
	hdr   heap.Header
	Value bool
}

func (b *Bool) Header() *heap.Header { return &b.hdr }

var BoolType = heap.NewType("Bool", unsafe.Sizeof(Bool{}), heap.AtomicBool)

// True and False are the process-wide static singletons; to_bool and
// any identity check (e.g. `x == true`) may compare pointers directly.
var (
	True  = &Bool{hdr: heap.Header{Type: BoolType, Flags: heap.FlagStatic}, Value: true}
	False = &Bool{hdr: heap.Header{Type: BoolType, Flags: heap.FlagStatic}, Value: false}
)

func init() {
	BoolType.Hash = func(o heap.Object) (uint64, bool) {
		if o.(*Bool).Value {
			return 1, true
		}
		return 0, true
	}
	BoolType.Compare = func(a, b heap.Object) bool { return a.(*Bool).Value == b.(*Bool).Value }
	BoolType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) { return o, nil }
	BoolType.ToBool = func(o heap.Object) (bool, bool) { return o.(*Bool).Value, true }
	BoolType.Print = func(o heap.Object) string {
		if o.(*Bool).Value {
			return "true"
		}
		return "false"
	}
}

// FromBool returns the static True or False singleton for v.
func FromBool(v bool) *Bool {
	if v {
		return True
	}
	return False
}

// None is the static singleton absent-value.
type None struct {
	hdr heap.Header
}

func (n *None) Header() *heap.Header { return &n.hdr }

var NoneType = heap.NewType("None", unsafe.Sizeof(None{}), heap.AtomicNone)

// NoneValue is the single static none singleton.
var NoneValue = &None{hdr: heap.Header{Type: NoneType, Flags: heap.FlagStatic}}

func init() {
	NoneType.Hash = func(o heap.Object) (uint64, bool) { return 0, true }
	NoneType.Compare = func(a, b heap.Object) bool { return true }
	NoneType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) { return o, nil }
	NoneType.ToBool = func(o heap.Object) (bool, bool) { return false, true }
	NoneType.Print = func(o heap.Object) string { return "none" }
}

func fnvHash64(v uint64) uint64 {
	h := fnv.New64a()
	b := [8]byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
	_, _ = h.Write(b[:])
	return h.Sum64()
}
