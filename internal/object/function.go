package object

import (
	"fmt"
	"unsafe"

	"noja/internal/heap"
)

// Scope is the minimal lookup surface a Function's captured lexical
// environment must provide. It exists so this package never has to
// import the closure package (which itself imports object for Map),
// avoiding an import cycle; package closure's Closure type satisfies
// this interface.
type Scope interface {
	Select(key Object) (Object, error)

	// Walk exposes every heap object the scope chain reaches — its own
	// variable bindings and every enclosing scope's — the same way
	// heap.TypeDescriptor.Walk exposes an object's outgoing references,
	// so a Function's captured Scope is visible to heap.Heap.Trace
	// instead of looking like a dead end.
	Walk(visit func(*Object))
}

// Function is a compiled function value: the address of its first
// instruction in the Executable it belongs to, its declared arity, and
// the lexical Scope captured at the point PUSHFUN created it. Exec is
// opaque here (the executable type lives in the codegen package, which
// imports this one) and is type-asserted by whatever evaluates code.
type Function struct {
	hdr heap.Header

	Address int
	Arity   int
	Scope   Scope
	Exec    interface{}
}

func (f *Function) Header() *heap.Header { return &f.hdr }

var FunctionType = heap.NewType("Function", unsafe.Sizeof(Function{}), heap.AtomicNone)

func init() {
	FunctionType.ToBool = func(o heap.Object) (bool, bool) { return true, true }
	FunctionType.Print = func(o heap.Object) string {
		f := o.(*Function)
		return fmt.Sprintf("<function/%d @%d>", f.Arity, f.Address)
	}
	FunctionType.Walk = func(o heap.Object, visit func(*heap.Object)) {
		f := o.(*Function)
		if f.Scope != nil {
			f.Scope.Walk(visit)
		}
	}
}

// NewFunction allocates a Function closing over scope.
func NewFunction(h *heap.Heap, address, arity int, scope Scope, exec interface{}) (*Function, error) {
	hdr, err := h.AllocTyped(FunctionType)
	if err != nil {
		return nil, err
	}
	return &Function{hdr: hdr, Address: address, Arity: arity, Scope: scope, Exec: exec}, nil
}

// NativeFunction is a function implemented in Go and exposed to
// compiled code under a fixed name, e.g. a prelude builtin. Arity of
// -1 means variadic: Fn receives however many arguments CALL supplied.
type NativeFunction struct {
	hdr heap.Header

	Name  string
	Arity int
	Fn    func(h *heap.Heap, args []Object) (Object, error)
}

func (n *NativeFunction) Header() *heap.Header { return &n.hdr }

var NativeFunctionType = heap.NewType("NativeFunction", unsafe.Sizeof(NativeFunction{}), heap.AtomicNone)

func init() {
	NativeFunctionType.ToBool = func(o heap.Object) (bool, bool) { return true, true }
	NativeFunctionType.Print = func(o heap.Object) string {
		return fmt.Sprintf("<native %s>", o.(*NativeFunction).Name)
	}
	// A NativeFunction captures no Scope and no other heap references
	// (Fn closes over plain Go values set up once at prelude-registration
	// time), so its Walk is a declared no-op rather than an omission.
	NativeFunctionType.Walk = func(o heap.Object, visit func(*heap.Object)) {}
}

// NewNativeFunction allocates a NativeFunction. Native functions are
// typically created once at prelude-setup time and reused across
// calls, so callers usually keep the returned pointer rather than
// re-allocating per call.
func NewNativeFunction(h *heap.Heap, name string, arity int, fn func(h *heap.Heap, args []Object) (Object, error)) (*NativeFunction, error) {
	hdr, err := h.AllocTyped(NativeFunctionType)
	if err != nil {
		return nil, err
	}
	return &NativeFunction{hdr: hdr, Name: name, Arity: arity, Fn: fn}, nil
}
