package object

import (
	"testing"

	"github.com/stretchr/testify/require"

	"noja/internal/heap"
)

type stubScope struct {
	vals  map[string]Object
	walks int
}

func (s *stubScope) Select(key Object) (Object, error) {
	if v, ok := s.vals[key.(*Str).Value]; ok {
		return v, nil
	}
	return NoneValue, nil
}

func (s *stubScope) Walk(visit func(*Object)) {
	s.walks++
	for _, v := range s.vals {
		ref := v
		visit(&ref)
	}
}

func TestFunctionCarriesAddressArityAndScope(t *testing.T) {
	h := heap.New(0)
	scope := &stubScope{vals: map[string]Object{}}
	fn, err := NewFunction(h, 42, 2, scope, nil)
	require.NoError(t, err)
	require.Equal(t, 42, fn.Address)
	require.Equal(t, 2, fn.Arity)
	require.Same(t, scope, fn.Scope.(*stubScope))

	ok, _ := FunctionType.ToBool(fn)
	require.True(t, ok)
}

func TestFunctionTypeWalkDelegatesToScope(t *testing.T) {
	h := heap.New(0)
	bound, _ := NewInt(h, 7)
	scope := &stubScope{vals: map[string]Object{"x": bound}}
	fn, err := NewFunction(h, 0, 0, scope, nil)
	require.NoError(t, err)

	var visited []Object
	FunctionType.Walk(fn, func(ref *heap.Object) { visited = append(visited, *ref) })

	require.Equal(t, 1, scope.walks)
	require.Contains(t, visited, bound)
}

func TestNativeFunctionTypeWalkVisitsNothing(t *testing.T) {
	h := heap.New(0)
	nf, err := NewNativeFunction(h, "noop", 0, func(h *heap.Heap, args []Object) (Object, error) {
		return NoneValue, nil
	})
	require.NoError(t, err)

	calls := 0
	NativeFunctionType.Walk(nf, func(ref *heap.Object) { calls++ })
	require.Equal(t, 0, calls)
}

func TestNativeFunctionInvokesGoCallback(t *testing.T) {
	h := heap.New(0)
	called := false
	nf, err := NewNativeFunction(h, "double", 1, func(h *heap.Heap, args []Object) (Object, error) {
		called = true
		return NewInt(h, args[0].(*Int).Value*2)
	})
	require.NoError(t, err)

	arg, _ := NewInt(h, 21)
	result, err := nf.Fn(h, []Object{arg})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, int64(42), result.(*Int).Value)
}
