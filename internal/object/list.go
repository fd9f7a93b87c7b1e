package object

import (
	"strings"
	"unsafe"

	"noja/internal/heap"
)

// List is a dense, zero-indexed, growable sequence. Select and Insert
// both accept an Int key; Insert at index == Count appends, matching
// the PUSHLST/INSERT2 sequence the code generator emits for list literals
// and the general select/insert operators described for composite
// values.
type List struct {
	hdr   heap.Header
	Items []Object
}

func (l *List) Header() *heap.Header { return &l.hdr }

var ListType = heap.NewType("List", unsafe.Sizeof(List{}), heap.AtomicNone)

func init() {
	ListType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) {
		src := o.(*List)
		cp, err := NewList(h, len(src.Items))
		if err != nil {
			return nil, err
		}
		cp.Items = append(cp.Items, src.Items...)
		return cp, nil
	}
	ListType.Count = func(o heap.Object) (int, bool) { return len(o.(*List).Items), true }
	ListType.ToBool = func(o heap.Object) (bool, bool) { return len(o.(*List).Items) > 0, true }
	ListType.Select = func(o heap.Object, key heap.Object, h *heap.Heap) (heap.Object, bool, error) {
		l := o.(*List)
		idx, ok := asIndex(key, len(l.Items))
		if !ok {
			return nil, false, nil
		}
		return l.Items[idx], true, nil
	}
	ListType.Insert = func(o heap.Object, key, val heap.Object, h *heap.Heap) error {
		l := o.(*List)
		ik, ok := key.(*Int)
		if !ok {
			return nil
		}
		switch {
		case ik.Value == int64(len(l.Items)):
			if _, err := h.AllocRaw(int(unsafe.Sizeof(val))); err != nil {
				return err
			}
			l.Items = append(l.Items, val)
		case ik.Value >= 0 && ik.Value < int64(len(l.Items)):
			l.Items[ik.Value] = val
		}
		return nil
	}
	ListType.Print = func(o heap.Object) string {
		l := o.(*List)
		var sb strings.Builder
		sb.WriteByte('[')
		for i, it := range l.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(printObject(it))
		}
		sb.WriteByte(']')
		return sb.String()
	}
	ListType.Walk = func(o heap.Object, visit func(*heap.Object)) {
		l := o.(*List)
		for i := range l.Items {
			visit(&l.Items[i])
		}
	}
}

// NewList allocates an empty List with room for capHint items.
func NewList(h *heap.Heap, capHint int) (*List, error) {
	hdr, err := h.AllocTyped(ListType)
	if err != nil {
		return nil, err
	}
	var items []Object
	if capHint > 0 {
		items = make([]Object, 0, capHint)
	}
	return &List{hdr: hdr, Items: items}, nil
}

// asIndex normalizes an Object key to a valid slice index, supporting
// negative-from-end indices the way the select operator's list variant
// is specified to.
func asIndex(key heap.Object, n int) (int, bool) {
	ik, ok := key.(*Int)
	if !ok {
		return 0, false
	}
	i := ik.Value
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, false
	}
	return int(i), true
}

// printObject calls o's Print capability, or falls back to its type
// name if the type declares none (only TypeDescriptor itself).
func printObject(o heap.Object) string {
	t := o.Header().Type
	if t.Print != nil {
		return t.Print(o)
	}
	return "<" + t.Name + ">"
}
