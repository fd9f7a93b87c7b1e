package object

import (
	"strings"
	"unsafe"

	"noja/internal/errors"
	"noja/internal/heap"
)

// perturbShift is CPython's PERTURB_SHIFT: each failed probe folds the
// remaining high bits of the perturbed hash back into the stride so
// that keys colliding on the low bits still fan out across the table.
const perturbShift = 5

// initialMapperSize is the smallest power-of-two slot table a fresh
// Map is given; capacity() of 8 is floor(8*2/3) = 5 live entries
// before the first growth.
const initialMapperSize = 8

// Map is an open-addressed hash table over three parallel arrays:
// mapper (slot -> dense index, or -1 for empty), keys, and vals. keys
// and vals are append-only and insertion-ordered, so iterating them
// directly yields entries in insertion order regardless of how the
// mapper has been reshuffled by growth.
type Map struct {
	hdr heap.Header

	mapper     []int
	mapperSize int // always a power of two; mask is mapperSize-1
	keys       []Object
	vals       []Object
}

func (m *Map) Header() *heap.Header { return &m.hdr }

var MapType = heap.NewType("Map", unsafe.Sizeof(Map{}), heap.AtomicNone)

func init() {
	MapType.Count = func(o heap.Object) (int, bool) { return len(o.(*Map).keys), true }
	MapType.ToBool = func(o heap.Object) (bool, bool) { return len(o.(*Map).keys) > 0, true }
	MapType.Copy = func(o heap.Object, h *heap.Heap) (heap.Object, error) {
		src := o.(*Map)
		cp, err := NewMap(h, len(src.keys))
		if err != nil {
			return nil, err
		}
		for i := range src.keys {
			if err := cp.Set(h, src.keys[i], src.vals[i]); err != nil {
				return nil, err
			}
		}
		return cp, nil
	}
	MapType.Select = func(o heap.Object, key heap.Object, h *heap.Heap) (heap.Object, bool, error) {
		m := o.(*Map)
		idx, err := m.find(key)
		if err != nil {
			return nil, false, err
		}
		if idx < 0 {
			return nil, false, nil
		}
		return m.vals[idx], true, nil
	}
	MapType.Insert = func(o heap.Object, key, val heap.Object, h *heap.Heap) error {
		return o.(*Map).Set(h, key, val)
	}
	MapType.Print = func(o heap.Object) string {
		m := o.(*Map)
		var sb strings.Builder
		sb.WriteByte('{')
		for i := range m.keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(printObject(m.keys[i]))
			sb.WriteString(": ")
			sb.WriteString(printObject(m.vals[i]))
		}
		sb.WriteByte('}')
		return sb.String()
	}
	MapType.Walk = func(o heap.Object, visit func(*heap.Object)) {
		m := o.(*Map)
		for i := range m.keys {
			visit(&m.keys[i])
			visit(&m.vals[i])
		}
	}
}

// NewMap allocates an empty Map. capHint is advisory only; the mapper
// always starts at initialMapperSize regardless, matching the fixed
// starting capacity described for the data model.
func NewMap(h *heap.Heap, capHint int) (*Map, error) {
	hdr, err := h.AllocTyped(MapType)
	if err != nil {
		return nil, err
	}
	mapper, err := newMapper(h, initialMapperSize)
	if err != nil {
		return nil, err
	}
	m := &Map{hdr: hdr, mapper: mapper, mapperSize: initialMapperSize}
	if capHint > 0 {
		m.keys = make([]Object, 0, capHint)
		m.vals = make([]Object, 0, capHint)
	}
	return m, nil
}

func newMapper(h *heap.Heap, size int) ([]int, error) {
	if _, err := h.AllocRaw(size * int(unsafe.Sizeof(int(0)))); err != nil {
		return nil, err
	}
	mapper := make([]int, size)
	for i := range mapper {
		mapper[i] = -1
	}
	return mapper, nil
}

// capacity returns the live-entry ceiling before the mapper must grow,
// floor(mapperSize*2/3) per the data model's fixed load factor.
func (m *Map) capacity() int { return m.mapperSize * 2 / 3 }

// probe walks the perturbed-linear sequence starting at hash, calling
// visit for each candidate slot index until visit returns true (stop).
// It has no other exit: it ends only because the load factor invariant
// keeps at least one mapper slot empty.
func probe(hash uint64, mapperSize int, visit func(slot int) bool) {
	mask := uint64(mapperSize - 1)
	perturb := hash
	i := hash & mask
	for {
		if visit(int(i)) {
			return
		}
		perturb >>= perturbShift
		i = (i*5 + perturb + 1) & mask
	}
}

// find returns the dense index of key's entry, or -1 if key is absent.
// An empty map returns -1 immediately without hashing the key at all.
func (m *Map) find(key heap.Object) (int, error) {
	if len(m.keys) == 0 {
		return -1, nil
	}
	kt := key.Header().Type
	if kt.Hash == nil {
		return -1, errors.New(errors.UnhashableKey, "key of type %s cannot be hashed", kt.Name)
	}
	if kt.Compare == nil {
		return -1, errors.New(errors.IncomparableKey, "key of type %s cannot be compared", kt.Name)
	}
	hash, _ := kt.Hash(key)

	found := -1
	probe(hash, m.mapperSize, func(slot int) bool {
		idx := m.mapper[slot]
		if idx == -1 {
			return true // empty slot reached: key is not present
		}
		existing := m.keys[idx]
		if existing.Header().Type == kt && kt.Compare(existing, key) {
			found = idx
			return true
		}
		return false
	})
	return found, nil
}

// Set inserts or overwrites key -> val. Growth happens before probing
// whenever the next insert could exceed capacity, so a find() against
// the final table size never has to account for growth mid-probe.
func (m *Map) Set(h *heap.Heap, key, val heap.Object) error {
	idx, err := m.find(key)
	if err != nil {
		return err
	}
	if idx >= 0 {
		m.vals[idx] = val
		return nil
	}

	if len(m.keys)+1 > m.capacity() {
		if err := m.grow(h); err != nil {
			return err
		}
	}

	kt := key.Header().Type
	if kt.Hash == nil {
		return errors.New(errors.UnhashableKey, "key of type %s cannot be hashed", kt.Name)
	}
	keyCopy, err := kt.Copy(key, h)
	if err != nil {
		return err
	}

	dense := len(m.keys)
	m.keys = append(m.keys, keyCopy)
	m.vals = append(m.vals, val)

	hash, _ := kt.Hash(keyCopy)
	probe(hash, m.mapperSize, func(slot int) bool {
		if m.mapper[slot] == -1 {
			m.mapper[slot] = dense
			return true
		}
		return false
	})
	return nil
}

// grow doubles mapperSize and rebuilds the mapper array from the
// still-insertion-ordered keys array, so growth is deterministic and
// never disturbs iteration order.
func (m *Map) grow(h *heap.Heap) error {
	newSize := m.mapperSize * 2
	mapper, err := newMapper(h, newSize)
	if err != nil {
		return err
	}
	m.mapper = mapper
	m.mapperSize = newSize

	for i, k := range m.keys {
		hash, _ := k.Header().Type.Hash(k)
		probe(hash, m.mapperSize, func(slot int) bool {
			if m.mapper[slot] == -1 {
				m.mapper[slot] = i
				return true
			}
			return false
		})
	}
	return nil
}

// Keys returns the insertion-ordered key slice, for iteration.
func (m *Map) Keys() []Object { return m.keys }

// Vals returns the insertion-ordered value slice, parallel to Keys.
func (m *Map) Vals() []Object { return m.vals }
