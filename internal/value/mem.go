package value

import (
	"errors"
	"fmt"
)

// ErrForeignValue is returned when a value from another Mem is inserted
// into a list or map.
var ErrForeignValue = errors.New("value belongs to a different Mem")

// ErrDuplicateKey is returned by MapInsert for a key already present.
var ErrDuplicateKey = errors.New("duplicate map key")

// Mem is a value arena scoped to one lookup or initialisation.
//
// Not safe for concurrent use; like everything else in the engine it lives
// on the reactor goroutine.
type Mem struct {
	borrows  []*RefTarget
	released bool
}

// NewMem creates an empty arena.
func NewMem() *Mem {
	return &Mem{}
}

// NewString builds an owned string. The bytes are copied.
func (m *Mem) NewString(s string) Value {
	return Value{n: &node{mem: m, kind: KindString, data: []byte(s)}}
}

// NewStringBytes builds an owned string from b. The bytes are copied.
func (m *Mem) NewStringBytes(b []byte) Value {
	data := make([]byte, len(b))
	copy(data, b)
	return Value{n: &node{mem: m, kind: KindString, data: data}}
}

// NewBorrowed builds a string that points into target's buffer at
// [off, off+n) without copying. Takes exactly one reference on target,
// dropped by Release.
func (m *Mem) NewBorrowed(target *RefTarget, off, n int) (Value, error) {
	data := target.Data()
	if off < 0 || n < 0 || off+n > len(data) {
		return Value{}, fmt.Errorf("borrow [%d:%d] out of range of %d-byte buffer", off, off+n, len(data))
	}
	target.Ref()
	m.borrows = append(m.borrows, target)
	return Value{n: &node{mem: m, kind: KindString, data: data[off : off+n : off+n], borrowed: target, off: off}}, nil
}

// NewList builds an empty list with room for capacity elements.
func (m *Mem) NewList(capacity int) Value {
	return Value{n: &node{mem: m, kind: KindList, elems: make([]Value, 0, capacity)}}
}

// NewMap builds an empty map with room for capacity entries.
func (m *Mem) NewMap(capacity int) Value {
	return Value{n: &node{
		mem:   m,
		kind:  KindMap,
		keys:  make([]Value, 0, capacity),
		elems: make([]Value, 0, capacity),
	}}
}

// ListAppend appends elem to list. Both must have been built in m.
func (m *Mem) ListAppend(list, elem Value) error {
	if !list.IsList() {
		return fmt.Errorf("append to %s", list.Kind())
	}
	if list.n.mem != m || (elem.n != nil && elem.n.mem != m) {
		return ErrForeignValue
	}
	if elem.IsInvalid() {
		return fmt.Errorf("append invalid value")
	}
	list.n.elems = append(list.n.elems, elem)
	return nil
}

// MapInsert adds key -> val to mp. Keys must be unique.
func (m *Mem) MapInsert(mp, key, val Value) error {
	if !mp.IsMap() {
		return fmt.Errorf("insert into %s", mp.Kind())
	}
	if mp.n.mem != m || key.n == nil || key.n.mem != m || val.n == nil || val.n.mem != m {
		return ErrForeignValue
	}
	if _, ok := mp.mapGetValue(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	mp.n.keys = append(mp.n.keys, key)
	mp.n.elems = append(mp.n.elems, val)
	return nil
}

// NewStringList is a convenience for building a list of owned strings.
func (m *Mem) NewStringList(items ...string) Value {
	list := m.NewList(len(items))
	for _, s := range items {
		list.n.elems = append(list.n.elems, m.NewString(s))
	}
	return list
}

// Copy deep-copies v into m. Borrowed strings stay borrowed, taking a new
// reference owned by m.
func (m *Mem) Copy(v Value) (Value, error) {
	switch v.Kind() {
	case KindInvalid:
		return Value{}, nil
	case KindString:
		if t := v.n.borrowed; t != nil {
			return m.NewBorrowed(t, v.n.off, len(v.n.data))
		}
		return m.NewStringBytes(v.n.data), nil
	case KindList:
		out := m.NewList(len(v.n.elems))
		for i, e := range v.n.elems {
			c, err := m.Copy(e)
			if err != nil {
				return Value{}, fmt.Errorf("list[%d]: %w", i, err)
			}
			out.n.elems = append(out.n.elems, c)
		}
		return out, nil
	case KindMap:
		out := m.NewMap(len(v.n.keys))
		for i := range v.n.keys {
			k, err := m.Copy(v.n.keys[i])
			if err != nil {
				return Value{}, err
			}
			val, err := m.Copy(v.n.elems[i])
			if err != nil {
				return Value{}, err
			}
			out.n.keys = append(out.n.keys, k)
			out.n.elems = append(out.n.elems, val)
		}
		return out, nil
	}
	return Value{}, fmt.Errorf("copy of unknown kind %d", v.Kind())
}

// Release drops every reference taken by borrowed strings. Idempotent.
func (m *Mem) Release() {
	if m.released {
		return
	}
	m.released = true
	for i := len(m.borrows) - 1; i >= 0; i-- {
		m.borrows[i].Deref()
		m.borrows[i] = nil
	}
	m.borrows = nil
}

// Released reports whether Release has been called.
func (m *Mem) Released() bool {
	return m.released
}
