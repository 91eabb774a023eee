package value

import (
	"bytes"
	"fmt"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindList
	KindMap
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a reference to a node inside a Mem. The zero Value is Invalid.
type Value struct {
	n *node
}

type node struct {
	mem  *Mem
	kind Kind

	// KindString
	data     []byte
	borrowed *RefTarget
	off      int

	// KindList, and map values for KindMap
	elems []Value
	// KindMap keys, parallel to elems
	keys []Value
}

// Invalid returns the Invalid value.
func Invalid() Value {
	return Value{}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	if v.n == nil {
		return KindInvalid
	}
	return v.n.kind
}

// IsInvalid reports whether v is the Invalid sentinel.
func (v Value) IsInvalid() bool { return v.Kind() == KindInvalid }

// IsString reports whether v is a string.
func (v Value) IsString() bool { return v.Kind() == KindString }

// IsList reports whether v is a list.
func (v Value) IsList() bool { return v.Kind() == KindList }

// IsMap reports whether v is a map.
func (v Value) IsMap() bool { return v.Kind() == KindMap }

// IsBorrowed reports whether v is a string backed by a RefTarget.
func (v Value) IsBorrowed() bool {
	return v.IsString() && v.n.borrowed != nil
}

// Mem returns the arena v was built in, or nil for Invalid.
func (v Value) Mem() *Mem {
	if v.n == nil {
		return nil
	}
	return v.n.mem
}

// Bytes returns the string payload. The slice must not be modified.
// Returns nil for non-strings.
func (v Value) Bytes() []byte {
	if !v.IsString() {
		return nil
	}
	return v.n.data
}

// String returns the string payload, or a debug rendering for other kinds.
func (v Value) String() string {
	switch v.Kind() {
	case KindString:
		return string(v.n.data)
	case KindInvalid:
		return "<invalid>"
	default:
		b, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("<%s: %v>", v.Kind(), err)
		}
		return string(b)
	}
}

// StringEquals reports whether v is a string equal to s.
func (v Value) StringEquals(s string) bool {
	return v.IsString() && string(v.n.data) == s
}

// Len returns the byte length of a string, or the element count of a list
// or map. Returns 0 for Invalid.
func (v Value) Len() int {
	switch v.Kind() {
	case KindString:
		return len(v.n.data)
	case KindList, KindMap:
		return len(v.n.elems)
	default:
		return 0
	}
}

// Index returns the i-th list element. Panics if v is not a list or i is
// out of range.
func (v Value) Index(i int) Value {
	if !v.IsList() {
		panic(fmt.Sprintf("value: Index on %s", v.Kind()))
	}
	return v.n.elems[i]
}

// Elems returns the list elements. The slice must not be modified.
func (v Value) Elems() []Value {
	if !v.IsList() {
		return nil
	}
	return v.n.elems
}

// ListRead returns the elements of v if it is a list of exactly n elements.
func (v Value) ListRead(n int) ([]Value, bool) {
	if !v.IsList() || len(v.n.elems) != n {
		return nil, false
	}
	return v.n.elems, true
}

// MapEntries calls fn for each key/value pair in insertion order.
// Iteration stops if fn returns false.
func (v Value) MapEntries(fn func(k, val Value) bool) {
	if !v.IsMap() {
		return
	}
	for i := range v.n.keys {
		if !fn(v.n.keys[i], v.n.elems[i]) {
			return
		}
	}
}

// MapGet looks up a string key in a map.
func (v Value) MapGet(key string) (Value, bool) {
	if !v.IsMap() {
		return Value{}, false
	}
	for i, k := range v.n.keys {
		if k.StringEquals(key) {
			return v.n.elems[i], true
		}
	}
	return Value{}, false
}

// Equal reports deep equality. Borrowed and owned strings with the same
// bytes are equal.
func (v Value) Equal(o Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindInvalid:
		return true
	case KindString:
		return bytes.Equal(v.n.data, o.n.data)
	case KindList:
		if len(v.n.elems) != len(o.n.elems) {
			return false
		}
		for i := range v.n.elems {
			if !v.n.elems[i].Equal(o.n.elems[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.n.keys) != len(o.n.keys) {
			return false
		}
		for i, k := range v.n.keys {
			ov, ok := o.mapGetValue(k)
			if !ok || !v.n.elems[i].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) mapGetValue(key Value) (Value, bool) {
	for i, k := range v.n.keys {
		if k.Equal(key) {
			return v.n.elems[i], true
		}
	}
	return Value{}, false
}
