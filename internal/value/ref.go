package value

import (
	"fmt"
	"sync/atomic"
)

// RefTarget is a reference-counted owner of a byte buffer that borrowed
// strings point into.
//
// The owner starts holding one reference. Every borrowed Value adds one
// and its Mem drops it on Release. The release callback runs exactly once,
// when the count reaches zero; the buffer is not touched after that.
type RefTarget struct {
	count    atomic.Int64
	data     []byte
	release  func()
	released atomic.Bool
}

// NewRefTarget wraps data with an initial count of 1 held by the caller.
// release may be nil.
func NewRefTarget(data []byte, release func()) *RefTarget {
	t := &RefTarget{data: data, release: release}
	t.count.Store(1)
	return t
}

// Ref takes a reference. Panics if the target was already released.
func (t *RefTarget) Ref() {
	if t.released.Load() {
		panic("value: Ref on released RefTarget")
	}
	t.count.Add(1)
}

// Deref drops a reference, releasing the buffer when the count hits zero.
func (t *RefTarget) Deref() {
	n := t.count.Add(-1)
	switch {
	case n == 0:
		t.released.Store(true)
		t.data = nil
		if t.release != nil {
			t.release()
		}
	case n < 0:
		panic(fmt.Sprintf("value: RefTarget count went negative (%d)", n))
	}
}

// Count returns the current reference count.
func (t *RefTarget) Count() int64 {
	return t.count.Load()
}

// Released reports whether the buffer has been released.
func (t *RefTarget) Released() bool {
	return t.released.Load()
}

// Data returns the buffer. Only valid while Count() > 0.
func (t *RefTarget) Data() []byte {
	return t.data
}
