package engine

import (
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// maxDigDepth bounds how many empty-name hops resolution follows. Alias
// chains longer than this, or alias cycles, resolve to nothing.
const maxDigDepth = 64

// Object is something a name resolves to: a statement, a special object of
// a process, or a child object exposed by either.
//
// Objects are transient. Resolve them, use them, drop them; do not keep one
// across reactor jobs, since the statement behind it may be torn down.
type Object struct {
	// Type selects method modules ("<type>::<method>"). strtab.Invalid means
	// the object has no methods.
	Type strtab.ID

	// MethodUser is handed to method statements as NewParams.MethodUser.
	MethodUser any

	getVar func(name strtab.ID, mem *value.Mem) (value.Value, bool)
	getObj func(name strtab.ID) (Object, bool)
	valid  bool
}

// NewObject builds an object from getter functions. Either may be nil.
func NewObject(
	typ strtab.ID,
	methodUser any,
	getVar func(name strtab.ID, mem *value.Mem) (value.Value, bool),
	getObj func(name strtab.ID) (Object, bool),
) Object {
	return Object{
		Type:       typ,
		MethodUser: methodUser,
		getVar:     getVar,
		getObj:     getObj,
		valid:      true,
	}
}

// IsValid reports whether the object was built (the zero Object is not).
func (o Object) IsValid() bool {
	return o.valid
}

// GetVar queries a variable of the object.
func (o Object) GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool) {
	if o.getVar == nil {
		return value.Invalid(), false
	}
	return o.getVar(name, mem)
}

// GetObj queries a child object.
func (o Object) GetObj(name strtab.ID) (Object, bool) {
	if o.getObj == nil {
		return Object{}, false
	}
	return o.getObj(name)
}

// Dig follows empty-name child objects until none is left, so an alias of
// an alias resolves to the final target.
func Dig(o Object) Object {
	for i := 0; i < maxDigDepth; i++ {
		next, ok := o.GetObj(strtab.Empty)
		if !ok {
			return o
		}
		o = next
	}
	return Object{}
}

// ResolveObjExpr walks names starting at o, digging after each step.
func ResolveObjExpr(o Object, names []strtab.ID) (Object, bool) {
	o = Dig(o)
	if !o.IsValid() {
		return Object{}, false
	}
	for _, name := range names {
		next, ok := o.GetObj(name)
		if !ok {
			return Object{}, false
		}
		o = Dig(next)
		if !o.IsValid() {
			return Object{}, false
		}
	}
	return o, true
}

// ResolveVarExpr walks names starting at o. The last name may be a
// variable instead of an object; when every name is consumed as an object,
// the final object's empty-name variable is returned.
func ResolveVarExpr(o Object, names []strtab.ID, mem *value.Mem) (value.Value, bool) {
	o = Dig(o)
	if !o.IsValid() {
		return value.Invalid(), false
	}
	for i, name := range names {
		next, ok := o.GetObj(name)
		if !ok {
			if i == len(names)-1 {
				return o.GetVar(name, mem)
			}
			return value.Invalid(), false
		}
		o = Dig(next)
		if !o.IsValid() {
			return value.Invalid(), false
		}
	}
	return o.GetVar(strtab.Empty, mem)
}
