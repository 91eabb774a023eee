// Package value provides the data model for statement inputs and outputs.
//
// A Value is one of:
//   - String: an immutable byte sequence, either owned by the Mem that built
//     it or borrowed from an external RefTarget
//   - List: an ordered sequence of values
//   - Map: an insertion-ordered set of key/value pairs with unique keys
//   - Invalid: the explicit "no value" sentinel (the zero Value)
//
// Values are built inside a short-lived arena (Mem) tied to one lookup or
// statement initialisation. Callers copy out what they need and release the
// Mem. A borrowed string keeps its RefTarget alive: building it takes one
// reference, releasing the Mem drops it.
//
// Key constraints:
//   - Invalid is distinct from "" and from an empty list
//   - Lists and maps only hold values from the same Mem (use Copy otherwise)
//   - Mem.Release is idempotent
package value
