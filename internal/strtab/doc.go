// Package strtab interns names into small integer identifiers.
//
// Every statement name, variable name and object name the engine compares
// goes through a Table, so resolution along a statement chain compares
// integers instead of strings. The table only grows: an ID stays valid for
// the lifetime of the Table that issued it.
//
// A handful of names are pre-interned by New in a fixed order so that
// built-in statements can compare against package constants (Empty, True,
// False, None, ...) without a lookup.
package strtab
