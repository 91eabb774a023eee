// Package program holds the compiled description of an ncd program: named
// processes and templates, each an ordered list of statement specs.
//
// This package contains type definitions only. The compiler package builds
// a Program from CUE; the engine executes it. program imports nothing
// internal except value (for canonical hashing).
package program
