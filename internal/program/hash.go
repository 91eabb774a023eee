package program

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/ncd/internal/value"
)

// DomainProgram separates program hashes from any other hash the journal
// might store. The version suffix allows changing the algorithm later.
const DomainProgram = "ncd/program/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns a content hash of the program, stable across map ordering
// and Unicode normalisation of literals.
func Hash(p *Program) (string, error) {
	data, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("hash program: %w", err)
	}
	return hashWithDomain(DomainProgram, data), nil
}

// MarshalCanonical renders p as canonical JSON.
func MarshalCanonical(p *Program) ([]byte, error) {
	mem := value.NewMem()
	defer mem.Release()

	v, err := value.FromGo(mem, p.toGo())
	if err != nil {
		return nil, err
	}
	return value.MarshalCanonical(v)
}

func (p *Program) toGo() map[string]any {
	procs := make([]any, len(p.Processes))
	for i := range p.Processes {
		procs[i] = p.Processes[i].toGo()
	}
	tmpls := make([]any, len(p.Templates))
	for i := range p.Templates {
		tmpls[i] = p.Templates[i].toGo()
	}
	return map[string]any{
		"format":    FormatVersion,
		"processes": procs,
		"templates": tmpls,
	}
}

func (ps *ProcessSpec) toGo() map[string]any {
	stmts := make([]any, len(ps.Statements))
	for i, s := range ps.Statements {
		args := make([]any, len(s.Args))
		for j, a := range s.Args {
			args[j] = a.toGo()
		}
		stmts[i] = map[string]any{
			"name":   s.Name,
			"module": s.Module,
			"object": s.Object,
			"method": s.Method,
			"args":   args,
		}
	}
	return map[string]any{
		"name":       ps.Name,
		"template":   ps.Template,
		"statements": stmts,
	}
}

func (a Arg) toGo() map[string]any {
	switch a.Kind {
	case ArgList:
		elems := make([]any, len(a.List))
		for i, e := range a.List {
			elems[i] = e.toGo()
		}
		return map[string]any{"list": elems}
	case ArgMap:
		entries := make([]any, len(a.Map))
		for i, e := range a.Map {
			entries[i] = map[string]any{"key": e.Key.toGo(), "value": e.Value.toGo()}
		}
		return map[string]any{"map": entries}
	case ArgRef:
		return map[string]any{"ref": a.Ref}
	default:
		return map[string]any{"str": a.Str}
	}
}
