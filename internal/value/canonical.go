package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders v as RFC 8785-style canonical JSON.
//
// Strings are NFC normalised, map keys are sorted by UTF-16 code units, and
// there is no HTML escaping. Invalid has no representation and is an error.
// Map keys must be strings.
//
// This is the only serialisation used for journal records and golden traces.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch v.Kind() {
	case KindInvalid:
		return fmt.Errorf("invalid value has no canonical form")
	case KindString:
		b, err := marshalCanonicalString(string(v.n.data))
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, e); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case KindMap:
		idx := make([]int, len(v.n.keys))
		for i, k := range v.n.keys {
			if !k.IsString() {
				return fmt.Errorf("map key %d is a %s, canonical form needs string keys", i, k.Kind())
			}
			idx[i] = i
		}
		slices.SortFunc(idx, func(a, b int) int {
			return compareKeysRFC8785(string(v.n.keys[a].n.data), string(v.n.keys[b].n.data))
		})
		buf.WriteByte('{')
		for j, i := range idx {
			if j > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(string(v.n.keys[i].n.data))
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, v.n.elems[i]); err != nil {
				return fmt.Errorf("map[%s]: %w", kb, err)
			}
		}
		buf.WriteByte('}')
		return nil
	}
	return fmt.Errorf("unknown kind %d", v.Kind())
}

// marshalCanonicalString produces a canonical JSON string.
// Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	result := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators undoes encoding/json's \u2028 and \u2029 escapes,
// leaving \\u2028 (an escaped backslash followed by text) untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if i+5 < len(data) && data[i+1] == 'u' && data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
				(data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
			// Any other escape: copy both bytes so "\\" never pairs with what follows.
			out = append(out, data[i], data[i+1])
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// sortedKeys returns map keys in canonical order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units, which is not
// the same order as Go's UTF-8 byte comparison.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
