package value

import (
	"fmt"
	"strconv"
)

// MakeBool builds "true" or "false".
func (m *Mem) MakeBool(b bool) Value {
	if b {
		return m.NewString("true")
	}
	return m.NewString("false")
}

// ReadBool reports whether v is the string "true". Anything else is false.
func ReadBool(v Value) bool {
	return v.StringEquals("true")
}

// IsNone reports whether v is the string "<none>".
func IsNone(v Value) bool {
	return v.StringEquals("<none>")
}

// ReadUint parses a decimal unsigned integer string.
func ReadUint(v Value) (uint64, error) {
	if !v.IsString() {
		return 0, fmt.Errorf("expected string, got %s", v.Kind())
	}
	s := string(v.n.data)
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, fmt.Errorf("not an unsigned integer: %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer: %q", s)
	}
	return n, nil
}

// FromGo converts plain Go data (string, bool, integers, []any, []string,
// map[string]any) into a Value built in m. Non-string scalars are rendered
// as their decimal/boolean text, since every atom is a string.
func FromGo(m *Mem, v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Value{}, fmt.Errorf("nil has no value representation")
	case Value:
		return m.Copy(val)
	case string:
		return m.NewString(val), nil
	case []byte:
		return m.NewStringBytes(val), nil
	case bool:
		return m.MakeBool(val), nil
	case int:
		return m.NewString(strconv.Itoa(val)), nil
	case int64:
		return m.NewString(strconv.FormatInt(val, 10)), nil
	case uint64:
		return m.NewString(strconv.FormatUint(val, 10)), nil
	case []string:
		return m.NewStringList(val...), nil
	case []any:
		list := m.NewList(len(val))
		for i, e := range val {
			ev, err := FromGo(m, e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			list.n.elems = append(list.n.elems, ev)
		}
		return list, nil
	case map[string]any:
		mp := m.NewMap(len(val))
		for _, k := range sortedKeys(val) {
			ev, err := FromGo(m, val[k])
			if err != nil {
				return Value{}, fmt.Errorf("[%q]: %w", k, err)
			}
			mp.n.keys = append(mp.n.keys, m.NewString(k))
			mp.n.elems = append(mp.n.elems, ev)
		}
		return mp, nil
	default:
		return Value{}, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts v into plain Go data: string, []any or map[string]any.
// Map keys that are not strings are rendered canonically. Invalid becomes nil.
func ToGo(v Value) any {
	switch v.Kind() {
	case KindString:
		return string(v.n.data)
	case KindList:
		out := make([]any, len(v.n.elems))
		for i, e := range v.n.elems {
			out[i] = ToGo(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.n.keys))
		for i, k := range v.n.keys {
			key := k.String()
			out[key] = ToGo(v.n.elems[i])
		}
		return out
	default:
		return nil
	}
}
