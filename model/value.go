package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a JSON-shaped parameter value. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
	m    map[string]Value
	list []Value
}

func Null() Value           { return Value{} }
func String(s string) Value { return Value{kind: KindString, str: s} }
func Int(i int64) Value     { return Value{kind: KindInt, num: i} }
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }

// Map wraps m; a nil map becomes an empty one.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// List wraps items; no items yields an empty list.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsInt() (int64, bool)     { return v.num, v.kind == KindInt }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }

// AsFloat also accepts ints.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.flt, true
	case KindInt:
		return float64(v.num), true
	default:
		return 0, false
	}
}

func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == KindMap }
func (v Value) AsList() ([]Value, bool)         { return v.list, v.kind == KindList }

// Interface converts v back to plain Go values (nil, string, int64, float64,
// bool, map[string]any, []any).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders scalars plainly and containers as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return formatFloat(v.flt)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}
		return string(data)
	}
}

// Equal reports deep equality. Int and float values never compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindBool:
		return v.b == o.b
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, item := range v.m {
			other, ok := o.m[k]
			if !ok || !item.Equal(other) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ValueOf converts a plain Go value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return numberValue(t)
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			conv, err := ValueOf(item)
			if err != nil {
				return Null(), fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = conv
		}
		return Map(out), nil
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			conv, err := ValueOf(item)
			if err != nil {
				return Null(), fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = conv
		}
		return List(out...), nil
	default:
		return Null(), fmt.Errorf("unsupported parameter type %T", x)
	}
}

func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// formatFloat always keeps a fraction or exponent so the value decodes as a
// float again.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return nil, fmt.Errorf("unsupported float value %v", v.flt)
		}
		return []byte(formatFloat(v.flt)), nil
	case KindBool:
		return []byte(strconv.FormatBool(v.b)), nil
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			item, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(item)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	conv, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = conv
	return nil
}
