package value

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a sealed interface over the payload types a scripted response or
// shared-state slot may carry. Only Null, String, Int, Float, Bool, List,
// and Map implement it.
type Value interface {
	value() // Sealed - only these types implement it

	// Kind reports the structural kind of the value.
	Kind() Kind
}

// Kind identifies the structural kind of a Value. It doubles as the
// "expected shape" a call site declares when consuming a payload.
type Kind int

const (
	// KindAny matches any value kind. Used only as an expected shape;
	// no Value reports KindAny.
	KindAny Kind = iota
	KindNull
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
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
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFromString parses a kind name as written in scenario and configuration
// documents. The empty string parses as KindAny.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "", "any":
		return KindAny, nil
	case "null":
		return KindNull, nil
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	case "list":
		return KindList, nil
	case "map":
		return KindMap, nil
	default:
		return KindAny, fmt.Errorf("unknown value kind %q", s)
	}
}

// Null represents an absent payload. An explicit type keeps the sealed
// interface total - callers never see an untyped nil Value from the engine.
type Null struct{}

func (Null) value()     {}
func (Null) Kind() Kind { return KindNull }

// String is a string payload.
type String string

func (String) value()     {}
func (String) Kind() Kind { return KindString }

// Int is an integer payload. Always int64.
type Int int64

func (Int) value()     {}
func (Int) Kind() Kind { return KindInt }

// Float is a floating-point payload.
type Float float64

func (Float) value()     {}
func (Float) Kind() Kind { return KindFloat }

// Bool is a boolean payload.
type Bool bool

func (Bool) value()     {}
func (Bool) Kind() Kind { return KindBool }

// List is an ordered sequence of values.
type List []Value

func (List) value()     {}
func (List) Kind() Kind { return KindList }

// Map is a keyed collection of values. Use SortedKeys for deterministic
// iteration.
type Map map[string]Value

func (Map) value()     {}
func (Map) Kind() Kind { return KindMap }

// Equal reports full structural equality between two values.
// Int and Float never compare equal, even for the same numeric quantity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !Equal(v, bvv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromGo converts a decoded YAML or JSON value into a Value.
// Whole-number floats convert to Int because YAML decodes every number
// through float64 in untyped positions.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return Int(int64(val)), nil
	case float64:
		// Whole floats outside int64 range stay floats; the conversion
		// would otherwise wrap silently.
		if val == math.Trunc(val) && val >= math.MinInt64 && val < math.MaxInt64 {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Float(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

// MapFromGo converts a map of decoded values, preserving nil as nil.
func MapFromGo(raw map[string]any) (Map, error) {
	if raw == nil {
		return nil, nil
	}
	m := make(Map, len(raw))
	for k, elem := range raw {
		conv, err := FromGo(elem)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		m[k] = conv
	}
	return m, nil
}

// ToGo converts a Value back into plain Go types for JSON output and
// journal storage.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}
