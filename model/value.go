// model/value.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind enumerates the attribute types the comparison operators support.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindBool      ValueKind = "bool"
	KindTime      ValueKind = "time"
	KindStringSet ValueKind = "set"
)

// Value is a typed attribute value. The zero Value is an empty string.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
	Set  []string
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func SetValue(members ...string) Value {
	return Value{Kind: KindStringSet, Set: members}
}

func (v Value) Clone() Value {
	if v.Kind == KindStringSet && v.Set != nil {
		cp := make([]string, len(v.Set))
		copy(cp, v.Set)
		v.Set = cp
	}
	return v
}

// String renders the value for logs and audit records.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindTime:
		return v.Time.Format(time.RFC3339)
	case KindStringSet:
		data, _ := json.Marshal(v.Set)
		return string(data)
	default:
		return v.Str
	}
}

// MarshalJSON writes the natural JSON form: strings, numbers, booleans,
// arrays of strings. Timestamps serialize as RFC3339 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTime:
		return json.Marshal(v.Time.Format(time.RFC3339))
	case KindStringSet:
		if v.Set == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Set)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON infers the kind from the JSON shape. A string that parses as
// RFC3339 becomes a timestamp, matching how environment attributes such as
// request time are supplied by callers.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			*v = TimeValue(ts)
		} else {
			*v = StringValue(t)
		}
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	case []interface{}:
		members := make([]string, len(t))
		for i, m := range t {
			s, ok := m.(string)
			if !ok {
				return fmt.Errorf("set values must contain only strings, got %T", m)
			}
			members[i] = s
		}
		*v = SetValue(members...)
	case nil:
		return fmt.Errorf("attribute values cannot be null")
	default:
		return fmt.Errorf("unsupported attribute value type %T", t)
	}
	return nil
}

// AttributeMap holds the already-resolved, flat attributes of one request
// section. Role and group hierarchies are flattened by the identity layer
// before a request reaches the decision service.
type AttributeMap map[string]Value

func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	cp := make(AttributeMap, len(m))
	for k, v := range m {
		cp[k] = v.Clone()
	}
	return cp
}

// Strings flattens the map to printable values for audit records.
func (m AttributeMap) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}
