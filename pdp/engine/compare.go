// pdp/engine/compare.go
package engine

import (
	"fmt"
	"strings"

	"github.com/sentinelworks/verdict/model"
)

// compare applies one operator to an attribute value and a rule literal.
// Equality across mismatched kinds is simply false, never an error; ordered
// comparisons require comparable kinds and fail the whole evaluation
// (Indeterminate) otherwise, since a type error in an ordering predicate is
// an authoring bug, not a request property.
func compare(attr model.Value, op model.Operator, lit model.Value) (bool, error) {
	switch op {
	case model.OpEq:
		return valuesEqual(attr, lit), nil
	case model.OpNe:
		return !valuesEqual(attr, lit), nil
	case model.OpLt, model.OpLte, model.OpGt, model.OpGte:
		return compareOrdered(attr, op, lit)
	case model.OpIn:
		return compareIn(attr, lit)
	case model.OpContains:
		return compareContains(attr, lit)
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

func valuesEqual(a, b model.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case model.KindString:
		return a.Str == b.Str
	case model.KindNumber:
		return a.Num == b.Num
	case model.KindBool:
		return a.Bool == b.Bool
	case model.KindTime:
		return a.Time.Equal(b.Time)
	case model.KindStringSet:
		if len(a.Set) != len(b.Set) {
			return false
		}
		members := make(map[string]bool, len(a.Set))
		for _, m := range a.Set {
			members[m] = true
		}
		for _, m := range b.Set {
			if !members[m] {
				return false
			}
		}
		return true
	}
	return false
}

func compareOrdered(attr model.Value, op model.Operator, lit model.Value) (bool, error) {
	var cmp int
	switch {
	case attr.Kind == model.KindNumber && lit.Kind == model.KindNumber:
		switch {
		case attr.Num < lit.Num:
			cmp = -1
		case attr.Num > lit.Num:
			cmp = 1
		}
	case attr.Kind == model.KindTime && lit.Kind == model.KindTime:
		switch {
		case attr.Time.Before(lit.Time):
			cmp = -1
		case attr.Time.After(lit.Time):
			cmp = 1
		}
	case attr.Kind == model.KindString && lit.Kind == model.KindString:
		cmp = strings.Compare(attr.Str, lit.Str)
	default:
		return false, fmt.Errorf("cannot order %s against %s", attr.Kind, lit.Kind)
	}

	switch op {
	case model.OpLt:
		return cmp < 0, nil
	case model.OpLte:
		return cmp <= 0, nil
	case model.OpGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

// compareIn: the attribute value is a member of the literal set.
func compareIn(attr model.Value, lit model.Value) (bool, error) {
	if lit.Kind != model.KindStringSet {
		return false, fmt.Errorf("in operator needs a set literal, got %s", lit.Kind)
	}
	if attr.Kind != model.KindString {
		return false, nil
	}
	for _, m := range lit.Set {
		if m == attr.Str {
			return true, nil
		}
	}
	return false, nil
}

// compareContains: a set attribute contains the literal member, or a string
// attribute contains the literal substring.
func compareContains(attr model.Value, lit model.Value) (bool, error) {
	switch attr.Kind {
	case model.KindStringSet:
		if lit.Kind != model.KindString {
			return false, fmt.Errorf("contains on a set needs a string literal, got %s", lit.Kind)
		}
		for _, m := range attr.Set {
			if m == lit.Str {
				return true, nil
			}
		}
		return false, nil
	case model.KindString:
		if lit.Kind != model.KindString {
			return false, fmt.Errorf("contains on a string needs a string literal, got %s", lit.Kind)
		}
		return strings.Contains(attr.Str, lit.Str), nil
	default:
		return false, nil
	}
}
