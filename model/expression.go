// model/expression.go
package model

// Predicates are a small tagged expression tree rather than an embedded
// scripting language: composites (all/any/not) over leaf comparisons against
// request attributes. Evaluation lives in pdp/engine; this package only
// defines the shape and its JSON form.

type ExprKind string

const (
	ExprAll     ExprKind = "all"
	ExprAny     ExprKind = "any"
	ExprNot     ExprKind = "not"
	ExprCompare ExprKind = "compare"
)

// Category names the section of the request an attribute is read from.
type Category string

const (
	CategorySubject     Category = "subject"
	CategoryResource    Category = "resource"
	CategoryAction      Category = "action"
	CategoryEnvironment Category = "environment"
)

type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpIn       Operator = "in"       // attribute value is a member of the literal set
	OpContains Operator = "contains" // attribute set/string contains the literal
)

// Expression is one node of a predicate tree. Exactly one of the composite
// fields (Children, Child) or the comparison fields is populated, keyed by
// Kind. For CategoryAction the Attribute field is ignored; the request action
// string itself is compared.
type Expression struct {
	Kind ExprKind `json:"kind"`

	// all / any
	Children []*Expression `json:"children,omitempty"`

	// not
	Child *Expression `json:"child,omitempty"`

	// compare
	Category  Category `json:"category,omitempty"`
	Attribute string   `json:"attribute,omitempty"`
	Operator  Operator `json:"operator,omitempty"`
	Value     *Value   `json:"value,omitempty"`
}

func (e *Expression) clone() *Expression {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Children != nil {
		cp.Children = make([]*Expression, len(e.Children))
		for i, c := range e.Children {
			cp.Children[i] = c.clone()
		}
	}
	cp.Child = e.Child.clone()
	if e.Value != nil {
		v := e.Value.Clone()
		cp.Value = &v
	}
	return &cp
}

func ValidOperator(op Operator) bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpIn, OpContains:
		return true
	}
	return false
}

func ValidCategory(c Category) bool {
	switch c {
	case CategorySubject, CategoryResource, CategoryAction, CategoryEnvironment:
		return true
	}
	return false
}
