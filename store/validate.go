// store/validate.go
package store

import (
	"fmt"

	verdict_errors "github.com/sentinelworks/verdict/errors"
	"github.com/sentinelworks/verdict/model"
)

// validatePolicySet checks structural well-formedness before anything is
// written. Every violation is collected so a rejected definition can be
// fixed in one pass. A rule with neither target nor condition matching every
// request is legal; default-deny baseline rules rely on it.
func validatePolicySet(set *model.PolicySet) error {
	var violations []string

	if set.ID == "" {
		violations = append(violations, "policy set id cannot be empty")
	}
	switch set.CombiningAlgorithm {
	case model.DenyOverrides, model.PermitOverrides, model.FirstApplicable:
	default:
		violations = append(violations, fmt.Sprintf(
			"unknown combining algorithm %q", set.CombiningAlgorithm))
	}

	seen := make(map[string]bool, len(set.Rules))
	for i, rule := range set.Rules {
		where := fmt.Sprintf("rule %d", i)
		if rule.ID == "" {
			violations = append(violations, where+": id cannot be empty")
		} else {
			where = fmt.Sprintf("rule %q", rule.ID)
			if seen[rule.ID] {
				violations = append(violations, where+": duplicate id")
			}
			seen[rule.ID] = true
		}
		if rule.Effect != model.EffectAllow && rule.Effect != model.EffectDeny {
			violations = append(violations, fmt.Sprintf(
				"%s: effect must be %q or %q, got %q",
				where, model.EffectAllow, model.EffectDeny, rule.Effect))
		}
		violations = appendExpressionViolations(violations, where+" target", rule.Target)
		violations = appendExpressionViolations(violations, where+" condition", rule.Condition)
	}

	if len(violations) > 0 {
		return &verdict_errors.ValidationError{Violations: violations}
	}
	return nil
}

func appendExpressionViolations(violations []string, where string, expr *model.Expression) []string {
	if expr == nil {
		return violations
	}
	switch expr.Kind {
	case model.ExprAll, model.ExprAny:
		if len(expr.Children) == 0 {
			violations = append(violations, fmt.Sprintf(
				"%s: %s expression needs at least one child", where, expr.Kind))
		}
		for i, child := range expr.Children {
			violations = appendExpressionViolations(
				violations, fmt.Sprintf("%s[%d]", where, i), child)
		}
	case model.ExprNot:
		if expr.Child == nil {
			violations = append(violations, where+": not expression needs a child")
		} else {
			violations = appendExpressionViolations(violations, where+".child", expr.Child)
		}
	case model.ExprCompare:
		if !model.ValidCategory(expr.Category) {
			violations = append(violations, fmt.Sprintf(
				"%s: unknown attribute category %q", where, expr.Category))
		}
		if expr.Category != model.CategoryAction && expr.Attribute == "" {
			violations = append(violations, where+": attribute name cannot be empty")
		}
		if !model.ValidOperator(expr.Operator) {
			violations = append(violations, fmt.Sprintf(
				"%s: unknown operator %q", where, expr.Operator))
		}
		if expr.Value == nil {
			violations = append(violations, where+": comparison value cannot be empty")
		}
	default:
		violations = append(violations, fmt.Sprintf(
			"%s: unknown expression kind %q", where, expr.Kind))
	}
	return violations
}
