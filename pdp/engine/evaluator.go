// pdp/engine/evaluator.go
package engine

import (
	"errors"
	"fmt"

	"github.com/sentinelworks/verdict/model"
)

// errAttributeMissing marks a comparison that referenced an attribute the
// request does not carry. It is interpreted per call site: a target that
// references a missing attribute makes the rule not applicable; a condition
// that does is treated as unsatisfied for Allow rules and satisfied for Deny
// rules, so uncertainty always leans toward denial.
var errAttributeMissing = errors.New("attribute missing from request")

// Result is the outcome of evaluating one policy set against one request.
// MatchedRuleIDs lists, in stored rule order, the rules that were applicable
// and whose condition held.
type Result struct {
	Verdict        model.Verdict
	MatchedRuleIDs []string
}

// Evaluator evaluates one policy set against one decision request. It is
// pure and deterministic: it never reads the clock, never touches I/O, and
// identical inputs always produce identical results. Environment facts such
// as the current time must arrive as request attributes.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

type matchedRule struct {
	id     string
	effect model.Effect
}

// Evaluate scans the rules in stored order and combines matched effects per
// the set's combining algorithm. Nothing matching is never permissive: every
// algorithm falls back to Deny. Malformed expressions yield Indeterminate,
// never Allow. first-applicable short-circuits: scanning stops at the first
// applicable rule whose condition holds, and only that rule is reported.
func (e *Evaluator) Evaluate(set *model.PolicySet, req *model.DecisionRequest) Result {
	var matched []matchedRule

	for i := range set.Rules {
		rule := &set.Rules[i]

		applicable, err := evalExpr(rule.Target, req)
		if errors.Is(err, errAttributeMissing) {
			continue
		}
		if err != nil {
			return Result{Verdict: model.VerdictIndeterminate}
		}
		if !applicable {
			continue
		}

		held, err := evalExpr(rule.Condition, req)
		if errors.Is(err, errAttributeMissing) {
			held = rule.Effect == model.EffectDeny
		} else if err != nil {
			return Result{Verdict: model.VerdictIndeterminate}
		}
		if !held {
			continue
		}

		matched = append(matched, matchedRule{id: rule.ID, effect: rule.Effect})
		if set.CombiningAlgorithm == model.FirstApplicable {
			break
		}
	}

	return Result{
		Verdict:        combine(set.CombiningAlgorithm, matched),
		MatchedRuleIDs: ruleIDs(matched),
	}
}

func combine(algorithm model.CombiningAlgorithm, matched []matchedRule) model.Verdict {
	switch algorithm {
	case model.DenyOverrides:
		verdict := model.VerdictDeny
		for _, m := range matched {
			if m.effect == model.EffectDeny {
				return model.VerdictDeny
			}
			verdict = model.VerdictAllow
		}
		return verdict
	case model.PermitOverrides:
		verdict := model.VerdictDeny
		for _, m := range matched {
			if m.effect == model.EffectAllow {
				return model.VerdictAllow
			}
		}
		return verdict
	case model.FirstApplicable:
		if len(matched) == 0 {
			return model.VerdictDeny
		}
		if matched[0].effect == model.EffectAllow {
			return model.VerdictAllow
		}
		return model.VerdictDeny
	default:
		// The store rejects unknown algorithms; reaching this means the set
		// bypassed validation, which is an evaluation failure.
		return model.VerdictIndeterminate
	}
}

func ruleIDs(matched []matchedRule) []string {
	if len(matched) == 0 {
		return nil
	}
	ids := make([]string, len(matched))
	for i, m := range matched {
		ids[i] = m.id
	}
	return ids
}

// evalExpr evaluates a predicate tree against the request. A nil expression
// is vacuously true (a rule without target or condition matches everything).
// Children are visited in order and short-circuit, so error reporting is
// deterministic.
func evalExpr(expr *model.Expression, req *model.DecisionRequest) (bool, error) {
	if expr == nil {
		return true, nil
	}
	switch expr.Kind {
	case model.ExprAll:
		for _, child := range expr.Children {
			ok, err := evalExpr(child, req)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case model.ExprAny:
		for _, child := range expr.Children {
			ok, err := evalExpr(child, req)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case model.ExprNot:
		ok, err := evalExpr(expr.Child, req)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case model.ExprCompare:
		return evalCompare(expr, req)
	default:
		return false, fmt.Errorf("unknown expression kind %q", expr.Kind)
	}
}

func evalCompare(expr *model.Expression, req *model.DecisionRequest) (bool, error) {
	if expr.Value == nil {
		return false, fmt.Errorf("comparison on %s.%s has no value", expr.Category, expr.Attribute)
	}

	attr, ok := lookupAttribute(expr, req)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s", errAttributeMissing, expr.Category, expr.Attribute)
	}
	return compare(attr, expr.Operator, *expr.Value)
}

func lookupAttribute(expr *model.Expression, req *model.DecisionRequest) (model.Value, bool) {
	switch expr.Category {
	case model.CategorySubject:
		v, ok := req.Subject[expr.Attribute]
		return v, ok
	case model.CategoryResource:
		v, ok := req.Resource[expr.Attribute]
		return v, ok
	case model.CategoryEnvironment:
		v, ok := req.Environment[expr.Attribute]
		return v, ok
	case model.CategoryAction:
		return model.StringValue(req.Action), true
	default:
		return model.Value{}, false
	}
}
