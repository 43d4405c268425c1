// model/policyset.go
package model

import (
	"time"
)

// Effect is the outcome a rule contributes when it matches.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// CombiningAlgorithm resolves multiple matched rules into one verdict.
type CombiningAlgorithm string

const (
	DenyOverrides   CombiningAlgorithm = "deny-overrides"
	PermitOverrides CombiningAlgorithm = "permit-overrides"
	FirstApplicable CombiningAlgorithm = "first-applicable"
)

// PolicySet is a versioned, named collection of rules. A stored version is
// immutable; edits produce a new version with the same ID.
type PolicySet struct {
	ID                 string             `json:"id"`
	Version            int                `json:"version"`
	Description        string             `json:"description,omitempty"`
	CombiningAlgorithm CombiningAlgorithm `json:"combining_algorithm"`
	Rules              []Rule             `json:"rules"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Rule pairs a target predicate and optional condition with an effect.
// A nil Target applies to every request; a nil Condition always holds.
type Rule struct {
	ID          string      `json:"id"`
	Description string      `json:"description,omitempty"`
	Effect      Effect      `json:"effect"`
	Target      *Expression `json:"target,omitempty"`
	Condition   *Expression `json:"condition,omitempty"`
}

// Clone returns a deep copy. Stored policy sets are handed out as copies so
// callers can never mutate a version another evaluation is reading.
func (ps *PolicySet) Clone() *PolicySet {
	if ps == nil {
		return nil
	}
	cp := *ps
	cp.Rules = make([]Rule, len(ps.Rules))
	for i, r := range ps.Rules {
		cp.Rules[i] = r
		cp.Rules[i].Target = r.Target.clone()
		cp.Rules[i].Condition = r.Condition.clone()
	}
	return &cp
}
