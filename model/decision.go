// model/decision.go
package model

import "time"

// Verdict is the tri-state outcome of an evaluation. Indeterminate is
// always treated by callers as a denial.
type Verdict string

const (
	VerdictAllow         Verdict = "Allow"
	VerdictDeny          Verdict = "Deny"
	VerdictIndeterminate Verdict = "Indeterminate"
)

// MatchedRule identifies one applicable rule whose condition held.
type MatchedRule struct {
	PolicySetID string `json:"policy_set_id"`
	RuleID      string `json:"rule_id"`
}

// DecisionResult is the outcome of one Decision Service evaluation.
// PolicySetVersions records the exact version of every set consulted so old
// decisions remain explainable against retained policy versions.
type DecisionResult struct {
	Verdict           Verdict        `json:"verdict"`
	MatchedRules      []MatchedRule  `json:"matched_rules"`
	PolicySetVersions map[string]int `json:"policy_set_versions"`
	EvaluatedAt       time.Time      `json:"evaluated_at"`
	LatencyMicros     int64          `json:"latency_micros"`
}
