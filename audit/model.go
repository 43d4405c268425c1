// audit/model.go
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelworks/verdict/model"
)

// Event is an immutable snapshot of one decision: the request, its result,
// and a correlation id. It is created once per decision and appended to the
// audit log; the core never updates or deletes it.
type Event struct {
	CorrelationID string
	Request       model.DecisionRequest
	Result        model.DecisionResult
}

// NewEvent snapshots a decision. The request is deep-copied so later caller
// mutation cannot rewrite history.
func NewEvent(req model.DecisionRequest, res model.DecisionResult) Event {
	return Event{
		CorrelationID: uuid.New().String(),
		Request:       req.Clone(),
		Result:        res,
	}
}

// Record is the flat, single-line persisted form consumed by external SIEM
// tooling. Attribute values are stringified; sensitive ones are redacted
// before the record leaves the process.
type Record struct {
	CorrelationID     string            `json:"correlation_id"`
	Verdict           string            `json:"verdict"`
	MatchedRules      []string          `json:"matched_rules"`
	PolicySetVersions map[string]int    `json:"policy_set_versions"`
	Action            string            `json:"action"`
	Subject           map[string]string `json:"subject"`
	Resource          map[string]string `json:"resource"`
	Environment       map[string]string `json:"environment"`
	EvaluatedAt       time.Time         `json:"evaluated_at"`
	LatencyMicros     int64             `json:"latency_micros"`
}

const redactedPlaceholder = "[REDACTED]"

// Redactor blanks configured attribute names in persisted audit records.
type Redactor struct {
	names map[string]bool
}

func NewRedactor(attributeNames []string) *Redactor {
	names := make(map[string]bool, len(attributeNames))
	for _, n := range attributeNames {
		names[n] = true
	}
	return &Redactor{names: names}
}

func (r *Redactor) apply(attrs map[string]string) map[string]string {
	for name := range attrs {
		if r.names[name] {
			attrs[name] = redactedPlaceholder
		}
	}
	return attrs
}

// Flatten builds the persisted record from an event, applying redaction.
func (r *Redactor) Flatten(ev Event) Record {
	matched := make([]string, len(ev.Result.MatchedRules))
	for i, m := range ev.Result.MatchedRules {
		matched[i] = fmt.Sprintf("%s/%s", m.PolicySetID, m.RuleID)
	}
	return Record{
		CorrelationID:     ev.CorrelationID,
		Verdict:           string(ev.Result.Verdict),
		MatchedRules:      matched,
		PolicySetVersions: ev.Result.PolicySetVersions,
		Action:            ev.Request.Action,
		Subject:           r.apply(ev.Request.Subject.Strings()),
		Resource:          r.apply(ev.Request.Resource.Strings()),
		Environment:       r.apply(ev.Request.Environment.Strings()),
		EvaluatedAt:       ev.Result.EvaluatedAt,
		LatencyMicros:     ev.Result.LatencyMicros,
	}
}
