// model/request.go
package model

// DecisionRequest is the input contract of one authorization evaluation.
// All four attribute sections are treated as immutable for the duration of
// an evaluation; concurrent evaluations of the same request are safe.
type DecisionRequest struct {
	Subject     AttributeMap `json:"subject"`
	Resource    AttributeMap `json:"resource"`
	Action      string       `json:"action"`
	Environment AttributeMap `json:"environment"`
}

func (r *DecisionRequest) Clone() DecisionRequest {
	return DecisionRequest{
		Subject:     r.Subject.Clone(),
		Resource:    r.Resource.Clone(),
		Action:      r.Action,
		Environment: r.Environment.Clone(),
	}
}
