// service/decision_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sentinelworks/verdict/audit"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/pdp/engine"
	"github.com/sentinelworks/verdict/store"
)

// IDecisionService is the decision entry point. Which policy sets apply to a
// request is routing, decided by the caller; this service only evaluates the
// ids it is handed.
type IDecisionService interface {
	Evaluate(ctx context.Context, req model.DecisionRequest, policySetIDs []string) model.DecisionResult
}

// DecisionService orchestrates one decision: fetch the latest version of
// every requested policy set, evaluate them concurrently, combine with
// top-level deny-overrides, and hand the outcome to the audit sink. The
// contract is "always answer, answer Deny when unsure": store failures are
// absorbed as denying contributions and never propagate to the caller.
type DecisionService struct {
	store     store.Store
	evaluator *engine.Evaluator
	auditSink audit.Sink
}

func NewDecisionService(st store.Store, evaluator *engine.Evaluator, auditSink audit.Sink) *DecisionService {
	return &DecisionService{
		store:     st,
		evaluator: evaluator,
		auditSink: auditSink,
	}
}

type contribution struct {
	policySetID string
	version     int
	verdict     model.Verdict
	matched     []string
	fetchErr    error
}

func (s *DecisionService) Evaluate(ctx context.Context, req model.DecisionRequest, policySetIDs []string) model.DecisionResult {
	start := time.Now()

	contributions := make([]contribution, len(policySetIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range policySetIDs {
		i, id := i, id
		g.Go(func() error {
			set, err := s.store.Get(gctx, id, store.LatestVersion)
			if err != nil {
				// Fail closed: the missing set contributes a Deny and the
				// remaining sets still evaluate.
				logger.Warn("Policy set lookup failed, contributing Deny",
					zap.String("policySetID", id), zap.Error(err))
				contributions[i] = contribution{policySetID: id, verdict: model.VerdictDeny, fetchErr: err}
				return nil
			}
			res := s.evaluator.Evaluate(set, &req)
			contributions[i] = contribution{
				policySetID: id,
				version:     set.Version,
				verdict:     res.Verdict,
				matched:     res.MatchedRuleIDs,
			}
			return nil
		})
	}
	// Workers only ever return nil; the join is what matters. A verdict is
	// never produced from partial results.
	_ = g.Wait()

	result := s.combine(contributions)
	result.EvaluatedAt = time.Now().UTC()
	result.LatencyMicros = time.Since(start).Microseconds()

	// Fire-and-forget: the event is snapshotted and buffered before
	// returning, but its write latency is not part of the decision latency,
	// and a sink failure cannot change the verdict.
	s.auditSink.Record(audit.NewEvent(req, result))

	return result
}

// combine applies top-level deny-overrides across policy sets: Allow only
// when at least one set evaluated and every contribution is Allow. Any Deny,
// Indeterminate, or failed lookup forces Deny.
func (s *DecisionService) combine(contributions []contribution) model.DecisionResult {
	verdict := model.VerdictDeny
	versions := make(map[string]int, len(contributions))
	var matched []model.MatchedRule

	evaluated := 0
	denied := false
	for _, c := range contributions {
		if c.fetchErr != nil {
			denied = true
			continue
		}
		evaluated++
		versions[c.policySetID] = c.version
		for _, ruleID := range c.matched {
			matched = append(matched, model.MatchedRule{PolicySetID: c.policySetID, RuleID: ruleID})
		}
		if c.verdict != model.VerdictAllow {
			denied = true
		}
	}
	if evaluated > 0 && !denied {
		verdict = model.VerdictAllow
	}

	return model.DecisionResult{
		Verdict:           verdict,
		MatchedRules:      matched,
		PolicySetVersions: versions,
	}
}
