package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelworks/verdict/audit"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/pdp/engine"
	"github.com/sentinelworks/verdict/service"
	"github.com/sentinelworks/verdict/store"
	test_mock "github.com/sentinelworks/verdict/test/mock"
)

func initTestLogger(t *testing.T) {
	t.Helper()
	logger.InitLogger(t.TempDir())
}

// recordingSink captures events synchronously for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Record(ev audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ctxBoundStore blocks every Get until the caller's context is done, the
// way a read against an unresponsive backend would.
type ctxBoundStore struct {
	store.Store
}

func (s ctxBoundStore) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func seedStore(t *testing.T, mem *store.Memory, id string, rules []model.Rule, algorithm model.CombiningAlgorithm) {
	t.Helper()
	_, _, err := mem.Put(context.Background(), model.PolicySet{
		ID:                 id,
		CombiningAlgorithm: algorithm,
		Rules:              rules,
	})
	require.NoError(t, err)
}

func allowReadsRule() model.Rule {
	value := model.StringValue("read")
	return model.Rule{
		ID:     "allow-reads",
		Effect: model.EffectAllow,
		Target: &model.Expression{
			Kind:     model.ExprCompare,
			Category: model.CategoryAction,
			Operator: model.OpEq,
			Value:    &value,
		},
	}
}

func readRequest() model.DecisionRequest {
	return model.DecisionRequest{
		Subject: model.AttributeMap{"id": model.StringValue("alice")},
		Action:  "read",
	}
}

func TestEvaluateAllowWhenAllSetsAllow(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)
	seedStore(t, mem, "billing", []model.Rule{allowReadsRule()}, model.FirstApplicable)

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), readRequest(), []string{"documents", "billing"})

	assert.Equal(t, model.VerdictAllow, result.Verdict)
	assert.ElementsMatch(t, []model.MatchedRule{
		{PolicySetID: "documents", RuleID: "allow-reads"},
		{PolicySetID: "billing", RuleID: "allow-reads"},
	}, result.MatchedRules)
	assert.Equal(t, map[string]int{"documents": 1, "billing": 1}, result.PolicySetVersions)
	assert.False(t, result.EvaluatedAt.IsZero())
}

func TestEvaluateDenyWhenAnySetDenies(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)
	seedStore(t, mem, "lockdown", []model.Rule{
		{ID: "deny-all", Effect: model.EffectDeny},
	}, model.DenyOverrides)

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), readRequest(), []string{"documents", "lockdown"})

	assert.Equal(t, model.VerdictDeny, result.Verdict)
}

func TestEvaluateFailsClosedOnStoreFailure(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)

	flaky := test_mock.NewFlakyStore(mem)
	flaky.FailGet("offline-set", errors.New("connection refused"))

	sink := &recordingSink{}
	svc := service.NewDecisionService(flaky, engine.NewEvaluator(), sink)

	// The healthy set allows, but the failed lookup contributes a Deny:
	// the overall verdict can never become Allow on the strength of a
	// failed fetch.
	result := svc.Evaluate(context.Background(), readRequest(), []string{"documents", "offline-set"})

	assert.Equal(t, model.VerdictDeny, result.Verdict)
	assert.Equal(t, map[string]int{"documents": 1}, result.PolicySetVersions)
	assert.Equal(t, []model.MatchedRule{{PolicySetID: "documents", RuleID: "allow-reads"}}, result.MatchedRules)
}

func TestEvaluateUnknownPolicySetDenies(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), readRequest(), []string{"nonexistent"})

	assert.Equal(t, model.VerdictDeny, result.Verdict)
	assert.Empty(t, result.PolicySetVersions)
}

func TestEvaluateEmptyPolicySetListDenies(t *testing.T) {
	initTestLogger(t)
	sink := &recordingSink{}
	svc := service.NewDecisionService(store.NewMemory(), engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), readRequest(), nil)

	assert.Equal(t, model.VerdictDeny, result.Verdict)
}

func TestEvaluateIndeterminateSetForcesDeny(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	value := model.StringValue("eighteen")
	limit := model.NumberValue(18)
	seedStore(t, mem, "typed", []model.Rule{
		{
			ID:     "age-check",
			Effect: model.EffectAllow,
			Target: &model.Expression{
				Kind: model.ExprCompare, Category: model.CategorySubject,
				Attribute: "age", Operator: model.OpGte, Value: &limit,
			},
		},
	}, model.DenyOverrides)

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), model.DecisionRequest{
		Subject: model.AttributeMap{"age": value},
		Action:  "read",
	}, []string{"typed"})

	assert.Equal(t, model.VerdictDeny, result.Verdict)
}

func TestEvaluateHonorsCallerCancellation(t *testing.T) {
	initTestLogger(t)
	sink := &recordingSink{}
	svc := service.NewDecisionService(ctxBoundStore{Store: store.NewMemory()}, engine.NewEvaluator(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result := svc.Evaluate(ctx, readRequest(), []string{"documents"})

	// The cancelled read fails closed immediately instead of hanging on
	// the store, and the decision is still audited.
	assert.Equal(t, model.VerdictDeny, result.Verdict)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, sink.Events(), 1)
	assert.Equal(t, model.VerdictDeny, sink.Events()[0].Result.Verdict)
}

func TestEveryDecisionIsAudited(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	result := svc.Evaluate(context.Background(), readRequest(), []string{"documents"})

	events := sink.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].CorrelationID)
	assert.Equal(t, result.Verdict, events[0].Result.Verdict)
	assert.Equal(t, "read", events[0].Request.Action)
}

func TestAuditedRequestIsSnapshotted(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)

	sink := &recordingSink{}
	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	req := readRequest()
	svc.Evaluate(context.Background(), req, []string{"documents"})

	// Caller mutation after the decision must not rewrite the audit trail.
	req.Subject["id"] = model.StringValue("mallory")

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Request.Subject["id"].Str)
}

func TestAuditSinkFailureDoesNotAffectDecision(t *testing.T) {
	initTestLogger(t)
	mem := store.NewMemory()
	seedStore(t, mem, "documents", []model.Rule{allowReadsRule()}, model.DenyOverrides)

	// A sink backed by a permanently failing repository: the decision and
	// its latency stay within bounds regardless.
	repo := test_mock.NewAuditRepository()
	repo.FailTimes(1 << 20, errors.New("elasticsearch unreachable"))
	sink := audit.NewBufferedSink(repo, audit.SinkConfig{
		BufferSize:   8,
		MaxRetries:   3,
		RetryBackoff: 50 * time.Millisecond,
	})
	defer sink.Close()

	svc := service.NewDecisionService(mem, engine.NewEvaluator(), sink)

	start := time.Now()
	result := svc.Evaluate(context.Background(), readRequest(), []string{"documents"})
	elapsed := time.Since(start)

	assert.Equal(t, model.VerdictAllow, result.Verdict)
	assert.Less(t, elapsed, 40*time.Millisecond,
		"audit retries must not be on the decision path")
}
