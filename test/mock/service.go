// test/mock/service.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sentinelworks/verdict/model"
)

// MockPolicySetService is a mock implementation of service.IPolicySetService
type MockPolicySetService struct {
	mock.Mock
}

func (m *MockPolicySetService) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	args := m.Called(ctx, set)
	return args.String(0), args.Int(1), args.Error(2)
}

func (m *MockPolicySetService) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	args := m.Called(ctx, id, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PolicySet), args.Error(1)
}

func (m *MockPolicySetService) ListVersions(ctx context.Context, id string) ([]int, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockPolicySetService) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockDecisionService is a mock implementation of service.IDecisionService
type MockDecisionService struct {
	mock.Mock
}

func (m *MockDecisionService) Evaluate(ctx context.Context, req model.DecisionRequest, policySetIDs []string) model.DecisionResult {
	args := m.Called(ctx, req, policySetIDs)
	return args.Get(0).(model.DecisionResult)
}
