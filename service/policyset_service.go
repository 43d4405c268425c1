// service/policyset_service.go
package service

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
	"github.com/sentinelworks/verdict/store"
	"github.com/sentinelworks/verdict/util"
)

// IPolicySetService handles administrative policy set operations.
type IPolicySetService interface {
	Put(ctx context.Context, set model.PolicySet) (string, int, error)
	Get(ctx context.Context, id string, version int) (*model.PolicySet, error)
	ListVersions(ctx context.Context, id string) ([]int, error)
	ListIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// PolicySetService wraps the store with event publication and notification.
// Validation and version assignment live in the store itself; this layer
// owns the side effects that follow a successful write.
type PolicySetService struct {
	store           store.Store
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
}

func NewPolicySetService(st store.Store, notificationSvc *util.NotificationService, eventBus *util.EventBus) *PolicySetService {
	service := &PolicySetService{
		store:           st,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
	}

	eventBus.Subscribe("policyset.stored", service.handlePolicySetStored)

	return service
}

func (s *PolicySetService) handlePolicySetStored(ctx context.Context, event util.Event) error {
	set, ok := event.Payload.(model.PolicySet)
	if !ok {
		logger.Error("Invalid event payload type", zap.Any("payload", event.Payload))
		return nil
	}

	if err := s.notificationSvc.NotifyPolicySetStored(ctx, set); err != nil {
		logger.Warn("Failed to send policy set notification",
			zap.Error(err), zap.String("policySetID", set.ID))
	}
	return nil
}

func (s *PolicySetService) Put(ctx context.Context, set model.PolicySet) (string, int, error) {
	id, version, err := s.store.Put(ctx, set)
	if err != nil {
		return "", 0, err
	}

	set.ID = id
	set.Version = version
	s.eventBus.Publish(ctx, "policyset.stored", set)

	logger.Info("Policy set version stored",
		zap.String("policySetID", id), zap.Int("version", version))
	return id, version, nil
}

func (s *PolicySetService) Get(ctx context.Context, id string, version int) (*model.PolicySet, error) {
	return s.store.Get(ctx, id, version)
}

func (s *PolicySetService) ListVersions(ctx context.Context, id string) ([]int, error) {
	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	return versions.Collect(), nil
}

func (s *PolicySetService) ListIDs(ctx context.Context, limit, offset int) ([]string, error) {
	return s.store.ListIDs(ctx, limit, offset)
}
