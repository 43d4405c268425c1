// util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/model"
)

type NotificationService struct {
	// Dependencies such as a message queue client would live here.
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyPolicySetStored announces a new policy set version to interested
// systems. Policy sets are append-only, so "stored" is the only change a
// consumer will ever see.
func (n *NotificationService) NotifyPolicySetStored(ctx context.Context, set model.PolicySet) error {
	// In a real deployment this would publish to a message queue or call an
	// external notification service.
	logger.Info("NOTIFICATION: New policy set version stored",
		zap.String("policySetID", set.ID),
		zap.Int("version", set.Version))
	return nil
}
