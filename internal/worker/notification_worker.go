package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
// Delivery runs inline with the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}
