package worker

import (
	"github.com/spec-kit/marketplace-portal/internal/service"
)

// StartNotificationWorker registers notification handlers on the portal's event dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
