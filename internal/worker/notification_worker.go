package worker

import (
	"context"

	"github.com/spec-kit/ticket-notify/internal/dispatch"
	"github.com/spec-kit/ticket-notify/internal/service"
)

// StartNotificationWorker registers notification handlers and starts the
// dispatch worker pool (including the crash-recovery sweep).
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher *dispatch.Dispatcher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher != nil {
		dispatcher.Start(ctx)
	}
}
