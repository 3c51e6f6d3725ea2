package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

type dispatcher struct {
	repo Repository
	logg *logger.Logger
}

// NewDispatcher builds the post-commit notification writer.
func NewDispatcher(repo Repository, logg *logger.Logger) (Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("notifications logger required")
	}
	return &dispatcher{repo: repo, logg: logg}, nil
}

// Dispatch writes each message as an in-app notification row. A bad message
// or insert failure is logged and the rest of the batch continues.
func (d *dispatcher) Dispatch(ctx context.Context, messages ...Message) {
	for _, msg := range messages {
		if msg.RecipientID == uuid.Nil || !msg.Type.IsValid() {
			d.logg.Warn(d.logg.WithField(ctx, "notification_type", string(msg.Type)), "skipping malformed notification")
			continue
		}
		row := models.Notification{
			RecipientID: msg.RecipientID,
			Type:        msg.Type,
			Title:       msg.Title,
			Message:     msg.Body,
			Link:        msg.Link,
		}
		if err := d.repo.Create(ctx, &row); err != nil {
			fields := map[string]any{
				"notification_type": string(msg.Type),
				"recipient_id":      msg.RecipientID.String(),
			}
			d.logg.Error(d.logg.WithFields(ctx, fields), "notification dispatch failed", err)
		}
	}
}

// NoopDispatcher drops all messages; useful in tests.
type NoopDispatcher struct{}

// Dispatch implements Dispatcher.
func (NoopDispatcher) Dispatch(ctx context.Context, messages ...Message) {}

var _ Dispatcher = NoopDispatcher{}

// titleFor is a small helper shared by services that emit standard messages.
func titleFor(t enums.NotificationType) string {
	switch t {
	case enums.NotificationOrderConfirmed:
		return "Order confirmed"
	case enums.NotificationOrderCancelled:
		return "Order cancelled"
	case enums.NotificationOrderDelivered:
		return "Order delivered"
	case enums.NotificationDisputeOpened:
		return "Dispute opened"
	case enums.NotificationDisputeResolved:
		return "Dispute resolved"
	case enums.NotificationDisputeEscalated:
		return "Dispute escalated"
	case enums.NotificationDisputeClosed:
		return "Dispute closed"
	case enums.NotificationDisputeMessage:
		return "New dispute message"
	case enums.NotificationRefundCompleted:
		return "Refund completed"
	case enums.NotificationRefundPending:
		return "Refund pending"
	case enums.NotificationRefundFailed:
		return "Refund failed"
	default:
		return "Notification"
	}
}

// NewMessage builds a Message with the standard title for its type.
func NewMessage(recipientID uuid.UUID, t enums.NotificationType, body string) Message {
	return Message{
		RecipientID: recipientID,
		Type:        t,
		Title:       titleFor(t),
		Body:        body,
	}
}
