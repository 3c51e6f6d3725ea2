package enums

import "fmt"

// NotificationType tags notification rows delivered to buyers and vendors.
type NotificationType string

const (
	NotificationOrderConfirmed   NotificationType = "order_confirmed"
	NotificationOrderCancelled   NotificationType = "order_cancelled"
	NotificationOrderDelivered   NotificationType = "order_delivered"
	NotificationDisputeOpened    NotificationType = "dispute_opened"
	NotificationDisputeResolved  NotificationType = "dispute_resolved"
	NotificationDisputeEscalated NotificationType = "dispute_escalated"
	NotificationDisputeClosed    NotificationType = "dispute_closed"
	NotificationDisputeMessage   NotificationType = "dispute_message"
	NotificationRefundCompleted  NotificationType = "refund_completed"
	NotificationRefundPending    NotificationType = "refund_pending"
	NotificationRefundFailed     NotificationType = "refund_failed"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderConfirmed,
	NotificationOrderCancelled,
	NotificationOrderDelivered,
	NotificationDisputeOpened,
	NotificationDisputeResolved,
	NotificationDisputeEscalated,
	NotificationDisputeClosed,
	NotificationDisputeMessage,
	NotificationRefundCompleted,
	NotificationRefundPending,
	NotificationRefundFailed,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
