package domain

import "time"

// NotificationType mirrors the event kind that produced a notification.
type NotificationType string

const (
	NotificationTicketCreated   NotificationType = "TICKET_CREATED"
	NotificationCommentAdded    NotificationType = "COMMENT_ADDED"
	NotificationStatusChanged   NotificationType = "STATUS_CHANGED"
	NotificationTicketAssigned  NotificationType = "TICKET_ASSIGNED"
	NotificationPriorityChanged NotificationType = "PRIORITY_CHANGED"
	NotificationTicketResolved  NotificationType = "TICKET_RESOLVED"
)

// Notification is the durable per-recipient record of an event. It remains
// the read path for recipients that were offline when the event occurred.
// RecipientKey is a channel key such as "notify:tenant:<id>",
// "notify:staff:<id>" or "notify:admins".
type Notification struct {
	ID           string
	RecipientKey string
	Type         NotificationType
	Title        string
	Message      string
	TicketID     *string
	Read         bool
	CreatedAt    time.Time
}
