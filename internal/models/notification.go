package models

import "time"

type NotificationType string

const (
	NotifJobPosted        NotificationType = "job_posted"
	NotifJobRequest       NotificationType = "job_request"
	NotifRequestAccepted  NotificationType = "request_accepted"
	NotifRequestDeclined  NotificationType = "request_declined"
	NotifJobClosed        NotificationType = "job_closed"
	NotifNewMessage       NotificationType = "new_message"
	NotifExpenseSubmitted NotificationType = "expense_submitted"
	NotifExpenseResolved  NotificationType = "expense_resolved"
)

// Notification is stored at notifications/{recipient}/{id}. Notifications
// are never edited; the recipient dismisses them by deleting.
type Notification struct {
	ID          string           `json:"id" bson:"id"`
	RecipientID string           `json:"-" bson:"-"`
	Type        NotificationType `json:"type" bson:"type"`
	Message     string           `json:"message" bson:"message"`
	RedirectURL string           `json:"redirectUrl,omitempty" bson:"redirect_url,omitempty"`
	Timestamp   time.Time        `json:"timestamp" bson:"timestamp"`
}

// FailedDelivery is a notification write that exhausted its retries. It is
// kept outside the hierarchical store so it survives that store being down.
type FailedDelivery struct {
	ID           string       `json:"id" bson:"_id"`
	RecipientID  string       `json:"recipient_id" bson:"recipient_id"`
	Notification Notification `json:"notification" bson:"notification"`
	Attempts     int          `json:"attempts" bson:"attempts"`
	LastError    string       `json:"last_error" bson:"last_error"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
}
