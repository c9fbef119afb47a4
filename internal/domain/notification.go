package domain

import "time"

// RecipientType identifies which party table a recipient row points at.
type RecipientType string

const (
	RecipientMember  RecipientType = "member"
	RecipientManager RecipientType = "manager"
)

// Caps for notification text fields, in code points. Longer input is
// truncated with a warning, not rejected.
const (
	NotificationTitleCap = 100
	NotificationBodyCap  = 255
)

// Notification is the one-to-many header record. Exactly zero or one of
// SenderMemberID/SenderManagerID is set; both nil means system-originated.
type Notification struct {
	ID              int64     `json:"id"`
	RequestID       string    `json:"request_id"`
	SourceID        int64     `json:"source_id"`
	ActionID        int64     `json:"action_id"`
	SenderMemberID  *int64    `json:"sender_member_id,omitempty"`
	SenderManagerID *int64    `json:"sender_manager_id,omitempty"`
	GroupCode       *string   `json:"group_code,omitempty"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

// NotificationRecipient fans a header out to one concrete recipient.
// A header is never written without at least one recipient row.
type NotificationRecipient struct {
	ID             int64         `json:"id"`
	NotificationID int64         `json:"notification_id"`
	RecipientType  RecipientType `json:"recipient_type"`
	RecipientID    int64         `json:"recipient_id"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
}

// DispatchInput carries the parameters of a dispatch call.
type DispatchInput struct {
	SourceID        int64
	ActionID        int64
	ToMemberID      *int64
	ToManagerID     *int64
	SenderMemberID  *int64
	SenderManagerID *int64
	Title           string
	Body            string
	GroupCode       *string
}

// DispatchResult reports the written header plus non-fatal warnings
// (e.g. title_truncated).
type DispatchResult struct {
	NotificationID int64    `json:"notification_id"`
	RequestID      string   `json:"request_id"`
	Recipients     int      `json:"recipients"`
	Warnings       []string `json:"warnings,omitempty"`
}
