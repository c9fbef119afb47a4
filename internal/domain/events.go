package domain

import "time"

// Event types pushed over the live channel.
const (
	EventNewMessage   = "new_message"
	EventReadReceipt  = "read_receipt"
	EventUnreadUpdate = "unread_update"
)

// NewMessageEvent is pushed to both participant channels after a message
// has been persisted. Content is the masked display copy, never the
// stored text.
type NewMessageEvent struct {
	Type       string    `json:"type"`
	MessageID  int64     `json:"message_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

// ReadReceiptEvent is pushed to the peer when a mark-read actually flipped
// rows. It is never published for a no-op mark-read.
type ReadReceiptEvent struct {
	Type         string     `json:"type"`
	ReaderID     int64      `json:"reader_id"`
	UpTo         *time.Time `json:"up_to,omitempty"`
	RowsAffected int64      `json:"rows_affected"`
}

// UnreadUpdateEvent carries freshly recomputed counts. Receivers treat it
// as convergent: a late event settles to the correct value because counts
// are never incrementally patched.
type UnreadUpdateEvent struct {
	Type        string `json:"type"`
	PeerID      int64  `json:"peer_id"`
	FromPeer    int64  `json:"unread_from_peer"`
	TotalUnread int64  `json:"total_unread"`
}
