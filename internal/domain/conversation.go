package domain

import "time"

// ChatKind separates the member-to-member inbox from the manager-to-manager
// one. Conversations of different kinds never merge, even for the same pair
// of ids.
type ChatKind string

const (
	KindMember  ChatKind = "member"
	KindManager ChatKind = "manager"
)

// MessageContentCap is the maximum stored message length in code points.
// Longer input is truncated, not rejected.
const MessageContentCap = 255

// Conversation is the durable identity of a one-to-one messaging
// relationship. The pair is normalized so MemberLow < MemberHigh; together
// with Kind it is unique.
type Conversation struct {
	ID            int64     `json:"id"`
	Kind          ChatKind  `json:"kind"`
	MemberLow     int64     `json:"member_low"`
	MemberHigh    int64     `json:"member_high"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Peer returns the other side of the pair.
func (c *Conversation) Peer(userID int64) int64 {
	if c.MemberLow == userID {
		return c.MemberHigh
	}
	return c.MemberLow
}

// IsLow reports whether userID sits on the low side of the pair.
func (c *Conversation) IsLow(userID int64) bool {
	return c.MemberLow == userID
}

// Message is one entry in a conversation's append-only log. Content is
// immutable after creation; only the Read/ReadAt pair may change, and only
// from unread to read.
type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderLow      bool       `json:"-"`
	SenderID       int64      `json:"sender_id"`
	ReceiverID     int64      `json:"receiver_id"`
	Content        string     `json:"content"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	WrittenAt      time.Time  `json:"written_at"`
}

// NormalizePair orders a pair of participant ids so the smaller comes first.
func NormalizePair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// TruncateRunes caps s at max code points.
func TruncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
