package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"messaging-service/internal/domain"
	"messaging-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository owns the conversation-identity mapping and the append-only
// message log.
type ChatRepository interface {
	// EnsureConversation returns the one conversation for the unordered
	// pair (a, b) of the given kind, creating it if needed. Concurrent
	// callers converge on the same row.
	EnsureConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error)
	GetConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error)

	// AppendMessage inserts a message and bumps the conversation's
	// last_message_at in the same transaction. Content is truncated to
	// the cap, never rejected for length.
	AppendMessage(ctx context.Context, conv *domain.Conversation, senderID int64, content string) (*domain.Message, error)

	ListMessages(ctx context.Context, conv *domain.Conversation, limit, offset int) ([]*domain.Message, error)

	// CountUnread derives both counts fresh from the message log.
	CountUnread(ctx context.Context, kind domain.ChatKind, userID, peerID int64) (total, fromPeer int64, err error)

	// MarkReadUpTo flips unread messages addressed to readerID to read.
	// Zero rows affected is a valid outcome, not an error.
	MarkReadUpTo(ctx context.Context, conv *domain.Conversation, readerID int64, cutoff *time.Time) (int64, error)
}

// querier is the slice of pgxpool.Pool the repository uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgChatRepo struct {
	db querier
}

func NewChatRepository(db *pgxpool.Pool) ChatRepository {
	return &pgChatRepo{db: db}
}

const conversationCols = `id, kind, member_low, member_high, created_at, last_message_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(&c.ID, &c.Kind, &c.MemberLow, &c.MemberHigh, &c.CreatedAt, &c.LastMessageAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgChatRepo) EnsureConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error) {
	low, high := domain.NormalizePair(a, b)

	// Attempt-insert-then-read-on-conflict: the unique constraint on
	// (kind, member_low, member_high) decides races, not this code.
	query := `
		INSERT INTO conversations (kind, member_low, member_high, created_at, last_message_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (kind, member_low, member_high) DO NOTHING
		RETURNING ` + conversationCols

	conv, err := scanConversation(r.db.QueryRow(ctx, query, kind, low, high))
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ensure conversation: %w", err)
	}

	// A concurrent insert (or an earlier one) won; return the winner.
	return r.GetConversation(ctx, kind, low, high)
}

func (r *pgChatRepo) GetConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error) {
	low, high := domain.NormalizePair(a, b)
	query := `
		SELECT ` + conversationCols + `
		FROM conversations
		WHERE kind = $1 AND member_low = $2 AND member_high = $3`

	conv, err := scanConversation(r.db.QueryRow(ctx, query, kind, low, high))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

func (r *pgChatRepo) AppendMessage(ctx context.Context, conv *domain.Conversation, senderID int64, content string) (*domain.Message, error) {
	content = domain.TruncateRunes(content, domain.MessageContentCap)
	senderLow := conv.IsLow(senderID)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("append message: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderLow:      senderLow,
		SenderID:       senderID,
		ReceiverID:     conv.Peer(senderID),
		Content:        content,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_low, content, read, written_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		RETURNING id, written_at`,
		conv.ID, senderLow, content,
	).Scan(&msg.ID, &msg.WrittenAt)
	if err != nil {
		return nil, fmt.Errorf("append message: insert: %w", err)
	}

	// last_message_at never moves backwards, even if two appends commit
	// out of timestamp order.
	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1`,
		conv.ID, msg.WrittenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append message: commit: %w", err)
	}
	return msg, nil
}

func (r *pgChatRepo) ListMessages(ctx context.Context, conv *domain.Conversation, limit, offset int) ([]*domain.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, sender_low, content, read, read_at, written_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY written_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		conv.ID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderLow, &m.Content, &m.Read, &m.ReadAt, &m.WrittenAt)
		if err != nil {
			return nil, fmt.Errorf("list messages: scan: %w", err)
		}
		if m.SenderLow {
			m.SenderID, m.ReceiverID = conv.MemberLow, conv.MemberHigh
		} else {
			m.SenderID, m.ReceiverID = conv.MemberHigh, conv.MemberLow
		}
		messages = append(messages, &m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("list messages: %w", rows.Err())
	}
	return messages, nil
}

func (r *pgChatRepo) CountUnread(ctx context.Context, kind domain.ChatKind, userID, peerID int64) (int64, int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.kind = $1
		  AND m.read = FALSE
		  AND ((c.member_low = $2 AND m.sender_low = FALSE)
		    OR (c.member_high = $2 AND m.sender_low = TRUE))`,
		kind, userID,
	).Scan(&total)
	if err != nil {
		return 0, 0, fmt.Errorf("count unread total: %w", err)
	}

	low, high := domain.NormalizePair(userID, peerID)
	peerLow := peerID == low

	var fromPeer int64
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.kind = $1
		  AND c.member_low = $2 AND c.member_high = $3
		  AND m.read = FALSE
		  AND m.sender_low = $4`,
		kind, low, high, peerLow,
	).Scan(&fromPeer)
	if err != nil {
		return 0, 0, fmt.Errorf("count unread from peer: %w", err)
	}

	return total, fromPeer, nil
}

func (r *pgChatRepo) MarkReadUpTo(ctx context.Context, conv *domain.Conversation, readerID int64, cutoff *time.Time) (int64, error) {
	// Messages addressed to the reader are the ones sent by the other side.
	peerLow := !conv.IsLow(readerID)

	query := `
		UPDATE messages
		SET read = TRUE, read_at = NOW()
		WHERE conversation_id = $1
		  AND read = FALSE
		  AND sender_low = $2`
	args := []interface{}{conv.ID, peerLow}

	if cutoff != nil {
		query += ` AND written_at <= $3`
		args = append(args, *cutoff)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return ct.RowsAffected(), nil
}
