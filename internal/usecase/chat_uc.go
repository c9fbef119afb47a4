package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"messaging-service/internal/domain"
	"messaging-service/internal/repository"
	"messaging-service/internal/ws"
	"messaging-service/pkg/xerrors"

	"go.uber.org/zap"
)

// Broadcaster pushes an event to every subscriber of a logical channel.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, event interface{}) error
}

// Masker produces the display copy of a text. It never touches stored data.
type Masker interface {
	Censor(ctx context.Context, text string) string
}

type ChatUsecase struct {
	repo        repository.ChatRepository
	parties     repository.PartyRepository
	mask        Masker
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewChatUsecase(
	repo repository.ChatRepository,
	parties repository.PartyRepository,
	mask Masker,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		repo:        repo,
		parties:     parties,
		mask:        mask,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func kindFor(userType string) domain.ChatKind {
	if userType == "manager" {
		return domain.KindManager
	}
	return domain.KindMember
}

func (uc *ChatUsecase) peerExists(ctx context.Context, userType string, peerID int64) (bool, error) {
	if userType == "manager" {
		return uc.parties.ManagerExists(ctx, peerID)
	}
	return uc.parties.MemberExists(ctx, peerID)
}

// SendMessage persists a message and, only after the write committed,
// pushes new-message events to both participant channels plus a fresh
// unread-update to the receiver. Returns the stored message and its masked
// display copy.
func (uc *ChatUsecase) SendMessage(ctx context.Context, userType string, senderID, peerID int64, text string) (*domain.Message, string, error) {
	if senderID <= 0 {
		return nil, "", xerrors.ErrUnauthorized
	}
	if peerID == senderID || peerID <= 0 {
		return nil, "", xerrors.ErrInvalidPeer
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", xerrors.ErrContentRejected
	}

	exists, err := uc.peerExists(ctx, userType, peerID)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, "", xerrors.ErrInvalidPeer
	}

	kind := kindFor(userType)
	conv, err := uc.repo.EnsureConversation(ctx, kind, senderID, peerID)
	if err != nil {
		return nil, "", err
	}

	msg, err := uc.repo.AppendMessage(ctx, conv, senderID, text)
	if err != nil {
		return nil, "", err
	}

	masked := uc.mask.Censor(ctx, msg.Content)

	event := &domain.NewMessageEvent{
		Type:       domain.EventNewMessage,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    masked,
		SentAt:     msg.WrittenAt,
	}
	uc.publish(ctx, ws.ParticipantChannel(userType, senderID), event)
	uc.publish(ctx, ws.ParticipantChannel(userType, peerID), event)

	uc.pushUnreadUpdate(ctx, userType, kind, peerID, senderID)

	return msg, masked, nil
}

// ComputeUnread derives both counts fresh from the store; there is no
// cached counter to drift.
func (uc *ChatUsecase) ComputeUnread(ctx context.Context, userType string, userID, peerID int64) (total, fromPeer int64, err error) {
	if userID <= 0 {
		return 0, 0, xerrors.ErrUnauthorized
	}
	return uc.repo.CountUnread(ctx, kindFor(userType), userID, peerID)
}

// MarkRead flips the reader's unread messages from peer to read and returns
// how many rows flipped. A read-receipt and unread-update are broadcast
// only when something actually flipped; a no-op mark-read must not
// manufacture a "peer just read this" signal.
func (uc *ChatUsecase) MarkRead(ctx context.Context, userType string, readerID, peerID int64, cutoff *time.Time) (int64, error) {
	if readerID <= 0 {
		return 0, xerrors.ErrUnauthorized
	}
	if peerID == readerID || peerID <= 0 {
		return 0, xerrors.ErrInvalidPeer
	}

	exists, err := uc.peerExists(ctx, userType, peerID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, xerrors.ErrInvalidPeer
	}

	kind := kindFor(userType)
	conv, err := uc.repo.GetConversation(ctx, kind, readerID, peerID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return 0, nil // never talked: nothing unread
	}
	if err != nil {
		return 0, err
	}

	rows, err := uc.repo.MarkReadUpTo(ctx, conv, readerID, cutoff)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, nil
	}

	uc.publish(ctx, ws.ParticipantChannel(userType, peerID), &domain.ReadReceiptEvent{
		Type:         domain.EventReadReceipt,
		ReaderID:     readerID,
		UpTo:         cutoff,
		RowsAffected: rows,
	})
	uc.pushUnreadUpdate(ctx, userType, kind, readerID, peerID)

	return rows, nil
}

// History returns a page of the conversation with masked display content.
// Stored rows keep their original text.
func (uc *ChatUsecase) History(ctx context.Context, userType string, userID, peerID int64, limit, offset int) ([]*domain.Message, error) {
	if userID <= 0 {
		return nil, xerrors.ErrUnauthorized
	}
	if peerID == userID || peerID <= 0 {
		return nil, xerrors.ErrInvalidPeer
	}

	conv, err := uc.repo.GetConversation(ctx, kindFor(userType), userID, peerID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return []*domain.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages, err := uc.repo.ListMessages(ctx, conv, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		m.Content = uc.mask.Censor(ctx, m.Content)
	}
	return messages, nil
}

// pushUnreadUpdate recomputes the user's counts and publishes them to the
// user's own channel. Always recomputed, never patched, so out-of-order
// delivery self-heals on the next event.
func (uc *ChatUsecase) pushUnreadUpdate(ctx context.Context, userType string, kind domain.ChatKind, userID, peerID int64) {
	total, fromPeer, err := uc.repo.CountUnread(ctx, kind, userID, peerID)
	if err != nil {
		uc.logger.Warn("unread recount failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	uc.publish(ctx, ws.ParticipantChannel(userType, userID), &domain.UnreadUpdateEvent{
		Type:        domain.EventUnreadUpdate,
		PeerID:      peerID,
		FromPeer:    fromPeer,
		TotalUnread: total,
	})
}

// publish failures are logged, not surfaced: the write already committed
// and the convergent unread-update design absorbs a lost push.
func (uc *ChatUsecase) publish(ctx context.Context, channel string, event interface{}) {
	if err := uc.broadcaster.Publish(ctx, channel, event); err != nil {
		uc.logger.Warn("broadcast failed",
			zap.String("channel", channel), zap.Error(err))
	}
}
