package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"messaging-service/internal/domain"
	"messaging-service/internal/ws"
	"messaging-service/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatRepo struct {
	conv      *domain.Conversation
	getErr    error
	appended  []*domain.Message
	appendErr error
	markRows  int64
	markErr   error
	total     int64
	fromPeer  int64
	nextID    int64
}

func (r *fakeChatRepo) EnsureConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error) {
	if r.conv == nil {
		low, high := domain.NormalizePair(a, b)
		r.conv = &domain.Conversation{ID: 1, Kind: kind, MemberLow: low, MemberHigh: high}
	}
	return r.conv, nil
}

func (r *fakeChatRepo) GetConversation(ctx context.Context, kind domain.ChatKind, a, b int64) (*domain.Conversation, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.conv == nil {
		return nil, xerrors.ErrNotFound
	}
	return r.conv, nil
}

func (r *fakeChatRepo) AppendMessage(ctx context.Context, conv *domain.Conversation, senderID int64, content string) (*domain.Message, error) {
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	r.nextID++
	m := &domain.Message{
		ID:             r.nextID,
		ConversationID: conv.ID,
		SenderLow:      conv.IsLow(senderID),
		SenderID:       senderID,
		ReceiverID:     conv.Peer(senderID),
		Content:        domain.TruncateRunes(content, domain.MessageContentCap),
		WrittenAt:      time.Now(),
	}
	r.appended = append(r.appended, m)
	return m, nil
}

func (r *fakeChatRepo) ListMessages(ctx context.Context, conv *domain.Conversation, limit, offset int) ([]*domain.Message, error) {
	out := make([]*domain.Message, len(r.appended))
	for i, m := range r.appended {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

func (r *fakeChatRepo) CountUnread(ctx context.Context, kind domain.ChatKind, userID, peerID int64) (int64, int64, error) {
	return r.total, r.fromPeer, nil
}

func (r *fakeChatRepo) MarkReadUpTo(ctx context.Context, conv *domain.Conversation, readerID int64, cutoff *time.Time) (int64, error) {
	if r.markErr != nil {
		return 0, r.markErr
	}
	return r.markRows, nil
}

type fakeParties struct {
	members  map[int64]bool
	managers map[int64]bool
}

func (p *fakeParties) MemberExists(ctx context.Context, id int64) (bool, error) {
	return p.members[id], nil
}

func (p *fakeParties) ManagerExists(ctx context.Context, id int64) (bool, error) {
	return p.managers[id], nil
}

type published struct {
	channel string
	event   interface{}
}

type fakeBroadcaster struct {
	events []published
}

func (b *fakeBroadcaster) Publish(ctx context.Context, channel string, event interface{}) error {
	b.events = append(b.events, published{channel: channel, event: event})
	return nil
}

type fakeMasker struct{}

func (fakeMasker) Censor(ctx context.Context, text string) string {
	return strings.ReplaceAll(text, "spam", "****")
}

func newChatFixture() (*ChatUsecase, *fakeChatRepo, *fakeBroadcaster) {
	repo := &fakeChatRepo{}
	parties := &fakeParties{
		members:  map[int64]bool{1: true, 2: true},
		managers: map[int64]bool{},
	}
	bc := &fakeBroadcaster{}
	uc := NewChatUsecase(repo, parties, fakeMasker{}, bc, zap.NewNop())
	return uc, repo, bc
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - persists then broadcasts masked copy", func(t *testing.T) {
		uc, repo, bc := newChatFixture()
		repo.total, repo.fromPeer = 4, 2

		msg, masked, err := uc.SendMessage(ctx, "member", 1, 2, "buy spam now")
		require.NoError(t, err)

		assert.Equal(t, "buy spam now", msg.Content, "stored text is never censored")
		assert.Equal(t, "buy **** now", masked)

		require.Len(t, bc.events, 3)
		assert.Equal(t, ws.MemberChannel(1), bc.events[0].channel)
		assert.Equal(t, ws.MemberChannel(2), bc.events[1].channel)

		ev, ok := bc.events[0].event.(*domain.NewMessageEvent)
		require.True(t, ok)
		assert.Equal(t, "buy **** now", ev.Content, "event carries the display copy")
		assert.Equal(t, int64(1), ev.SenderID)
		assert.Equal(t, int64(2), ev.ReceiverID)

		upd, ok := bc.events[2].event.(*domain.UnreadUpdateEvent)
		require.True(t, ok)
		assert.Equal(t, ws.MemberChannel(2), bc.events[2].channel, "unread update goes to the receiver")
		assert.Equal(t, int64(4), upd.TotalUnread)
		assert.Equal(t, int64(2), upd.FromPeer)
	})

	t.Run("over-cap text is truncated, not rejected", func(t *testing.T) {
		uc, repo, _ := newChatFixture()

		long := strings.Repeat("가", domain.MessageContentCap+40)
		msg, _, err := uc.SendMessage(ctx, "member", 1, 2, long)
		require.NoError(t, err)
		assert.Equal(t, domain.MessageContentCap, len([]rune(msg.Content)))
		require.Len(t, repo.appended, 1)
	})

	t.Run("empty text rejected before any write", func(t *testing.T) {
		uc, repo, bc := newChatFixture()

		_, _, err := uc.SendMessage(ctx, "member", 1, 2, "   ")
		assert.ErrorIs(t, err, xerrors.ErrContentRejected)
		assert.Empty(t, repo.appended)
		assert.Empty(t, bc.events)
	})

	t.Run("self and unknown peers rejected", func(t *testing.T) {
		uc, _, bc := newChatFixture()

		_, _, err := uc.SendMessage(ctx, "member", 1, 1, "hi")
		assert.ErrorIs(t, err, xerrors.ErrInvalidPeer)

		_, _, err = uc.SendMessage(ctx, "member", 1, 99, "hi")
		assert.ErrorIs(t, err, xerrors.ErrInvalidPeer)

		assert.Empty(t, bc.events)
	})

	t.Run("unauthenticated caller rejected", func(t *testing.T) {
		uc, _, _ := newChatFixture()

		_, _, err := uc.SendMessage(ctx, "member", 0, 2, "hi")
		assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
	})

	t.Run("failed write publishes nothing", func(t *testing.T) {
		uc, repo, bc := newChatFixture()
		repo.appendErr = xerrors.ErrInternalServer

		_, _, err := uc.SendMessage(ctx, "member", 1, 2, "hi")
		assert.Error(t, err)
		assert.Empty(t, bc.events, "no event for a message that failed to persist")
	})
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("rows flipped - receipt and unread update broadcast", func(t *testing.T) {
		uc, repo, bc := newChatFixture()
		repo.conv = &domain.Conversation{ID: 7, Kind: domain.KindMember, MemberLow: 1, MemberHigh: 2}
		repo.markRows = 3

		rows, err := uc.MarkRead(ctx, "member", 1, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), rows)

		require.Len(t, bc.events, 2)
		assert.Equal(t, ws.MemberChannel(2), bc.events[0].channel, "receipt goes to the peer")
		receipt, ok := bc.events[0].event.(*domain.ReadReceiptEvent)
		require.True(t, ok)
		assert.Equal(t, int64(1), receipt.ReaderID)
		assert.Equal(t, int64(3), receipt.RowsAffected)

		assert.Equal(t, ws.MemberChannel(1), bc.events[1].channel, "unread update goes to the reader")
	})

	t.Run("no-op mark read broadcasts nothing", func(t *testing.T) {
		uc, repo, bc := newChatFixture()
		repo.conv = &domain.Conversation{ID: 7, Kind: domain.KindMember, MemberLow: 1, MemberHigh: 2}
		repo.markRows = 0

		rows, err := uc.MarkRead(ctx, "member", 1, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rows)
		assert.Empty(t, bc.events, "a no-op must not manufacture a read receipt")
	})

	t.Run("no conversation yet is a valid zero", func(t *testing.T) {
		uc, _, bc := newChatFixture()

		rows, err := uc.MarkRead(ctx, "member", 1, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rows)
		assert.Empty(t, bc.events)
	})

	t.Run("invalid peer rejected", func(t *testing.T) {
		uc, _, _ := newChatFixture()

		_, err := uc.MarkRead(ctx, "member", 1, 1, nil)
		assert.ErrorIs(t, err, xerrors.ErrInvalidPeer)
	})
}

func TestHistory_MasksDisplayCopyOnly(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newChatFixture()

	_, _, err := uc.SendMessage(ctx, "member", 1, 2, "spam offer")
	require.NoError(t, err)

	messages, err := uc.History(ctx, "member", 1, 2, 50, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "**** offer", messages[0].Content)

	assert.Equal(t, "spam offer", repo.appended[0].Content, "stored row untouched")
}
