package usecase

import (
	"context"
	"unicode/utf8"

	"messaging-service/internal/domain"
	"messaging-service/internal/repository"
	"messaging-service/pkg/xerrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationUsecase struct {
	repo    repository.NotificationRepository
	parties repository.PartyRepository
	logger  *zap.Logger
}

func NewNotificationUsecase(
	repo repository.NotificationRepository,
	parties repository.PartyRepository,
	logger *zap.Logger,
) *NotificationUsecase {
	return &NotificationUsecase{
		repo:    repo,
		parties: parties,
		logger:  logger,
	}
}

// Dispatch validates fail-fast (no partial writes) and then writes the
// header plus recipient rows in one transaction. Validation order:
// catalog entries, recipients, senders, then length caps (non-fatal).
func (uc *NotificationUsecase) Dispatch(ctx context.Context, in domain.DispatchInput) (*domain.DispatchResult, error) {
	// 1. Source and action must reference catalog entries.
	ok, err := uc.repo.SourceExists(ctx, in.SourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrUnknownSource
	}
	ok, err = uc.repo.ActionExists(ctx, in.ActionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrUnknownAction
	}

	// 2. At least one recipient must resolve. Rows are created only for
	// recipients that exist at write time.
	var recipients []*domain.NotificationRecipient
	if in.ToMemberID != nil {
		exists, err := uc.parties.MemberExists(ctx, *in.ToMemberID)
		if err != nil {
			return nil, err
		}
		if exists {
			recipients = append(recipients, &domain.NotificationRecipient{
				RecipientType: domain.RecipientMember,
				RecipientID:   *in.ToMemberID,
			})
		}
	}
	if in.ToManagerID != nil {
		exists, err := uc.parties.ManagerExists(ctx, *in.ToManagerID)
		if err != nil {
			return nil, err
		}
		if exists {
			recipients = append(recipients, &domain.NotificationRecipient{
				RecipientType: domain.RecipientManager,
				RecipientID:   *in.ToManagerID,
			})
		}
	}
	if len(recipients) == 0 {
		return nil, xerrors.ErrNoValidRecipient
	}

	// 3. Senders: both nil means system-originated; both set is ambiguous.
	if in.SenderMemberID != nil && in.SenderManagerID != nil {
		return nil, xerrors.ErrAmbiguousSender
	}
	if in.SenderMemberID != nil {
		exists, err := uc.parties.MemberExists(ctx, *in.SenderMemberID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, xerrors.ErrUnknownSender
		}
	}
	if in.SenderManagerID != nil {
		exists, err := uc.parties.ManagerExists(ctx, *in.SenderManagerID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, xerrors.ErrUnknownSender
		}
	}

	// 4. Over-cap text is truncated with a warning, not rejected.
	var warnings []string
	title, body := in.Title, in.Body
	if utf8.RuneCountInString(title) > domain.NotificationTitleCap {
		title = domain.TruncateRunes(title, domain.NotificationTitleCap)
		warnings = append(warnings, "title_truncated")
	}
	if utf8.RuneCountInString(body) > domain.NotificationBodyCap {
		body = domain.TruncateRunes(body, domain.NotificationBodyCap)
		warnings = append(warnings, "body_truncated")
	}

	n := &domain.Notification{
		RequestID:       uuid.New().String(),
		SourceID:        in.SourceID,
		ActionID:        in.ActionID,
		SenderMemberID:  in.SenderMemberID,
		SenderManagerID: in.SenderManagerID,
		GroupCode:       in.GroupCode,
		Title:           title,
		Body:            body,
	}

	created, err := uc.repo.CreateWithRecipients(ctx, n, recipients)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("notification dispatched",
		zap.Int64("notification_id", created.ID),
		zap.String("request_id", created.RequestID),
		zap.Int("recipients", len(recipients)),
		zap.Strings("warnings", warnings))

	return &domain.DispatchResult{
		NotificationID: created.ID,
		RequestID:      created.RequestID,
		Recipients:     len(recipients),
		Warnings:       warnings,
	}, nil
}

// ListForRecipient pages a recipient's notification feed.
func (uc *NotificationUsecase) ListForRecipient(ctx context.Context, rt domain.RecipientType, recipientID int64, limit, offset int) ([]*domain.Notification, error) {
	if recipientID <= 0 {
		return nil, xerrors.ErrUnauthorized
	}
	return uc.repo.ListByRecipient(ctx, rt, recipientID, limit, offset)
}
