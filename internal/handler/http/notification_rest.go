package httphandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"messaging-service/internal/domain"
	"messaging-service/internal/middleware"
	"messaging-service/internal/usecase"
	"messaging-service/pkg/response"
	"messaging-service/pkg/xerrors"

	"go.uber.org/zap"
)

type NotificationHandler struct {
	uc     *usecase.NotificationUsecase
	logger *zap.Logger
}

func NewNotificationHandler(uc *usecase.NotificationUsecase, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{uc: uc, logger: logger}
}

type dispatchRequest struct {
	SourceID        int64   `json:"source_id"`
	ActionID        int64   `json:"action_id"`
	ToMemberID      *int64  `json:"to_member_id,omitempty"`
	ToManagerID     *int64  `json:"to_manager_id,omitempty"`
	SenderMemberID  *int64  `json:"sender_member_id,omitempty"`
	SenderManagerID *int64  `json:"sender_manager_id,omitempty"`
	Title           string  `json:"title"`
	Body            string  `json:"body"`
	GroupCode       *string `json:"group_code,omitempty"`
}

func (h *NotificationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}

	result, err := h.uc.Dispatch(r.Context(), domain.DispatchInput{
		SourceID:        req.SourceID,
		ActionID:        req.ActionID,
		ToMemberID:      req.ToMemberID,
		ToManagerID:     req.ToManagerID,
		SenderMemberID:  req.SenderMemberID,
		SenderManagerID: req.SenderManagerID,
		Title:           req.Title,
		Body:            req.Body,
		GroupCode:       req.GroupCode,
	})
	if err != nil {
		h.logger.Warn("notification dispatch failed", zap.Error(err))
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, result)
}

func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, xerrors.ErrUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	rt := domain.RecipientMember
	if userType == "manager" {
		rt = domain.RecipientManager
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.uc.ListForRecipient(r.Context(), rt, userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}
