package httphandler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"messaging-service/internal/middleware"
	"messaging-service/internal/usecase"
	"messaging-service/pkg/response"
	"messaging-service/pkg/xerrors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ChatHandler struct {
	uc     *usecase.ChatUsecase
	logger *zap.Logger
}

func NewChatHandler(uc *usecase.ChatUsecase, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{uc: uc, logger: logger}
}

type sendMessageRequest struct {
	PeerID  int64  `json:"peer_id"`
	Content string `json:"content"`
}

type markReadRequest struct {
	UpTo *time.Time `json:"up_to,omitempty"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, xerrors.ErrUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}

	msg, masked, err := h.uc.SendMessage(r.Context(), userType, userID, req.PeerID, req.Content)
	if err != nil {
		h.logger.Warn("send message failed",
			zap.Int64("sender_id", userID), zap.Error(err))
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, map[string]interface{}{
		"message_id":  msg.ID,
		"receiver_id": msg.ReceiverID,
		"content":     masked,
		"sent_at":     msg.WrittenAt,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, xerrors.ErrUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	peerID, err := strconv.ParseInt(chi.URLParam(r, "peerID"), 10, 64)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.uc.History(r.Context(), userType, userID, peerID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, xerrors.ErrUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	peerID, err := strconv.ParseInt(chi.URLParam(r, "peerID"), 10, 64)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}

	total, fromPeer, err := h.uc.ComputeUnread(r.Context(), userType, userID, peerID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{
		"total_unread":     total,
		"unread_from_peer": fromPeer,
	})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, xerrors.ErrUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	peerID, err := strconv.ParseInt(chi.URLParam(r, "peerID"), 10, 64)
	if err != nil {
		writeError(w, xerrors.ErrInvalidRequest)
		return
	}

	var req markReadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, xerrors.ErrInvalidRequest)
			return
		}
	}

	rows, err := h.uc.MarkRead(r.Context(), userType, userID, peerID, req.UpTo)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"rows_affected": rows})
}
