package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"messaging-service/internal/middleware"
	"messaging-service/internal/usecase"
	"messaging-service/internal/ws"
	"messaging-service/pkg/xerrors"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: tighten with allowed origins once the frontend domains settle
		return true
	},
}

type WSHandler struct {
	manager *ws.Manager
	chatUC  *usecase.ChatUsecase
	logger  *zap.Logger
}

func NewWSHandler(manager *ws.Manager, chatUC *usecase.ChatUsecase, logger *zap.Logger) *WSHandler {
	return &WSHandler{manager: manager, chatUC: chatUC, logger: logger}
}

// wsRequest is one inbound client frame.
type wsRequest struct {
	Op     string     `json:"op"` // send | mark_read
	PeerID int64      `json:"peer_id"`
	Text   string     `json:"text,omitempty"`
	UpTo   *time.Time `json:"up_to,omitempty"`
}

type wsResponse struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HandleChat upgrades the connection and subscribes the caller to their own
// channel, plus a support-ticket channel when requested.
func (h *WSHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	userType, _ := middleware.GetUserType(r.Context())

	channels := []string{ws.ParticipantChannel(userType, userID)}
	if t := r.URL.Query().Get("ticket"); t != "" {
		ticketID, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			http.Error(w, "invalid ticket", http.StatusBadRequest)
			return
		}
		channels = append(channels, ws.TicketChannel(ticketID))
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	client := ws.NewClient(ulid.Make().String(), userID, userType, channels, conn, h.manager, h.logger)
	h.manager.Add(client)

	client.SendJSON(&wsResponse{
		Type:    "connected",
		Success: true,
		Data:    map[string]interface{}{"client_id": client.ID},
	})

	go client.WritePump()
	client.ReadPump(h)
}

// HandleMessage processes one client frame. Replies go only to the sending
// connection; events for other subscribers ride the broadcast layer.
func (h *WSHandler) HandleMessage(c *ws.Client, data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.SendJSON(&wsResponse{Type: "error", Error: "malformed frame"})
		return
	}

	ctx := context.Background()

	switch req.Op {
	case "send":
		msg, masked, err := h.chatUC.SendMessage(ctx, c.UserType, c.UserID, req.PeerID, req.Text)
		if err != nil {
			c.SendJSON(&wsResponse{Type: "send_result", Error: reason(err)})
			return
		}
		c.SendJSON(&wsResponse{
			Type:    "send_result",
			Success: true,
			Data: map[string]interface{}{
				"message_id":  msg.ID,
				"receiver_id": msg.ReceiverID,
				"content":     masked,
				"sent_at":     msg.WrittenAt,
			},
		})

	case "mark_read":
		rows, err := h.chatUC.MarkRead(ctx, c.UserType, c.UserID, req.PeerID, req.UpTo)
		if err != nil {
			c.SendJSON(&wsResponse{Type: "read_result", Error: reason(err)})
			return
		}
		c.SendJSON(&wsResponse{
			Type:    "read_result",
			Success: true,
			Data:    map[string]int64{"rows_affected": rows},
		})

	default:
		c.SendJSON(&wsResponse{Type: "error", Error: "unknown op"})
	}
}

// reason keeps taxonomy errors readable on the wire and hides everything
// else behind a generic failure.
func reason(err error) string {
	switch {
	case errors.Is(err, xerrors.ErrInvalidPeer),
		errors.Is(err, xerrors.ErrContentRejected),
		errors.Is(err, xerrors.ErrUnauthorized):
		return err.Error()
	default:
		return "internal error"
	}
}
