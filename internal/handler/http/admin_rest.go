package httphandler

import (
	"net/http"

	"messaging-service/internal/maskfilter"
	"messaging-service/pkg/response"

	"go.uber.org/zap"
)

type AdminHandler struct {
	filter *maskfilter.Filter
	logger *zap.Logger
}

func NewAdminHandler(filter *maskfilter.Filter, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{filter: filter, logger: logger}
}

// ReloadMaskFilter forces an immediate rebuild of the compiled matcher.
// Called after the block-word list has been edited.
func (h *AdminHandler) ReloadMaskFilter(w http.ResponseWriter, r *http.Request) {
	if err := h.filter.Reload(r.Context()); err != nil {
		h.logger.Error("mask filter reload failed", zap.Error(err))
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"result": "reloaded"})
}
