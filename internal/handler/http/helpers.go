package httphandler

import (
	"errors"
	"net/http"

	"messaging-service/pkg/response"
	"messaging-service/pkg/xerrors"
)

// writeError maps the closed error taxonomy to response shapes. Anything
// outside the taxonomy is a storage-level failure and surfaces as a
// generic 500; the operation rolled back atomically so the caller may
// retry the whole thing.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, xerrors.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, xerrors.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, xerrors.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, xerrors.ErrInvalidRequest),
		errors.Is(err, xerrors.ErrMissingKey):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrInvalidPeer),
		errors.Is(err, xerrors.ErrContentRejected),
		errors.Is(err, xerrors.ErrUnknownSource),
		errors.Is(err, xerrors.ErrUnknownAction),
		errors.Is(err, xerrors.ErrNoValidRecipient),
		errors.Is(err, xerrors.ErrAmbiguousSender),
		errors.Is(err, xerrors.ErrUnknownSender):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
