package idempotency

import (
	"fmt"
	"net/http"

	"messaging-service/pkg/response"
	"messaging-service/pkg/xerrors"

	"go.uber.org/zap"
)

// HeaderKey is the dedicated request header carrying the client-chosen key.
const HeaderKey = "Idempotency-Key"

// Guard deduplicates unsafe-verb requests by client-supplied key. The key
// is mandatory: unsafe requests without one are rejected outright. A
// duplicate key within the window gets a conflict with the original key
// echoed back; a failed handler releases the key so a retry may proceed.
func Guard(store Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderKey)
			if key == "" {
				response.Error(w, http.StatusBadRequest, xerrors.ErrMissingKey.Error())
				return
			}

			ok, err := store.Begin(r.Context(), key)
			if err != nil {
				logger.Error("idempotency store unavailable", zap.Error(err))
				response.Error(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !ok {
				w.Header().Set(HeaderKey, key)
				response.Error(w, http.StatusConflict, xerrors.ErrDuplicateKey.Error())
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < http.StatusBadRequest {
				fp := fmt.Sprintf("%s|%s|%d", r.Method, r.URL.Path, rec.status)
				if err := store.Complete(r.Context(), key, fp); err != nil {
					logger.Warn("idempotency complete failed",
						zap.String("key", key), zap.Error(err))
				}
			} else {
				// Not cached on failure: a legitimate retry with the
				// same key is allowed through.
				if err := store.Release(r.Context(), key); err != nil {
					logger.Warn("idempotency release failed",
						zap.String("key", key), zap.Error(err))
				}
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
