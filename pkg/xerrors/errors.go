package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ParsePGErrorCode extracts the SQLSTATE from a pgx error.
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code // e.g. 23505 for unique_violation
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == "23505"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
)

// Messaging
var (
	ErrInvalidPeer     = errors.New("invalid peer")
	ErrContentRejected = errors.New("content rejected")
	ErrDuplicateKey    = errors.New("duplicate idempotency key")
	ErrMissingKey      = errors.New("idempotency key required")
)

// Notification dispatch
var (
	ErrUnknownSource    = errors.New("unknown notification source")
	ErrUnknownAction    = errors.New("unknown notification action")
	ErrNoValidRecipient = errors.New("no valid recipient")
	ErrAmbiguousSender  = errors.New("ambiguous sender")
	ErrUnknownSender    = errors.New("unknown sender")
)
