package relay

import (
	"net/http"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// HeaderUserID names the requester on author-only operations.
const HeaderUserID = "X-User-ID"

type errorBody struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

type createConversationRequest struct {
	Participants []domain.UserID `json:"participants"`
}

type setLastMessageRequest struct {
	LastMessage *domain.LastMessage `json:"last_message"`
}

// statusOf maps an error code to its HTTP status.
func statusOf(code string) int {
	switch code {
	case "user_not_found", "conversation_not_found", "message_not_found":
		return http.StatusNotFound
	case "not_participant", "not_message_author":
		return http.StatusForbidden
	case "invalid_conversation", "invalid_public_key", "malformed_envelope", "no_recipients":
		return http.StatusBadRequest
	case "directory_lookup_missing":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorFromBody rebuilds a wrapped sentinel from a relay error response.
func errorFromBody(status int, body errorBody) *remoteError {
	if sentinel := cerrors.FromCode(body.Code); sentinel != nil {
		return &remoteError{status: status, msg: body.Message, sentinel: sentinel}
	}
	return &remoteError{status: status, msg: body.Message}
}

type remoteError struct {
	status   int
	msg      string
	sentinel error
}

func (e *remoteError) Error() string {
	if e.msg == "" {
		return "relay: " + http.StatusText(e.status)
	}
	return "relay: " + e.msg
}

func (e *remoteError) Unwrap() error { return e.sentinel }

// transient reports whether a failed request is worth retrying.
func (e *remoteError) transient() bool {
	return e.status >= 500 || e.status == http.StatusTooManyRequests
}
