package chatdto

import "errors"

// Reason classifies a recoverable chat pipeline failure. Every reason is
// caused by a specific caller action and is surfaced back to that caller
// as feedback text; none is retryable.
type Reason string

const (
	ChannelNotFound      Reason = "CHANNEL_NOT_FOUND"
	SenderNotEligible    Reason = "SENDER_NOT_ELIGIBLE"
	SenderMuted          Reason = "SENDER_MUTED"
	NoRecentSender       Reason = "NO_RECENT_SENDER"
	RecipientUnavailable Reason = "RECIPIENT_UNAVAILABLE"
)

type ChatError struct {
	Reason  Reason
	Message string
}

func (e *ChatError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != "" {
		return string(e.Reason)
	}
	return "chat operation error"
}

func NewChatError(reason Reason, message string) *ChatError {
	return &ChatError{Reason: reason, Message: message}
}

// ReasonOf extracts the failure reason from err, or "" if err is not a
// ChatError.
func ReasonOf(err error) Reason {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}
