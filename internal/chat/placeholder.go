package chat

import (
	"strings"
	"time"
)

// overridable in tests
var timeNow = time.Now

type PlaceholderID string

const (
	PlaceholderTime      PlaceholderID = "time"
	PlaceholderSender    PlaceholderID = "sender"
	PlaceholderRecipient PlaceholderID = "recipient"
	PlaceholderMessage   PlaceholderID = "message"
)

// PlaceholderFormatter substitutes message-level tokens into a format
// line. Applied once per message.
type PlaceholderFormatter func(line string, msg Message) string

// RecipientFormatter substitutes recipient-level tokens. Applied once per
// recipient; recipient may be nil for the console rendering, in which
// case the formatter must leave the line unchanged.
type RecipientFormatter func(line string, msg Message, recipient Participant) string

// Placeholder is one token-substitution rule with its effective apply
// order. Lower orders run first; ties keep handler registration order.
type Placeholder struct {
	ID           PlaceholderID
	ApplyOrder   int
	Format       PlaceholderFormatter
	ForRecipient RecipientFormatter
}

// PlaceholderHandler is a built-in placeholder definition. Configuration
// only supplies ordering; the substitution logic is fixed here.
type PlaceholderHandler struct {
	ID           PlaceholderID
	DefaultOrder int
	tokens       []string
	format       PlaceholderFormatter
	forRecipient RecipientFormatter
}

// AppliesTo reports whether any of the handler's trigger tokens occurs
// textually in the format template.
func (h PlaceholderHandler) AppliesTo(format string) bool {
	for _, tok := range h.tokens {
		if strings.Contains(format, tok) {
			return true
		}
	}
	return false
}

// Bind produces the configured Placeholder for this handler.
func (h PlaceholderHandler) Bind(applyOrder int) Placeholder {
	return Placeholder{
		ID:           h.ID,
		ApplyOrder:   applyOrder,
		Format:       h.format,
		ForRecipient: h.forRecipient,
	}
}

// Handlers returns the fixed built-in placeholder registry in discovery
// order. The message handler has the highest default order so earlier
// placeholders cannot match substrings injected from user message
// content.
func Handlers() []PlaceholderHandler {
	return []PlaceholderHandler{
		{
			ID:           PlaceholderTime,
			DefaultOrder: 1,
			tokens:       []string{"%HH%", "%mm%", "%SS%"},
			format: func(line string, _ Message) string {
				now := timeNow()
				line = strings.ReplaceAll(line, "%HH%", now.Format("15"))
				line = strings.ReplaceAll(line, "%mm%", now.Format("04"))
				return strings.ReplaceAll(line, "%SS%", now.Format("05"))
			},
		},
		{
			ID:           PlaceholderSender,
			DefaultOrder: 10,
			tokens:       []string{"%SENDER%"},
			format: func(line string, msg Message) string {
				return strings.ReplaceAll(line, "%SENDER%", msg.Sender.Name())
			},
		},
		{
			ID:           PlaceholderRecipient,
			DefaultOrder: 20,
			tokens:       []string{"%RECIPIENT%"},
			forRecipient: func(line string, _ Message, recipient Participant) string {
				if recipient == nil {
					return line
				}
				return strings.ReplaceAll(line, "%RECIPIENT%", recipient.Name())
			},
		},
		{
			ID:           PlaceholderMessage,
			DefaultOrder: 99,
			tokens:       []string{"%MESSAGE%"},
			format: func(line string, msg Message) string {
				return strings.ReplaceAll(line, "%MESSAGE%", msg.Content)
			},
		},
	}
}
