package chat

import "sort"

// MessageFormatter compiles a format template plus the placeholders whose
// trigger tokens appear in it, sorted ascending by apply order. Built once
// per channel (and once per private-message variant) at load time.
type MessageFormatter struct {
	template     string
	placeholders []Placeholder
}

// NewMessageFormatter selects from placeholders those applicable to the
// template and sorts them by apply order. The sort is stable so ties keep
// handler registration order.
func NewMessageFormatter(template string, configured map[PlaceholderID]Placeholder) *MessageFormatter {
	var applicable []Placeholder
	for _, h := range Handlers() {
		if !h.AppliesTo(template) {
			continue
		}
		ph, ok := configured[h.ID]
		if !ok {
			ph = h.Bind(h.DefaultOrder)
		}
		applicable = append(applicable, ph)
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].ApplyOrder < applicable[j].ApplyOrder
	})
	return &MessageFormatter{template: template, placeholders: applicable}
}

// Template returns the raw format string.
func (f *MessageFormatter) Template() string { return f.template }

// Prepare applies all message-level placeholders once, in order, and
// retains the recipient-level ones for per-recipient rendering.
func (f *MessageFormatter) Prepare(msg Message) *FormattedMessage {
	line := f.template
	var recipientFormatters []RecipientFormatter
	for _, ph := range f.placeholders {
		if ph.Format != nil {
			line = ph.Format(line, msg)
		}
		if ph.ForRecipient != nil {
			recipientFormatters = append(recipientFormatters, ph.ForRecipient)
		}
	}
	return &FormattedMessage{
		msg:                 msg,
		recipientFormatters: recipientFormatters,
		line:                line,
	}
}

// socialSpyMarker visually distinguishes a spy observation from a
// directly addressed message.
const socialSpyMarker = "§m*§r"

// FormattedMessage is one message after message-level substitution. The
// per-recipient text is derived lazily so a single FormattedMessage can
// serve many recipients plus the no-recipient console variant.
type FormattedMessage struct {
	msg                 Message
	recipientFormatters []RecipientFormatter
	line                string
}

// ForRecipient renders the final text for one recipient. recipient may be
// nil for the console rendering; recipient-level placeholders that need
// an addressable recipient skip themselves in that case.
func (fm *FormattedMessage) ForRecipient(recipient Participant, opts MessageOptions) string {
	line := fm.line
	for _, format := range fm.recipientFormatters {
		line = format(line, fm.msg, recipient)
	}
	if opts.SocialSpy {
		line = socialSpyMarker + line
	}
	return line
}
