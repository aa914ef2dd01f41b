package chat

// Message is a single inbound chat message: who said it and the raw text.
// Created once per send and never mutated.
type Message struct {
	Sender  Participant
	Content string
}

func NewMessage(sender Participant, content string) Message {
	return Message{Sender: sender, Content: content}
}

// Visibility is the per-recipient delivery decision for one message.
type Visibility int

const (
	// VisibilityShow delivers the message normally.
	VisibilityShow Visibility = iota
	// VisibilityHide suppresses delivery.
	VisibilityHide
	// VisibilitySocialSpy delivers only because the recipient is an
	// active social-spy observer; the rendered text carries a marker.
	VisibilitySocialSpy
)

// Visible reports whether the message is delivered at all.
func (v Visibility) Visible() bool {
	return v != VisibilityHide
}

// RecipientOptions carries per-recipient facts a channel's recipient
// policy may consult. SocialSpy is true only when the recipient's spy
// flag is set and their backing permission has been revalidated.
type RecipientOptions struct {
	SocialSpy bool
}

// MessageOptions carries per-delivery rendering facts.
type MessageOptions struct {
	// SocialSpy marks this delivery as a spy observation, not a
	// directly addressed message.
	SocialSpy bool
}
