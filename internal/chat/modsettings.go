package chat

import (
	"fmt"
	"sort"
)

// PrivateMessageFormatters holds the three private-message renderings:
// the server console line, the sender's own view, and the recipient's
// view.
type PrivateMessageFormatters struct {
	Console       *MessageFormatter
	SenderIsYou   *MessageFormatter
	SenderIsOther *MessageFormatter
}

// Settings is one immutable configuration snapshot: the channel registry,
// the private-message formatters, and the scalar options. A snapshot is
// built fresh on every load and swapped in atomically, so in-flight sends
// always observe a consistent registry.
type Settings struct {
	DefaultChannelID     string
	LocalChannelDistance int
	PrivateMessages      PrivateMessageFormatters

	byID    map[string]*Channel
	ordered []*Channel // lexicographic by id; fixes selector scan order
}

// NewSettings builds a snapshot from the loaded channels. It rejects two
// channels sharing an id or a selector prefix; the prefix scan would
// otherwise depend on map iteration order.
func NewSettings(defaultChannelID string, localDistance int, pm PrivateMessageFormatters, channels []*Channel) (*Settings, error) {
	byID := make(map[string]*Channel, len(channels))
	prefixOwner := make(map[string]string)
	for _, ch := range channels {
		if _, dup := byID[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate channel id %q", ch.ID)
		}
		byID[ch.ID] = ch
		if ch.SelectorPrefix == "" {
			continue
		}
		if owner, dup := prefixOwner[ch.SelectorPrefix]; dup {
			return nil, fmt.Errorf("selector prefix %q owned by both %q and %q", ch.SelectorPrefix, owner, ch.ID)
		}
		prefixOwner[ch.SelectorPrefix] = ch.ID
	}

	ordered := make([]*Channel, 0, len(byID))
	for _, ch := range byID {
		ordered = append(ordered, ch)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Settings{
		DefaultChannelID:     defaultChannelID,
		LocalChannelDistance: localDistance,
		PrivateMessages:      pm,
		byID:                 byID,
		ordered:              ordered,
	}, nil
}

// Channel looks up a channel by id.
func (s *Settings) Channel(id string) *Channel {
	return s.byID[id]
}

// Channels returns the registry in lexicographic id order.
func (s *Settings) Channels() []*Channel {
	return s.ordered
}
