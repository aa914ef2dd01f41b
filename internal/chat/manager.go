package chat

import (
	"context"
	"regexp"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BenderTales/tales-chat-api/internal/obslog"
	"github.com/BenderTales/tales-chat-api/pkg/chatdto"
)

// formattingRegex matches §-style color/format control sequences, which
// are stripped from console output.
var formattingRegex = regexp.MustCompile("§[a-zA-Z0-9]")

// Manager is the routing core: it owns the settings snapshot and the
// player settings store, and orchestrates send, broadcast and private
// message flows. One instance per process, constructed by the
// composition root and passed by reference.
type Manager struct {
	source   SettingsSource
	settings *SettingsStore
	roster   Roster
	perms    Permissions
	sink     Sink

	snap atomic.Pointer[Settings]
}

func NewManager(source SettingsSource, roster Roster, perms Permissions, sink Sink, settings *SettingsStore) *Manager {
	m := &Manager{
		source:   source,
		settings: settings,
		roster:   roster,
		perms:    perms,
		sink:     sink,
	}
	empty, _ := NewSettings("", 0, PrivateMessageFormatters{}, nil)
	m.snap.Store(empty)
	return m
}

// Load builds a fresh settings snapshot from the configuration source and
// swaps it in atomically. On failure the previous snapshot stays in
// place.
func (m *Manager) Load() error {
	snap, err := m.source.LoadSettings()
	if err != nil {
		obslog.L().Error("settings_load_failed", zap.Error(err))
		return err
	}
	m.snap.Store(snap)

	def := snap.Channel(snap.DefaultChannelID)
	if def == nil {
		def = snap.Channel(GlobalChannelID)
	}
	if def == nil && len(snap.Channels()) > 0 {
		def = snap.Channels()[0]
	}
	if def == nil {
		obslog.L().Warn("no_default_channel")
		m.settings.SetDefaultChannel("")
		return nil
	}
	m.settings.SetDefaultChannel(def.ID)
	obslog.L().Info("settings_loaded",
		zap.Int("channels", len(snap.Channels())),
		zap.String("default_channel", def.ID),
	)
	return nil
}

// Reload clears all player settings state, then loads.
func (m *Manager) Reload(ctx context.Context) error {
	m.settings.Clear(ctx)
	return m.Load()
}

func (m *Manager) snapshot() *Settings {
	return m.snap.Load()
}

// HandleMessage is the primary entry point for ordinary chat input. A
// message starting with (but not equal to) a channel's selector prefix
// routes to that channel with the prefix stripped; otherwise the sender's
// selected channel applies, falling back to the global channel when the
// selection no longer exists.
func (m *Manager) HandleMessage(ctx context.Context, sender Participant, raw string) error {
	snap := m.snapshot()
	channel := m.channelFromSelector(snap, raw)
	if channel != nil {
		raw = raw[len(channel.SelectorPrefix):]
	} else {
		channel = m.currentChannel(ctx, snap, sender)
		if channel == nil {
			return chatdto.NewChatError(chatdto.ChannelNotFound, "Channel not found")
		}
	}
	return m.send(ctx, sender, raw, channel)
}

// SendMessage is the explicit-channel send used by shortcut entry
// points.
func (m *Manager) SendMessage(ctx context.Context, sender Participant, raw, channelID string) error {
	channel := m.snapshot().Channel(channelID)
	if channel == nil {
		return chatdto.NewChatError(chatdto.ChannelNotFound, "Channel not found")
	}
	return m.send(ctx, sender, raw, channel)
}

func (m *Manager) send(ctx context.Context, sender Participant, content string, channel *Channel) error {
	if !channel.Senders(sender) {
		return chatdto.NewChatError(chatdto.SenderNotEligible, "You cannot send a message in this channel.")
	}
	if m.settings.IsMutedIn(ctx, sender, channel.ID) {
		return chatdto.NewChatError(chatdto.SenderMuted, "You are muted in this channel.")
	}

	msg := NewMessage(sender, content)
	formatted := channel.Formatter.Prepare(msg)
	m.logToConsole(formatted, nil)

	for _, recipient := range m.roster.List() {
		if m.settings.IsHidden(ctx, recipient, channel.ID) {
			continue
		}
		opts := RecipientOptions{SocialSpy: m.socialSpyActive(ctx, recipient)}
		visibility := channel.Recipients(sender, recipient, opts)
		if !visibility.Visible() {
			continue
		}
		text := formatted.ForRecipient(recipient, MessageOptions{SocialSpy: visibility == VisibilitySocialSpy})
		m.sink.Deliver(recipient, text)
	}
	return nil
}

// logToConsole emits the simplified console rendering with all control
// sequences stripped.
func (m *Manager) logToConsole(formatted *FormattedMessage, recipient Participant) {
	text := formatted.ForRecipient(recipient, MessageOptions{})
	m.sink.LogToConsole(formattingRegex.ReplaceAllString(text, ""))
}

// socialSpyActive revalidates the spy flag against the permission
// backend. A revoked permission clears the flag as a side effect and
// counts as not spying for this delivery.
func (m *Manager) socialSpyActive(ctx context.Context, p Participant) bool {
	if !m.settings.HasSocialSpy(ctx, p) {
		return false
	}
	allowed := m.perms.IsElevated(p) ||
		m.perms.HasPermission(p, PermAdminCommands) ||
		m.perms.HasPermission(p, PermSocialSpy)
	if !allowed {
		m.settings.DisableSocialSpy(ctx, p)
		obslog.L().Info("social_spy_revoked", zap.String("participant", p.ID().String()))
		return false
	}
	return true
}

// RespondToPrivateMessage targets whoever last private-messaged the
// sender.
func (m *Manager) RespondToPrivateMessage(ctx context.Context, sender Participant, content string) error {
	lastSender, ok := m.settings.LastMessageSender(ctx, sender)
	if !ok {
		return chatdto.NewChatError(chatdto.NoRecentSender, "Nobody sent you a message recently")
	}
	recipient := m.roster.FindByID(lastSender)
	return m.SendPrivateMessage(ctx, sender, recipient, content)
}

// SendPrivateMessage renders the three private-message views (console,
// sender, recipient) and delivers each to its sink. The reply pointer is
// recorded on the recipient only; replying to your own sent message is
// deliberately unsupported.
func (m *Manager) SendPrivateMessage(ctx context.Context, sender, recipient Participant, content string) error {
	if recipient == nil || !m.roster.IsConnected(recipient) {
		return chatdto.NewChatError(chatdto.RecipientUnavailable, "This player is not connected")
	}

	msg := NewMessage(sender, content)
	pm := m.snapshot().PrivateMessages

	m.logToConsole(pm.Console.Prepare(msg), recipient)
	m.sink.Deliver(sender, pm.SenderIsYou.Prepare(msg).ForRecipient(recipient, MessageOptions{}))
	m.sink.Deliver(recipient, pm.SenderIsOther.Prepare(msg).ForRecipient(recipient, MessageOptions{}))

	m.settings.SetLastMessageSender(ctx, recipient, sender.ID())
	return nil
}

// ChangeTargetedChannel updates the participant's selected channel.
func (m *Manager) ChangeTargetedChannel(ctx context.Context, p Participant, channelID string) error {
	if m.snapshot().Channel(channelID) == nil {
		return chatdto.NewChatError(chatdto.ChannelNotFound, "Channel not found")
	}
	m.settings.ChangeActiveChannel(ctx, p, channelID)
	return nil
}

// ChannelStatuses lists the channels the participant may send in, with
// their selected/hidden state.
func (m *Manager) ChannelStatuses(ctx context.Context, p Participant) []chatdto.ChannelStatus {
	current := m.settings.CurrentChannel(ctx, p)
	var out []chatdto.ChannelStatus
	for _, ch := range m.snapshot().Channels() {
		if !ch.Senders(p) {
			continue
		}
		out = append(out, chatdto.ChannelStatus{
			ChannelID: ch.ID,
			Selected:  ch.ID == current,
			Hidden:    m.settings.IsHidden(ctx, p, ch.ID),
		})
	}
	return out
}

// ToggleHiddenChannel flips the hidden flag and returns the new state.
func (m *Manager) ToggleHiddenChannel(ctx context.Context, p Participant, channelID string) (bool, error) {
	if m.snapshot().Channel(channelID) == nil {
		return false, chatdto.NewChatError(chatdto.ChannelNotFound, "Channel not found")
	}
	return m.settings.ToggleHidden(ctx, p, channelID), nil
}

// MuteInChannels mutes the participant in every listed channel.
func (m *Manager) MuteInChannels(ctx context.Context, p Participant, channelIDs []string) {
	m.settings.MuteInChannels(ctx, p, channelIDs)
}

// UnmuteInChannels lifts mutes in every listed channel.
func (m *Manager) UnmuteInChannels(ctx context.Context, p Participant, channelIDs []string) {
	m.settings.UnmuteInChannels(ctx, p, channelIDs)
}

// EnableSocialSpy turns on the spy flag for the participant.
func (m *Manager) EnableSocialSpy(ctx context.Context, p Participant) {
	m.settings.EnableSocialSpy(ctx, p)
}

// DisableSocialSpy turns off the spy flag for the participant.
func (m *Manager) DisableSocialSpy(ctx context.Context, p Participant) {
	m.settings.DisableSocialSpy(ctx, p)
}

// Channel looks up a channel in the current snapshot.
func (m *Manager) Channel(id string) *Channel {
	return m.snapshot().Channel(id)
}

// Channels returns the current registry in lexicographic id order.
func (m *Manager) Channels() []*Channel {
	return m.snapshot().Channels()
}

// LocalChannelDistance returns the proximity cutoff from the current
// snapshot.
func (m *Manager) LocalChannelDistance() int {
	return m.snapshot().LocalChannelDistance
}

func (m *Manager) channelFromSelector(snap *Settings, raw string) *Channel {
	for _, ch := range snap.Channels() {
		if ch.SelectorPrefix == "" {
			continue
		}
		if strings.HasPrefix(raw, ch.SelectorPrefix) && raw != ch.SelectorPrefix {
			return ch
		}
	}
	return nil
}

func (m *Manager) currentChannel(ctx context.Context, snap *Settings, p Participant) *Channel {
	channel := snap.Channel(m.settings.CurrentChannel(ctx, p))
	if channel == nil {
		channel = snap.Channel(GlobalChannelID)
	}
	return channel
}
