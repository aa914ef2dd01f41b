package chat

// Built-in channel ids.
const (
	GlobalChannelID     = "global"
	LocalChannelID      = "local"
	StaffChannelID      = "staff"
	AdminChannelID      = "admin"
	HelpersChannelID    = "helpers"
	ModerationChannelID = "moderation"
)

// Permission keys consulted by channel policies and social spy.
const (
	PermStaffChannel      = "chat.channel.staff"
	PermAdminChannel      = "chatapi.channels.admins"
	PermHelpersChannel    = "chatapi.channels.helpers"
	PermModerationChannel = "chatapi.channels.moderation"
	PermAdminCommands     = "chatapi.commands.admin"
	PermSocialSpy         = "chatapi.commands.socialspy"
)

// SenderPolicy decides whether a participant may send in a channel.
type SenderPolicy func(sender Participant) bool

// RecipientPolicy decides how one recipient sees one message.
type RecipientPolicy func(sender, recipient Participant, opts RecipientOptions) Visibility

// Channel is an immutable routing policy: who may send, who may see,
// and how the message is formatted. Built at load time and replaced
// wholesale on reload.
type Channel struct {
	ID             string
	SelectorPrefix string // "" when the channel has no inline selector
	Formatter      *MessageFormatter
	Senders        SenderPolicy
	Recipients     RecipientPolicy
}

// ChannelDefault is a built-in channel definition. Configuration can
// disable a channel or override its format, never change its policies.
type ChannelDefault struct {
	ID               string
	SelectorPrefix   string
	DefaultFormat    string
	EnabledByDefault bool
	Senders          SenderPolicy
	Recipients       RecipientPolicy
}

// DefaultChannels returns the closed set of built-in channels. Behavior
// differences between channel kinds are expressed purely as distinct
// policy values plugged into the same Channel shape. localDistance is
// the proximity cutoff for the local channel at this load.
func DefaultChannels(perms Permissions, distance DistanceFunc, localDistance int) []ChannelDefault {
	anyone := func(Participant) bool { return true }
	showAll := func(_, _ Participant, _ RecipientOptions) Visibility { return VisibilityShow }

	local := func(sender, recipient Participant, opts RecipientOptions) Visibility {
		if sender.ID() == recipient.ID() {
			return VisibilityShow
		}
		if distance != nil {
			if d, ok := distance(sender, recipient); ok && d <= float64(localDistance) {
				return VisibilityShow
			}
		}
		if opts.SocialSpy {
			return VisibilitySocialSpy
		}
		return VisibilityHide
	}

	return []ChannelDefault{
		{
			ID:               GlobalChannelID,
			SelectorPrefix:   "!",
			DefaultFormat:    "[!]%SENDER%> %MESSAGE%",
			EnabledByDefault: true,
			Senders:          anyone,
			Recipients:       showAll,
		},
		{
			ID:               LocalChannelID,
			SelectorPrefix:   "~",
			DefaultFormat:    "[L]%SENDER%> %MESSAGE%",
			EnabledByDefault: true,
			Senders:          anyone,
			Recipients:       local,
		},
		restrictedChannel(perms, StaffChannelID, "[STAFF]%SENDER%> %MESSAGE%", PermStaffChannel),
		restrictedChannel(perms, AdminChannelID, "[ADMIN]%SENDER%> %MESSAGE%", PermAdminChannel),
		restrictedChannel(perms, HelpersChannelID, "[HELP]%SENDER%> %MESSAGE%", PermHelpersChannel),
		restrictedChannel(perms, ModerationChannelID, "[MOD]%SENDER%> %MESSAGE%", PermModerationChannel),
	}
}

// restrictedChannel builds a permission-gated channel: sender and
// recipient both need the permission (or elevated status). A recipient
// without it sees the message only as a spy observation.
func restrictedChannel(perms Permissions, id, format, permission string) ChannelDefault {
	allowed := func(p Participant) bool {
		return perms.IsElevated(p) || perms.HasPermission(p, permission)
	}
	return ChannelDefault{
		ID:               id,
		DefaultFormat:    format,
		EnabledByDefault: true,
		Senders:          allowed,
		Recipients: func(_, recipient Participant, opts RecipientOptions) Visibility {
			if allowed(recipient) {
				return VisibilityShow
			}
			if opts.SocialSpy {
				return VisibilitySocialSpy
			}
			return VisibilityHide
		},
	}
}
