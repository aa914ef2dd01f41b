package chatconf

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/BenderTales/tales-chat-api/internal/chat"
	"github.com/BenderTales/tales-chat-api/internal/obslog"
)

const minLocalChannelDistance = 4

// Repository reads chat settings from a YAML file and compiles them into
// a chat.Settings snapshot. A missing or corrupt file falls back to
// built-in defaults; entries missing from the file are backfilled with
// defaults and written back so operators can discover them.
type Repository struct {
	path     string
	perms    chat.Permissions
	distance chat.DistanceFunc
}

func NewRepository(path string, perms chat.Permissions, distance chat.DistanceFunc) *Repository {
	return &Repository{path: path, perms: perms, distance: distance}
}

// LoadSettings implements chat.SettingsSource.
func (r *Repository) LoadSettings() (*chat.Settings, error) {
	props := r.tryReadProperties()
	r.updateFileIfNecessary(props)

	placeholders := configuredPlaceholders(props)
	channels := r.prepareChannels(props, placeholders)

	pm := chat.PrivateMessageFormatters{
		Console:       chat.NewMessageFormatter(props.PrivateMessages.ConsoleFormat, placeholders),
		SenderIsYou:   chat.NewMessageFormatter(props.PrivateMessages.SenderIsYouFormat, placeholders),
		SenderIsOther: chat.NewMessageFormatter(props.PrivateMessages.SenderIsOtherFormat, placeholders),
	}

	return chat.NewSettings(props.DefaultChannel, props.LocalChannelDistance, pm, channels)
}

func (r *Repository) tryReadProperties() *Properties {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			obslog.L().Warn("config_read_failed", zap.String("path", r.path), zap.Error(err))
		}
		return defaultProperties()
	}
	var props Properties
	if err := yaml.Unmarshal(raw, &props); err != nil {
		obslog.L().Warn("config_parse_failed", zap.String("path", r.path), zap.Error(err))
		return defaultProperties()
	}
	if props.Channels == nil {
		props.Channels = make(map[string]*ChannelProperties)
	}
	if props.Placeholders == nil {
		props.Placeholders = make(map[string]*PlaceholderProperties)
	}
	if props.DefaultChannel == "" {
		props.DefaultChannel = chat.GlobalChannelID
	}
	applyPrivateMessageDefaults(&props.PrivateMessages)
	return &props
}

func defaultProperties() *Properties {
	props := &Properties{
		DefaultChannel:       chat.GlobalChannelID,
		LocalChannelDistance: 40,
		Channels:             make(map[string]*ChannelProperties),
		Placeholders:         make(map[string]*PlaceholderProperties),
	}
	applyPrivateMessageDefaults(&props.PrivateMessages)
	return props
}

func applyPrivateMessageDefaults(pm *PrivateMessageProperties) {
	if pm.ConsoleFormat == "" {
		pm.ConsoleFormat = "[PM] %SENDER% -> %RECIPIENT%: %MESSAGE%"
	}
	if pm.SenderIsYouFormat == "" {
		pm.SenderIsYouFormat = "You -> %RECIPIENT%: %MESSAGE%"
	}
	if pm.SenderIsOtherFormat == "" {
		pm.SenderIsOtherFormat = "%SENDER% -> You: %MESSAGE%"
	}
}

// updateFileIfNecessary clamps out-of-range values and backfills entries
// for every built-in channel and placeholder the file does not know yet,
// persisting the result. Write failures are logged, never fatal.
func (r *Repository) updateFileIfNecessary(props *Properties) {
	changed := false

	if props.LocalChannelDistance < minLocalChannelDistance {
		props.LocalChannelDistance = minLocalChannelDistance
		changed = true
	}

	for _, h := range chat.Handlers() {
		if _, ok := props.Placeholders[string(h.ID)]; !ok {
			props.Placeholders[string(h.ID)] = &PlaceholderProperties{ApplicationOrder: h.DefaultOrder}
			changed = true
		}
	}

	for _, def := range r.channelDefaults(props.LocalChannelDistance) {
		if _, ok := props.Channels[def.ID]; !ok {
			props.Channels[def.ID] = &ChannelProperties{
				Disabled: !def.EnabledByDefault,
				Format:   def.DefaultFormat,
			}
			changed = true
		}
	}

	if changed {
		if err := r.writeProperties(props); err != nil {
			obslog.L().Warn("config_write_failed", zap.String("path", r.path), zap.Error(err))
		}
	}
}

func (r *Repository) writeProperties(props *Properties) error {
	raw, err := yaml.Marshal(props)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.path, raw, 0o644)
}

func (r *Repository) channelDefaults(localDistance int) []chat.ChannelDefault {
	return chat.DefaultChannels(r.perms, r.distance, localDistance)
}

func configuredPlaceholders(props *Properties) map[chat.PlaceholderID]chat.Placeholder {
	out := make(map[chat.PlaceholderID]chat.Placeholder)
	for _, h := range chat.Handlers() {
		order := h.DefaultOrder
		if p, ok := props.Placeholders[string(h.ID)]; ok {
			order = p.ApplicationOrder
		}
		out[h.ID] = h.Bind(order)
	}
	return out
}

func (r *Repository) prepareChannels(props *Properties, placeholders map[chat.PlaceholderID]chat.Placeholder) []*chat.Channel {
	var channels []*chat.Channel
	for _, def := range r.channelDefaults(props.LocalChannelDistance) {
		cp := props.Channels[def.ID]
		if cp != nil && cp.Disabled {
			continue
		}
		format := def.DefaultFormat
		if cp != nil && cp.Format != "" {
			format = cp.Format
		}
		channels = append(channels, &chat.Channel{
			ID:             def.ID,
			SelectorPrefix: def.SelectorPrefix,
			Formatter:      chat.NewMessageFormatter(format, placeholders),
			Senders:        def.Senders,
			Recipients:     def.Recipients,
		})
	}
	return channels
}

// Path returns the backing file path, for diagnostics.
func (r *Repository) Path() string { return r.path }

var _ chat.SettingsSource = (*Repository)(nil)
