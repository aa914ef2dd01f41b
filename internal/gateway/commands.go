package gateway

import (
	"context"
	"strings"

	"github.com/BenderTales/tales-chat-api/internal/chat"
)

// Channel shortcut send commands, mirroring the chat-command surface:
// each routes one message to a fixed channel without changing the
// sender's selection.
var shortcutChannels = map[string]string{
	"cstf": chat.StaffChannelID,
	"cadm": chat.AdminChannelID,
	"chel": chat.HelpersChannelID,
	"cmod": chat.ModerationChannelID,
}

// handleLine routes one inbound line: slash commands go to the command
// surface, everything else is ordinary chat input. Pipeline failures are
// translated into feedback text for the sender, never logged as faults.
func (s *Server) handleLine(ctx context.Context, sess *Session, line string) {
	if !strings.HasPrefix(line, "/") {
		if err := s.manager.HandleMessage(ctx, sess, line); err != nil {
			sess.deliver(err.Error())
		}
		return
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	if channelID, ok := shortcutChannels[cmd]; ok {
		rest := strings.TrimSpace(strings.TrimPrefix(line[1:], cmd))
		if rest == "" {
			sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/" + cmd + " <message>"}))
			return
		}
		if err := s.manager.SendMessage(ctx, sess, rest, channelID); err != nil {
			sess.deliver(err.Error())
		}
		return
	}

	switch cmd {
	case "channel":
		s.cmdChannel(ctx, sess, args)
	case "msg":
		s.cmdPrivateMessage(ctx, sess, args)
	case "r":
		s.cmdReply(ctx, sess, line)
	case "mute":
		s.cmdMute(ctx, sess, args, true)
	case "unmute":
		s.cmdMute(ctx, sess, args, false)
	default:
		sess.deliver(s.catalog.Render("error.unknown_command", map[string]string{"Command": cmd}))
	}
}

func (s *Server) cmdChannel(ctx context.Context, sess *Session, args []string) {
	if len(args) == 0 {
		sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/channel list|join|hide|socialspy"}))
		return
	}
	switch args[0] {
	case "list":
		sess.deliver(s.catalog.Render("channel.list_header", nil))
		for _, status := range s.manager.ChannelStatuses(ctx, sess) {
			state := s.catalog.Render("channel.visible", nil)
			if status.Hidden {
				state = s.catalog.Render("channel.hidden", nil)
			}
			name := status.ChannelID
			if status.Selected {
				name = "* " + name
			}
			sess.deliver(s.catalog.Render("channel.list_entry", map[string]string{"Channel": name, "Status": state}))
		}
	case "join":
		if len(args) != 2 {
			sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/channel join <id>"}))
			return
		}
		if err := s.manager.ChangeTargetedChannel(ctx, sess, args[1]); err != nil {
			sess.deliver(err.Error())
			return
		}
		sess.deliver(s.catalog.Render("channel.joined", map[string]string{"Channel": args[1]}))
	case "hide":
		if len(args) != 2 {
			sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/channel hide <id>"}))
			return
		}
		hidden, err := s.manager.ToggleHiddenChannel(ctx, sess, args[1])
		if err != nil {
			sess.deliver(err.Error())
			return
		}
		key := "channel.hide_off"
		if hidden {
			key = "channel.hide_on"
		}
		sess.deliver(s.catalog.Render(key, map[string]string{"Channel": args[1]}))
	case "socialspy":
		s.cmdSocialSpy(ctx, sess, args[1:])
	default:
		sess.deliver(s.catalog.Render("error.unknown_command", map[string]string{"Command": "channel " + args[0]}))
	}
}

func (s *Server) cmdSocialSpy(ctx context.Context, sess *Session, args []string) {
	allowed := s.perms.IsElevated(sess) ||
		s.perms.HasPermission(sess, chat.PermAdminCommands) ||
		s.perms.HasPermission(sess, chat.PermSocialSpy)
	if !allowed {
		sess.deliver(s.catalog.Render("error.not_permitted", nil))
		return
	}
	if len(args) == 1 && args[0] == "off" {
		s.manager.DisableSocialSpy(ctx, sess)
		sess.deliver(s.catalog.Render("socialspy.disabled", nil))
		return
	}
	s.manager.EnableSocialSpy(ctx, sess)
	sess.deliver(s.catalog.Render("socialspy.enabled", nil))
}

func (s *Server) cmdPrivateMessage(ctx context.Context, sess *Session, args []string) {
	if len(args) < 2 {
		sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/msg <player> <message>"}))
		return
	}
	recipient := s.FindByName(args[0])
	if recipient == nil {
		sess.deliver(s.catalog.Render("error.player_not_found", map[string]string{"Player": args[0]}))
		return
	}
	text := strings.Join(args[1:], " ")
	if err := s.manager.SendPrivateMessage(ctx, sess, recipient, text); err != nil {
		sess.deliver(err.Error())
	}
}

func (s *Server) cmdReply(ctx context.Context, sess *Session, line string) {
	text := strings.TrimSpace(strings.TrimPrefix(line, "/r"))
	if text == "" {
		sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": "/r <message>"}))
		return
	}
	if err := s.manager.RespondToPrivateMessage(ctx, sess, text); err != nil {
		sess.deliver(err.Error())
	}
}

func (s *Server) cmdMute(ctx context.Context, sess *Session, args []string, mute bool) {
	if !s.perms.IsElevated(sess) && !s.perms.HasPermission(sess, chat.PermAdminCommands) {
		sess.deliver(s.catalog.Render("error.not_permitted", nil))
		return
	}
	if len(args) < 2 {
		usage := "/mute <player> <channel...>"
		if !mute {
			usage = "/unmute <player> <channel...>"
		}
		sess.deliver(s.catalog.Render("error.usage", map[string]string{"Usage": usage}))
		return
	}
	target := s.FindByName(args[0])
	if target == nil {
		sess.deliver(s.catalog.Render("error.player_not_found", map[string]string{"Player": args[0]}))
		return
	}
	channels := args[1:]
	key := "mute.muted"
	if mute {
		s.manager.MuteInChannels(ctx, target, channels)
	} else {
		s.manager.UnmuteInChannels(ctx, target, channels)
		key = "mute.unmuted"
	}
	sess.deliver(s.catalog.Render(key, map[string]string{
		"Player":   args[0],
		"Channels": strings.Join(channels, ", "),
	}))
}
