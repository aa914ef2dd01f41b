package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/BenderTales/tales-chat-api/pkg/chatdto"
)

type fakeRoster struct {
	participants []Participant
}

func (r *fakeRoster) List() []Participant { return r.participants }

func (r *fakeRoster) FindByID(id uuid.UUID) Participant {
	for _, p := range r.participants {
		if p.ID() == id {
			return p
		}
	}
	return nil
}

func (r *fakeRoster) IsConnected(p Participant) bool {
	return p != nil && r.FindByID(p.ID()) != nil
}

type delivery struct {
	to   string
	text string
}

type fakeSink struct {
	deliveries []delivery
	console    []string
}

func (s *fakeSink) Deliver(p Participant, text string) {
	s.deliveries = append(s.deliveries, delivery{to: p.Name(), text: text})
}

func (s *fakeSink) LogToConsole(text string) {
	s.console = append(s.console, text)
}

func (s *fakeSink) textsFor(name string) []string {
	var out []string
	for _, d := range s.deliveries {
		if d.to == name {
			out = append(out, d.text)
		}
	}
	return out
}

type fakeSource struct {
	snap *Settings
	err  error
}

func (s *fakeSource) LoadSettings() (*Settings, error) { return s.snap, s.err }

func testPMFormatters() PrivateMessageFormatters {
	return PrivateMessageFormatters{
		Console:       NewMessageFormatter("[PM] %SENDER% -> %RECIPIENT%: %MESSAGE%", nil),
		SenderIsYou:   NewMessageFormatter("You -> %RECIPIENT%: %MESSAGE%", nil),
		SenderIsOther: NewMessageFormatter("%SENDER% -> You: %MESSAGE%", nil),
	}
}

// compileDefaults builds the built-in channels with their default
// formats the way the configuration repository would.
func compileDefaults(perms Permissions, distance DistanceFunc) []*Channel {
	var out []*Channel
	for _, def := range DefaultChannels(perms, distance, 40) {
		out = append(out, &Channel{
			ID:             def.ID,
			SelectorPrefix: def.SelectorPrefix,
			Formatter:      NewMessageFormatter(def.DefaultFormat, nil),
			Senders:        def.Senders,
			Recipients:     def.Recipients,
		})
	}
	return out
}

func showAllChannel(id, prefix, format string) *Channel {
	return &Channel{
		ID:             id,
		SelectorPrefix: prefix,
		Formatter:      NewMessageFormatter(format, nil),
		Senders:        func(Participant) bool { return true },
		Recipients:     func(_, _ Participant, _ RecipientOptions) Visibility { return VisibilityShow },
	}
}

func testSettings(t *testing.T, defaultID string, channels []*Channel) *Settings {
	t.Helper()
	snap, err := NewSettings(defaultID, 40, testPMFormatters(), channels)
	if err != nil {
		t.Fatalf("NewSettings: %v", err)
	}
	return snap
}

func newTestManager(t *testing.T, snap *Settings, roster *fakeRoster, perms Permissions, sink *fakeSink) *Manager {
	t.Helper()
	m := NewManager(&fakeSource{snap: snap}, roster, perms, sink, NewSettingsStore(nil))
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestHandleMessageBroadcastsOnGlobal(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	bob := newTestParticipant("Bob")
	roster := &fakeRoster{participants: []Participant{alice, bob}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	if err := m.HandleMessage(ctx, alice, "hello"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	want := "[!]Alice> hello"
	for _, name := range []string{"Alice", "Bob"} {
		got := sink.textsFor(name)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s received %v, want [%q]", name, got, want)
		}
	}
	if len(sink.console) != 1 || sink.console[0] != want {
		t.Fatalf("console %v, want [%q]", sink.console, want)
	}
}

func TestSelectorPrefixRoutesAndStrips(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	// Selected channel is local; "!" routes to global anyway.
	if err := m.ChangeTargetedChannel(ctx, alice, LocalChannelID); err != nil {
		t.Fatalf("ChangeTargetedChannel: %v", err)
	}
	if err := m.HandleMessage(ctx, alice, "!hey"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := sink.textsFor("Alice"); len(got) != 1 || got[0] != "[!]Alice> hey" {
		t.Fatalf("prefixed send rendered %v", got)
	}
}

func TestMessageEqualToPrefixIsNotChannelSelecting(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	if err := m.HandleMessage(ctx, alice, "!"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	// Falls through to the selected (global) channel with "!" as content.
	if got := sink.textsFor("Alice"); len(got) != 1 || got[0] != "[!]Alice> !" {
		t.Fatalf("bare prefix rendered %v", got)
	}
}

func TestSendMessageUnknownChannel(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), &fakeRoster{}, perms, &fakeSink{})

	err := m.SendMessage(ctx, alice, "hi", "nosuch")
	if reasonOf(t, err) != "CHANNEL_NOT_FOUND" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSenderNotEligible(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	outsider := newTestParticipant("Outsider")
	roster := &fakeRoster{participants: []Participant{outsider}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	err := m.SendMessage(ctx, outsider, "hi", StaffChannelID)
	if reasonOf(t, err) != "SENDER_NOT_ELIGIBLE" {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.deliveries) != 0 {
		t.Fatalf("rejected send still delivered: %v", sink.deliveries)
	}
}

func TestSenderMuted(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	m.MuteInChannels(ctx, alice, []string{GlobalChannelID})
	err := m.HandleMessage(ctx, alice, "hello")
	if reasonOf(t, err) != "SENDER_MUTED" {
		t.Fatalf("unexpected error: %v", err)
	}

	m.UnmuteInChannels(ctx, alice, []string{GlobalChannelID})
	if err := m.HandleMessage(ctx, alice, "hello"); err != nil {
		t.Fatalf("unmuted send: %v", err)
	}
}

func TestHiddenChannelNeverDelivered(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	bob := newTestParticipant("Bob")
	roster := &fakeRoster{participants: []Participant{alice, bob}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	hidden, err := m.ToggleHiddenChannel(ctx, bob, GlobalChannelID)
	if err != nil || !hidden {
		t.Fatalf("ToggleHiddenChannel = %v, %v", hidden, err)
	}
	if err := m.HandleMessage(ctx, alice, "hello"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := sink.textsFor("Bob"); len(got) != 0 {
		t.Fatalf("hidden channel still delivered: %v", got)
	}
	if got := sink.textsFor("Alice"); len(got) != 1 {
		t.Fatalf("other recipients affected: %v", got)
	}
}

func TestHiddenChannelSuppressesSendersOwnCopy(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	if _, err := m.ToggleHiddenChannel(ctx, alice, GlobalChannelID); err != nil {
		t.Fatalf("ToggleHiddenChannel: %v", err)
	}
	if err := m.HandleMessage(ctx, alice, "hello"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := sink.textsFor("Alice"); len(got) != 0 {
		t.Fatalf("sender received own message on hidden channel: %v", got)
	}
}

func TestConsoleOutputStripsFormattingCodes(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}
	styled := showAllChannel("styled", "", "§3[S]§r%SENDER%> %MESSAGE%")
	m := newTestManager(t, testSettings(t, "styled", []*Channel{styled}), roster, perms, sink)

	if err := m.SendMessage(ctx, alice, "ok §ccolored", "styled"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(sink.console) != 1 {
		t.Fatalf("console entries: %v", sink.console)
	}
	if strings.Contains(sink.console[0], "§") {
		t.Fatalf("console line still styled: %q", sink.console[0])
	}
	if got := sink.textsFor("Alice"); len(got) != 1 || !strings.Contains(got[0], "§3") {
		t.Fatalf("recipient rendering lost styling: %v", got)
	}
}

func TestSocialSpyDeliveryCarriesMarker(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	staffer := newTestParticipant("Staffer")
	spy := newTestParticipant("Spy")
	perms.grant(staffer, PermStaffChannel)
	perms.grant(spy, PermSocialSpy)
	roster := &fakeRoster{participants: []Participant{staffer, spy}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	m.EnableSocialSpy(ctx, spy)
	if err := m.SendMessage(ctx, staffer, "secret", StaffChannelID); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	got := sink.textsFor("Spy")
	if len(got) != 1 || !strings.HasPrefix(got[0], "§m*§r") {
		t.Fatalf("spy rendering %v, want marker prefix", got)
	}
	direct := sink.textsFor("Staffer")
	if len(direct) != 1 || strings.HasPrefix(direct[0], "§m*§r") {
		t.Fatalf("direct rendering %v, must not carry marker", direct)
	}
}

func TestSocialSpyRevocationClearsFlag(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	staffer := newTestParticipant("Staffer")
	spy := newTestParticipant("Spy")
	perms.grant(staffer, PermStaffChannel)
	perms.grant(spy, PermSocialSpy)
	roster := &fakeRoster{participants: []Participant{staffer, spy}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	m.EnableSocialSpy(ctx, spy)
	perms.revoke(spy, PermSocialSpy)

	if err := m.SendMessage(ctx, staffer, "secret", StaffChannelID); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got := sink.textsFor("Spy"); len(got) != 0 {
		t.Fatalf("revoked spy still delivered: %v", got)
	}
	if m.settings.HasSocialSpy(ctx, spy) {
		t.Fatalf("spy flag not cleared after revocation")
	}
}

func TestPrivateMessageViewsAndReplyPointer(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	bob := newTestParticipant("Bob")
	roster := &fakeRoster{participants: []Participant{alice, bob}}
	sink := &fakeSink{}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, sink)

	if err := m.SendPrivateMessage(ctx, alice, bob, "hi"); err != nil {
		t.Fatalf("SendPrivateMessage: %v", err)
	}
	if got := sink.textsFor("Alice"); len(got) != 1 || got[0] != "You -> Bob: hi" {
		t.Fatalf("sender view %v", got)
	}
	if got := sink.textsFor("Bob"); len(got) != 1 || got[0] != "Alice -> You: hi" {
		t.Fatalf("recipient view %v", got)
	}
	if len(sink.console) != 1 || sink.console[0] != "[PM] Alice -> Bob: hi" {
		t.Fatalf("console view %v", sink.console)
	}

	// Only the recipient gains a reply target.
	if err := m.RespondToPrivateMessage(ctx, alice, "me again"); reasonOf(t, err) != "NO_RECENT_SENDER" {
		t.Fatalf("sender reply error: %v", err)
	}
	if err := m.RespondToPrivateMessage(ctx, bob, "hello back"); err != nil {
		t.Fatalf("recipient reply: %v", err)
	}
	if got := sink.textsFor("Alice"); len(got) != 2 || got[1] != "Bob -> You: hello back" {
		t.Fatalf("reply delivery %v", got)
	}
}

func TestPrivateMessageRecipientUnavailable(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	ghost := newTestParticipant("Ghost")
	roster := &fakeRoster{participants: []Participant{alice}}
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), roster, perms, &fakeSink{})

	if err := m.SendPrivateMessage(ctx, alice, ghost, "hi"); reasonOf(t, err) != "RECIPIENT_UNAVAILABLE" {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SendPrivateMessage(ctx, alice, nil, "hi"); reasonOf(t, err) != "RECIPIENT_UNAVAILABLE" {
		t.Fatalf("nil recipient error: %v", err)
	}
}

func TestChangeTargetedChannelUnknownKeepsSelection(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), &fakeRoster{}, perms, &fakeSink{})

	if err := m.ChangeTargetedChannel(ctx, alice, LocalChannelID); err != nil {
		t.Fatalf("ChangeTargetedChannel: %v", err)
	}
	if err := m.ChangeTargetedChannel(ctx, alice, "nosuch"); reasonOf(t, err) != "CHANNEL_NOT_FOUND" {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.settings.CurrentChannel(ctx, alice); got != LocalChannelID {
		t.Fatalf("selection changed to %q", got)
	}
}

func TestReloadClearsPlayerState(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	perms.grant(alice, PermSocialSpy)
	m := newTestManager(t, testSettings(t, GlobalChannelID, compileDefaults(perms, nil)), &fakeRoster{}, perms, &fakeSink{})

	if err := m.ChangeTargetedChannel(ctx, alice, LocalChannelID); err != nil {
		t.Fatalf("ChangeTargetedChannel: %v", err)
	}
	m.EnableSocialSpy(ctx, alice)

	if err := m.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := m.settings.CurrentChannel(ctx, alice); got != GlobalChannelID {
		t.Fatalf("selection survived reload: %q", got)
	}
	if m.settings.HasSocialSpy(ctx, alice) {
		t.Fatalf("spy flag survived reload")
	}
}

func TestLoadFallsBackWhenDefaultChannelMissing(t *testing.T) {
	ctx := context.Background()
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	roster := &fakeRoster{participants: []Participant{alice}}
	sink := &fakeSink{}

	// Registry without the configured default and without global: the
	// first channel in id order becomes the effective default.
	channels := []*Channel{
		showAllChannel("beta", "", "[B]%SENDER%> %MESSAGE%"),
		showAllChannel("alpha", "", "[A]%SENDER%> %MESSAGE%"),
	}
	m := newTestManager(t, testSettings(t, GlobalChannelID, channels), roster, perms, sink)

	if err := m.HandleMessage(ctx, alice, "hey"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if got := sink.textsFor("Alice"); len(got) != 1 || got[0] != "[A]Alice> hey" {
		t.Fatalf("fallback rendering %v", got)
	}
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	return string(chatdto.ReasonOf(err))
}
