package chat

import "testing"

type fakePerms struct {
	ops    map[string]bool
	grants map[string]map[string]bool
}

func newFakePerms() *fakePerms {
	return &fakePerms{ops: make(map[string]bool), grants: make(map[string]map[string]bool)}
}

func (fp *fakePerms) grant(p Participant, key string) {
	set := fp.grants[p.Name()]
	if set == nil {
		set = make(map[string]bool)
		fp.grants[p.Name()] = set
	}
	set[key] = true
}

func (fp *fakePerms) revoke(p Participant, key string) {
	delete(fp.grants[p.Name()], key)
}

func (fp *fakePerms) HasPermission(p Participant, key string) bool {
	return fp.grants[p.Name()][key]
}

func (fp *fakePerms) IsElevated(p Participant) bool {
	return fp.ops[p.Name()]
}

func defaultByID(t *testing.T, defs []ChannelDefault, id string) ChannelDefault {
	t.Helper()
	for _, def := range defs {
		if def.ID == id {
			return def
		}
	}
	t.Fatalf("no built-in channel %q", id)
	return ChannelDefault{}
}

func TestGlobalChannelShowsEveryone(t *testing.T) {
	perms := newFakePerms()
	def := defaultByID(t, DefaultChannels(perms, nil, 40), GlobalChannelID)

	alice := newTestParticipant("Alice")
	bob := newTestParticipant("Bob")
	if !def.Senders(alice) {
		t.Fatalf("global must accept any sender")
	}
	if got := def.Recipients(alice, bob, RecipientOptions{}); got != VisibilityShow {
		t.Fatalf("global visibility = %v, want Show", got)
	}
}

func TestRestrictedChannelPolicies(t *testing.T) {
	perms := newFakePerms()
	def := defaultByID(t, DefaultChannels(perms, nil, 40), StaffChannelID)

	staff := newTestParticipant("Staffer")
	perms.grant(staff, PermStaffChannel)
	outsider := newTestParticipant("Outsider")
	op := newTestParticipant("Op")
	perms.ops[op.Name()] = true

	if !def.Senders(staff) || !def.Senders(op) {
		t.Fatalf("staffer and operator must be eligible senders")
	}
	if def.Senders(outsider) {
		t.Fatalf("outsider must not be an eligible sender")
	}

	if got := def.Recipients(staff, op, RecipientOptions{}); got != VisibilityShow {
		t.Fatalf("operator visibility = %v, want Show", got)
	}
	if got := def.Recipients(staff, outsider, RecipientOptions{}); got != VisibilityHide {
		t.Fatalf("outsider visibility = %v, want Hide", got)
	}
	if got := def.Recipients(staff, outsider, RecipientOptions{SocialSpy: true}); got != VisibilitySocialSpy {
		t.Fatalf("spying outsider visibility = %v, want SocialSpy", got)
	}
}

func TestLocalChannelUsesDistance(t *testing.T) {
	perms := newFakePerms()
	alice := newTestParticipant("Alice")
	near := newTestParticipant("Near")
	far := newTestParticipant("Far")

	distance := func(a, b Participant) (float64, bool) {
		if b.Name() == "Near" {
			return 10, true
		}
		return 0, false
	}
	def := defaultByID(t, DefaultChannels(perms, distance, 40), LocalChannelID)

	if got := def.Recipients(alice, alice, RecipientOptions{}); got != VisibilityShow {
		t.Fatalf("sender must see own local message, got %v", got)
	}
	if got := def.Recipients(alice, near, RecipientOptions{}); got != VisibilityShow {
		t.Fatalf("in-range visibility = %v, want Show", got)
	}
	if got := def.Recipients(alice, far, RecipientOptions{}); got != VisibilityHide {
		t.Fatalf("out-of-range visibility = %v, want Hide", got)
	}
	if got := def.Recipients(alice, far, RecipientOptions{SocialSpy: true}); got != VisibilitySocialSpy {
		t.Fatalf("spying out-of-range visibility = %v, want SocialSpy", got)
	}
}

func TestNewSettingsRejectsDuplicateSelectorPrefixes(t *testing.T) {
	a := &Channel{ID: "a", SelectorPrefix: "!"}
	b := &Channel{ID: "b", SelectorPrefix: "!"}
	if _, err := NewSettings("a", 40, PrivateMessageFormatters{}, []*Channel{a, b}); err == nil {
		t.Fatalf("expected duplicate prefix error")
	}
}

func TestSettingsChannelsSortedByID(t *testing.T) {
	chs := []*Channel{{ID: "zeta"}, {ID: "alpha"}, {ID: "mid"}}
	s, err := NewSettings("alpha", 40, PrivateMessageFormatters{}, chs)
	if err != nil {
		t.Fatalf("NewSettings: %v", err)
	}
	got := s.Channels()
	if got[0].ID != "alpha" || got[1].ID != "mid" || got[2].ID != "zeta" {
		t.Fatalf("unexpected order: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
}
