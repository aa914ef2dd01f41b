package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BenderTales/tales-chat-api/internal/obslog"
)

// PlayerSettings is the mutable per-participant state. Entries are
// created lazily on first access and only mutated through SettingsStore.
type PlayerSettings struct {
	CurrentChannelID  string
	Hidden            map[string]bool
	Muted             map[string]bool
	SocialSpy         bool
	LastMessageSender uuid.UUID // uuid.Nil when nobody messaged yet
}

// StoredSettings is the serialized form used by persistent backends.
type StoredSettings struct {
	CurrentChannelID  string   `json:"current_channel"`
	HiddenChannels    []string `json:"hidden_channels,omitempty"`
	MutedChannels     []string `json:"muted_channels,omitempty"`
	SocialSpy         bool     `json:"social_spy,omitempty"`
	LastMessageSender string   `json:"last_message_sender,omitempty"`
}

// SettingsBackend optionally persists player settings across sessions.
// Load returns (nil, nil) when the participant has no stored entry.
type SettingsBackend interface {
	Load(ctx context.Context, id uuid.UUID) (*StoredSettings, error)
	Save(ctx context.Context, id uuid.UUID, s *StoredSettings) error
	Clear(ctx context.Context) error
}

// SettingsStore is the lazy-create map from participant identity to
// settings. Creation is performed under the store lock so concurrent
// first accesses for the same identity never produce duplicate entries.
type SettingsStore struct {
	mu               sync.Mutex
	byID             map[uuid.UUID]*PlayerSettings
	defaultChannelID string
	backend          SettingsBackend // may be nil
}

func NewSettingsStore(backend SettingsBackend) *SettingsStore {
	return &SettingsStore{
		byID:    make(map[uuid.UUID]*PlayerSettings),
		backend: backend,
	}
}

// SetDefaultChannel sets the channel assigned to fresh entries. Called by
// the manager after each load with the resolved default channel id.
func (s *SettingsStore) SetDefaultChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultChannelID = channelID
}

// getOrCreate must be called with the lock held.
func (s *SettingsStore) getOrCreate(ctx context.Context, p Participant) *PlayerSettings {
	ps, ok := s.byID[p.ID()]
	if ok {
		return ps
	}
	ps = &PlayerSettings{
		CurrentChannelID: s.defaultChannelID,
		Hidden:           make(map[string]bool),
		Muted:            make(map[string]bool),
	}
	if s.backend != nil {
		stored, err := s.backend.Load(ctx, p.ID())
		switch {
		case err != nil:
			obslog.L().Warn("settings_load_failed", zap.String("participant", p.ID().String()), zap.Error(err))
		case stored != nil:
			ps.apply(stored)
		}
	}
	s.byID[p.ID()] = ps
	return ps
}

func (ps *PlayerSettings) apply(stored *StoredSettings) {
	if stored.CurrentChannelID != "" {
		ps.CurrentChannelID = stored.CurrentChannelID
	}
	for _, id := range stored.HiddenChannels {
		ps.Hidden[id] = true
	}
	for _, id := range stored.MutedChannels {
		ps.Muted[id] = true
	}
	ps.SocialSpy = stored.SocialSpy
	if stored.LastMessageSender != "" {
		if id, err := uuid.Parse(stored.LastMessageSender); err == nil {
			ps.LastMessageSender = id
		}
	}
}

func (ps *PlayerSettings) stored() *StoredSettings {
	out := &StoredSettings{
		CurrentChannelID: ps.CurrentChannelID,
		SocialSpy:        ps.SocialSpy,
	}
	for id, on := range ps.Hidden {
		if on {
			out.HiddenChannels = append(out.HiddenChannels, id)
		}
	}
	for id, on := range ps.Muted {
		if on {
			out.MutedChannels = append(out.MutedChannels, id)
		}
	}
	if ps.LastMessageSender != uuid.Nil {
		out.LastMessageSender = ps.LastMessageSender.String()
	}
	return out
}

// mutate runs fn under the lock and persists the result best-effort.
// Persistence failures are logged, never surfaced: the in-memory state
// stays authoritative for the session.
func (s *SettingsStore) mutate(ctx context.Context, p Participant, fn func(ps *PlayerSettings)) {
	s.mu.Lock()
	ps := s.getOrCreate(ctx, p)
	fn(ps)
	var stored *StoredSettings
	if s.backend != nil {
		stored = ps.stored()
	}
	s.mu.Unlock()

	if stored != nil {
		if err := s.backend.Save(ctx, p.ID(), stored); err != nil {
			obslog.L().Warn("settings_save_failed", zap.String("participant", p.ID().String()), zap.Error(err))
		}
	}
}

func (s *SettingsStore) read(ctx context.Context, p Participant, fn func(ps *PlayerSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.getOrCreate(ctx, p))
}

// CurrentChannel returns the participant's selected channel id.
func (s *SettingsStore) CurrentChannel(ctx context.Context, p Participant) string {
	var id string
	s.read(ctx, p, func(ps *PlayerSettings) { id = ps.CurrentChannelID })
	return id
}

// ChangeActiveChannel updates the participant's selected channel.
func (s *SettingsStore) ChangeActiveChannel(ctx context.Context, p Participant, channelID string) {
	s.mutate(ctx, p, func(ps *PlayerSettings) { ps.CurrentChannelID = channelID })
}

// IsHidden reports whether the participant has hidden the channel.
// Defaults to not hidden.
func (s *SettingsStore) IsHidden(ctx context.Context, p Participant, channelID string) bool {
	var hidden bool
	s.read(ctx, p, func(ps *PlayerSettings) { hidden = ps.Hidden[channelID] })
	return hidden
}

// ToggleHidden flips the hidden flag and returns the new state.
func (s *SettingsStore) ToggleHidden(ctx context.Context, p Participant, channelID string) bool {
	var hidden bool
	s.mutate(ctx, p, func(ps *PlayerSettings) {
		if ps.Hidden[channelID] {
			delete(ps.Hidden, channelID)
		} else {
			ps.Hidden[channelID] = true
		}
		hidden = ps.Hidden[channelID]
	})
	return hidden
}

// MuteInChannels mutes the participant in every listed channel.
func (s *SettingsStore) MuteInChannels(ctx context.Context, p Participant, channelIDs []string) {
	s.mutate(ctx, p, func(ps *PlayerSettings) {
		for _, id := range channelIDs {
			ps.Muted[id] = true
		}
	})
}

// UnmuteInChannels lifts mutes in every listed channel.
func (s *SettingsStore) UnmuteInChannels(ctx context.Context, p Participant, channelIDs []string) {
	s.mutate(ctx, p, func(ps *PlayerSettings) {
		for _, id := range channelIDs {
			delete(ps.Muted, id)
		}
	})
}

// IsMutedIn reports whether the participant is muted in the channel.
func (s *SettingsStore) IsMutedIn(ctx context.Context, p Participant, channelID string) bool {
	var muted bool
	s.read(ctx, p, func(ps *PlayerSettings) { muted = ps.Muted[channelID] })
	return muted
}

// EnableSocialSpy turns the spy flag on. Idempotent.
func (s *SettingsStore) EnableSocialSpy(ctx context.Context, p Participant) {
	s.mutate(ctx, p, func(ps *PlayerSettings) { ps.SocialSpy = true })
}

// DisableSocialSpy turns the spy flag off. Idempotent.
func (s *SettingsStore) DisableSocialSpy(ctx context.Context, p Participant) {
	s.mutate(ctx, p, func(ps *PlayerSettings) { ps.SocialSpy = false })
}

// HasSocialSpy reports the raw spy flag, without permission
// revalidation.
func (s *SettingsStore) HasSocialSpy(ctx context.Context, p Participant) bool {
	var spy bool
	s.read(ctx, p, func(ps *PlayerSettings) { spy = ps.SocialSpy })
	return spy
}

// LastMessageSender returns the identity of whoever last private-messaged
// the participant, if anyone did.
func (s *SettingsStore) LastMessageSender(ctx context.Context, p Participant) (uuid.UUID, bool) {
	var id uuid.UUID
	s.read(ctx, p, func(ps *PlayerSettings) { id = ps.LastMessageSender })
	return id, id != uuid.Nil
}

// SetLastMessageSender records the reply target for the participant.
func (s *SettingsStore) SetLastMessageSender(ctx context.Context, p Participant, sender uuid.UUID) {
	s.mutate(ctx, p, func(ps *PlayerSettings) { ps.LastMessageSender = sender })
}

// Clear discards every entry, and the persistent backend's copies with
// them. Used on reload; all prior selections, mutes, hides and spy flags
// are recomputed from defaults on next access.
func (s *SettingsStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.byID = make(map[uuid.UUID]*PlayerSettings)
	s.mu.Unlock()

	if s.backend != nil {
		if err := s.backend.Clear(ctx); err != nil {
			obslog.L().Warn("settings_clear_failed", zap.Error(err))
		}
	}
}
