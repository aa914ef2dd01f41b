package chat

import "github.com/google/uuid"

// Participant is a connected chat participant. Implementations live in
// the hosting environment (the gateway); the pipeline only needs a
// stable identity and a display name.
type Participant interface {
	ID() uuid.UUID
	Name() string
}

// Roster exposes the live connected-participant list. List is consulted
// at broadcast time; a participant disconnecting mid-broadcast simply
// stops receiving messages.
type Roster interface {
	List() []Participant
	FindByID(id uuid.UUID) Participant
	IsConnected(p Participant) bool
}

// Permissions is the external authority backend. The check algorithm is
// not part of the pipeline; only the shape of the query is.
type Permissions interface {
	HasPermission(p Participant, key string) bool
	// IsElevated reports operator-equivalent status.
	IsElevated(p Participant) bool
}

// Sink delivers rendered text. Deliver targets one participant;
// LogToConsole is the server-side console view.
type Sink interface {
	Deliver(p Participant, text string)
	LogToConsole(text string)
}

// DistanceFunc reports the distance between two participants for
// proximity channels. ok is false when the two are not comparable
// (different worlds, no position), which counts as out of range.
type DistanceFunc func(a, b Participant) (distance float64, ok bool)

// SettingsSource supplies a compiled Settings snapshot at load time.
// Implementations own file I/O and default backfill; the manager only
// swaps snapshots.
type SettingsSource interface {
	LoadSettings() (*Settings, error)
}
