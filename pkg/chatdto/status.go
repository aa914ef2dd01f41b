package chatdto

// ChannelStatus describes one channel as seen by a particular participant:
// whether it is their active channel and whether they have hidden it.
type ChannelStatus struct {
	ChannelID string `json:"channel_id"`
	Selected  bool   `json:"selected"`
	Hidden    bool   `json:"hidden"`
}
