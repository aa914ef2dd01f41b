package chatconf

// Raw configuration shapes as stored on disk. Configuration only selects
// and formats built-in channels and placeholders; it can never introduce
// new ones.

type ChannelProperties struct {
	Disabled bool   `yaml:"disabled"`
	Format   string `yaml:"format"`
}

type PlaceholderProperties struct {
	ApplicationOrder int `yaml:"application_order"`
}

type PrivateMessageProperties struct {
	ConsoleFormat       string `yaml:"console_format"`
	SenderIsYouFormat   string `yaml:"sender_is_you_format"`
	SenderIsOtherFormat string `yaml:"sender_is_other_format"`
}

type Properties struct {
	DefaultChannel       string                            `yaml:"default_channel"`
	LocalChannelDistance int                               `yaml:"local_channel_distance"`
	PrivateMessages      PrivateMessageProperties          `yaml:"private_messages"`
	Channels             map[string]*ChannelProperties     `yaml:"channels"`
	Placeholders         map[string]*PlaceholderProperties `yaml:"placeholders"`
}
