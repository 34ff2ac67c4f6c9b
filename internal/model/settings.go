package model

// DefaultOffensiveNames is the block list used when none is configured
const DefaultOffensiveNames = "discord.gg,cheat"

// Settings holds the operator-controlled moderation settings
type Settings struct {
	AutoBanInvalidRank   bool
	AutoBanOffensiveName bool
	AutoBanFormattedName bool
	OffensiveNames       string // Comma-separated substrings
	ToggleKey            string // Key binding for the moderation panel
}

// DefaultSettings returns the settings used before any are persisted
func DefaultSettings() Settings {
	return Settings{
		OffensiveNames: DefaultOffensiveNames,
		ToggleKey:      "F8",
	}
}
