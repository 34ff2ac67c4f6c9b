package autoban

import (
	"regexp"
	"strings"
)

// ValidRanks is the ordered progression of ranks the game can display.
// Any other rank text next to a participant's name has been tampered with.
var ValidRanks = []string{
	"Lackey",
	"Sputterer",
	"Novice",
	"Apprentice",
	"Initiate",
	"Adept",
	"Conjurer",
	"Sorcerer",
	"Warlock",
	"Magus",
	"Archmagus",
	"Grand Archmagus",
}

var (
	markupTag      = regexp.MustCompile(`<[^>]*>`)
	rankSeparators = strings.NewReplacer("[", " ", "]", " ", "|", " ", ":", " ", "(", " ", ")", " ")
)

// NormalizeRank strips markup tags and separator characters from raw rank
// text and collapses whitespace
func NormalizeRank(raw string) string {
	s := markupTag.ReplaceAllString(raw, "")
	s = rankSeparators.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsValidRank reports whether normalized rank text names a known rank
func IsValidRank(rank string) bool {
	for _, r := range ValidRanks {
		if strings.EqualFold(r, rank) {
			return true
		}
	}
	return false
}
