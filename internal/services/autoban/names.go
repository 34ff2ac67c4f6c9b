package autoban

import (
	"regexp"
	"strings"
	"unicode"
)

// richTextTag matches the rich-text tags the game's chat and name plates render
var richTextTag = regexp.MustCompile(`(?i)</?(b|i|u|s|color|size|sprite|material|quad|mark|font|align|alpha|cspace|gradient|indent|line-height|link|lowercase|uppercase|smallcaps|noparse|nobr|pos|rotate|space|style|sub|sup|voffset|width)([=\s][^>]*)?>`)

// HasFormatting reports whether name contains rich-text tags
func HasFormatting(name string) bool {
	return richTextTag.MatchString(name)
}

// MatchBlockList reports the first entry of the comma-separated block list
// contained in name. Matching ignores case and all whitespace on both sides.
func MatchBlockList(name, blockList string) (string, bool) {
	haystack := squash(name)
	if haystack == "" {
		return "", false
	}
	for _, entry := range strings.Split(blockList, ",") {
		needle := squash(entry)
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, needle) {
			return needle, true
		}
	}
	return "", false
}

// squash lowercases s and removes every whitespace rune
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
