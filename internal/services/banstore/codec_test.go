package banstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/hostguard/internal/model"
)

var loadTime = time.Date(2024, 6, 1, 8, 30, 0, 0, time.Local)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		blob string
		want Format
	}{
		{"empty", "", FormatCurrent},
		{"single canonical entry", "1¤¤Alice¤¤2024-01-01 00:00:00¤¤Manual", FormatCurrent},
		{"canonical entries", "1¤¤A§§2¤¤B", FormatCurrent},
		{"legacy entries", "1:A|2:B", FormatLegacy},
		{"canonical with pipe in name", "1¤¤A|B§§2¤¤C", FormatCurrent},
		{"single legacy entry without pipe", "1:Alice", FormatCurrent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(tt.blob))
		})
	}
}

func TestDecodeLegacy(t *testing.T) {
	records, format := Decode("76561:Alice:2023-01-01 10:00:00:Manual|76562:Bob", loadTime)

	assert.Equal(t, FormatLegacy, format)
	require.Len(t, records, 2)

	assert.Equal(t, model.Identity("76561"), records[0].Identity)
	assert.Equal(t, "Alice", records[0].DisplayName)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.Local), records[0].BannedAt)
	assert.Equal(t, model.ReasonManual, records[0].Reason)

	assert.Equal(t, model.Identity("76562"), records[1].Identity)
	assert.Equal(t, "Bob", records[1].DisplayName)
	assert.Equal(t, loadTime, records[1].BannedAt)
	assert.Equal(t, model.ReasonManual, records[1].Reason)
}

func TestDecodeLegacyReasonKeepsColons(t *testing.T) {
	records, _ := Decode("1:Eve:2023-05-05 05:05:05:Spam: again|2:Mal", loadTime)

	require.Len(t, records, 2)
	assert.Equal(t, "Spam: again", records[0].Reason)
	assert.Equal(t, time.Date(2023, 5, 5, 5, 5, 5, 0, time.Local), records[0].BannedAt)
}

func TestDecodeSkipsEntriesWithoutIdentity(t *testing.T) {
	blob := strings.Join([]string{
		"1¤¤Alice¤¤2024-01-01 00:00:00¤¤Manual",
		"¤¤NoIdentity",
		"   ",
		"2¤¤Bob",
	}, EntrySeparator)

	records, format := Decode(blob, loadTime)

	assert.Equal(t, FormatCurrent, format)
	require.Len(t, records, 2)
	assert.Equal(t, model.Identity("1"), records[0].Identity)
	assert.Equal(t, model.Identity("2"), records[1].Identity)
}

func TestDecodeDefaults(t *testing.T) {
	blob := "9¤¤Zed¤¤not a time¤¤   "

	records, _ := Decode(blob, loadTime)

	require.Len(t, records, 1)
	assert.Equal(t, loadTime, records[0].BannedAt)
	assert.Equal(t, model.ReasonManual, records[0].Reason)
}

func TestEncodeRoundTrip(t *testing.T) {
	records := []model.BanRecord{
		{Identity: "2", DisplayName: "Bob: the builder", BannedAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.Local), Reason: model.ReasonOffensiveName},
		{Identity: "1", DisplayName: "Alice|Smith", BannedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local), Reason: model.ReasonManual},
	}

	decoded, format := Decode(Encode(records), loadTime)

	assert.Equal(t, FormatCurrent, format)
	require.Len(t, decoded, 2)
	// Encoding orders by ban time
	assert.Equal(t, records[1], decoded[0])
	assert.Equal(t, records[0], decoded[1])
}

func TestEncodeSingleEntryWithPipeRoundTrips(t *testing.T) {
	tests := []struct {
		name   string
		record model.BanRecord
	}{
		{"pipe in name", model.BanRecord{Identity: "76561", DisplayName: "x|y", BannedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), Reason: model.ReasonManual}},
		{"pipe in identity", model.BanRecord{Identity: "765|61", DisplayName: "Alice", BannedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), Reason: model.ReasonManual}},
		{"pipe in reason", model.BanRecord{Identity: "76561", DisplayName: "Alice", BannedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local), Reason: "a|b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := Encode([]model.BanRecord{tt.record})
			assert.Contains(t, blob, EntrySeparator)

			decoded, format := Decode(blob, loadTime)

			assert.Equal(t, FormatCurrent, format)
			require.Len(t, decoded, 1)
			assert.Equal(t, tt.record, decoded[0])
		})
	}
}

func TestEncodeEmptyList(t *testing.T) {
	assert.Empty(t, Encode(nil))

	decoded, _ := Decode(Encode(nil), loadTime)
	assert.Empty(t, decoded)
}

func TestEncodeStripsSeparatorsFromFields(t *testing.T) {
	records := []model.BanRecord{
		{Identity: "1", DisplayName: "Sneaky§§¤¤Name", BannedAt: loadTime, Reason: "R§¤¤§"},
	}

	decoded, _ := Decode(Encode(records), loadTime)

	require.Len(t, decoded, 1)
	assert.Equal(t, "SneakyName", decoded[0].DisplayName)
	assert.Equal(t, "R", decoded[0].Reason)
}
