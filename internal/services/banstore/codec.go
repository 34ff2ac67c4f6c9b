package banstore

import (
	"sort"
	"strings"
	"time"

	"github.com/mcoot/hostguard/internal/model"
)

// Canonical encoding separators. Both are multi-byte sequences that do not
// occur in the legacy encoding.
const (
	EntrySeparator = "§§"
	FieldSeparator = "¤¤"

	legacyEntrySeparator = "|"
	legacyFieldSeparator = ":"
)

// TimestampLayout is the wall-clock layout used by both encodings
const TimestampLayout = "2006-01-02 15:04:05"

// Format identifies a ban list encoding
type Format int

const (
	FormatCurrent Format = iota
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "current"
}

// DetectFormat picks the encoding of blob. The blob is legacy only if it
// contains the legacy entry separator and not the canonical one.
func DetectFormat(blob string) Format {
	if strings.Contains(blob, legacyEntrySeparator) && !strings.Contains(blob, EntrySeparator) {
		return FormatLegacy
	}
	return FormatCurrent
}

// Encode renders records in the canonical encoding, ordered by ban time.
// Every entry is terminated by EntrySeparator so that a single entry whose
// fields contain "|" is never mistaken for the legacy encoding.
func Encode(records []model.BanRecord) string {
	sorted := append([]model.BanRecord(nil), records...)
	sortRecords(sorted)

	var b strings.Builder
	for _, r := range sorted {
		b.WriteString(strings.Join([]string{
			sanitizeField(string(r.Identity)),
			sanitizeField(r.DisplayName),
			r.BannedAt.Local().Format(TimestampLayout),
			sanitizeField(r.Reason),
		}, FieldSeparator))
		b.WriteString(EntrySeparator)
	}
	return b.String()
}

// Decode parses every entry of blob. Entries without an identity are skipped.
func Decode(blob string, now time.Time) ([]model.BanRecord, Format) {
	format := DetectFormat(blob)
	var records []model.BanRecord
	for _, entry := range splitEntries(blob, format) {
		if r, ok := decodeEntry(entry, format, now); ok {
			records = append(records, r)
		}
	}
	return records, format
}

func splitEntries(blob string, format Format) []string {
	sep := EntrySeparator
	if format == FormatLegacy {
		sep = legacyEntrySeparator
	}

	var entries []string
	for _, e := range strings.Split(blob, sep) {
		if strings.TrimSpace(e) != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func decodeEntry(entry string, format Format, now time.Time) (model.BanRecord, bool) {
	var fields []string
	if format == FormatLegacy {
		fields = strings.SplitN(entry, legacyFieldSeparator, 4)
	} else {
		fields = strings.SplitN(entry, FieldSeparator, 4)
	}

	id := strings.TrimSpace(fields[0])
	if id == "" {
		return model.BanRecord{}, false
	}

	record := model.BanRecord{
		Identity: model.Identity(id),
		BannedAt: now,
		Reason:   model.ReasonManual,
	}
	if len(fields) > 1 {
		record.DisplayName = fields[1]
	}

	var timestamp, reason string
	if len(fields) > 2 {
		timestamp = fields[2]
	}
	if len(fields) > 3 {
		reason = fields[3]
	}
	if format == FormatLegacy {
		timestamp, reason = rejoinLegacyTimestamp(timestamp, reason)
	}

	if t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(timestamp), time.Local); err == nil {
		record.BannedAt = t
	}
	if r := strings.TrimSpace(reason); r != "" {
		record.Reason = r
	}
	return record, true
}

// rejoinLegacyTimestamp undoes the colon split of a legacy timestamp, which
// leaves "2023-01-01 10" in the timestamp field and "00:00:Reason" in the
// reason field.
func rejoinLegacyTimestamp(timestamp, reason string) (string, string) {
	if _, err := time.Parse(TimestampLayout, strings.TrimSpace(timestamp)); err == nil {
		return timestamp, reason
	}

	parts := strings.SplitN(reason, legacyFieldSeparator, 3)
	if len(parts) < 2 {
		return timestamp, reason
	}
	candidate := timestamp + ":" + parts[0] + ":" + parts[1]
	if _, err := time.Parse(TimestampLayout, strings.TrimSpace(candidate)); err != nil {
		return timestamp, reason
	}
	if len(parts) == 3 {
		return candidate, parts[2]
	}
	return candidate, ""
}

func sanitizeField(s string) string {
	for strings.Contains(s, EntrySeparator) || strings.Contains(s, FieldSeparator) {
		s = strings.ReplaceAll(s, EntrySeparator, "")
		s = strings.ReplaceAll(s, FieldSeparator, "")
	}
	return s
}

func sortRecords(records []model.BanRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].BannedAt.Equal(records[j].BannedAt) {
			return records[i].BannedAt.Before(records[j].BannedAt)
		}
		return records[i].Identity < records[j].Identity
	})
}
