package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

var slotLabelRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidSlotLabel reports whether label is a zero-padded HH:MM time of day.
func ValidSlotLabel(label string) bool {
	return slotLabelRe.MatchString(label)
}

// SortedLabels returns a sorted copy of labels with duplicates removed.
// Zero-padded HH:MM labels sort chronologically as strings.
func SortedLabels(labels []string) []string {
	out := slices.Clone(labels)
	slices.Sort(out)
	return slices.Compact(out)
}

// ValidateLabels checks every label is HH:MM and unique.
func ValidateLabels(labels []string) error {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if !ValidSlotLabel(label) {
			return fmt.Errorf("%w: %q", ErrInvalidSlotLabel, label)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateSlotLabel, label)
		}
		seen[label] = struct{}{}
	}
	return nil
}

// WeeklySlots holds a business's default slot labels.
// ByDay maps weekday keys to labels; a weekday missing from ByDay has no hours.
// Legacy is the pre-migration flat list applied to every weekday and is only
// consulted when ByDay is nil.
type WeeklySlots struct {
	ByDay  map[string][]string
	Legacy []string
}

// SlotsFor returns the configured labels for a weekday key.
func (w WeeklySlots) SlotsFor(weekday string) []string {
	if w.ByDay != nil {
		return w.ByDay[weekday]
	}
	return w.Legacy
}

// IsLegacy reports whether the hours still use the flat form.
func (w WeeklySlots) IsLegacy() bool {
	return w.ByDay == nil && w.Legacy != nil
}

// Validate checks weekday keys and labels.
func (w WeeklySlots) Validate() error {
	if w.ByDay == nil {
		return ValidateLabels(w.Legacy)
	}
	for day, labels := range w.ByDay {
		if !IsWeekdayKey(day) {
			return fmt.Errorf("%w: %q", ErrUnknownWeekday, day)
		}
		if err := ValidateLabels(labels); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	return nil
}

// MarshalJSON writes the per-weekday object, or the flat array for legacy hours.
func (w WeeklySlots) MarshalJSON() ([]byte, error) {
	if w.ByDay != nil {
		return json.Marshal(w.ByDay)
	}
	if w.Legacy != nil {
		return json.Marshal(w.Legacy)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts either {"monday": ["09:00"]} or ["09:00", "10:00"].
func (w *WeeklySlots) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*w = WeeklySlots{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var flat []string
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return fmt.Errorf("schedule: decode legacy hours: %w", err)
		}
		w.Legacy = flat
	case '{':
		var byDay map[string][]string
		if err := json.Unmarshal(trimmed, &byDay); err != nil {
			return fmt.Errorf("schedule: decode weekly hours: %w", err)
		}
		w.ByDay = byDay
	default:
		return fmt.Errorf("schedule: hours must be an object or array")
	}
	return nil
}
