package compiler

import (
	"regexp"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
)

// atTimePattern is the strict 24-hour HH:MM accepted for exact-time-of-day
// overrides. Seconds are never supplied; the scheduler appends :00.
var atTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidAtTime reports whether s is a well-formed HH:MM override.
func ValidAtTime(s string) bool {
	return atTimePattern.MatchString(s)
}

var unitSeconds = map[string]int64{
	"seconds": 1,
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
}

// ConvertOffsets turns operator timing entries into signed second offsets:
// sign(direction) * amount * unitSeconds, truncated toward zero. Entries
// with an unknown direction or unit are unusable and dropped; when nothing
// usable remains the rule fires at the anchor itself.
func ConvertOffsets(inputs []domain.OffsetInput) []int64 {
	var offsets []int64
	for _, in := range inputs {
		secs, ok := unitSeconds[in.Unit]
		if !ok {
			continue
		}

		var sign int64
		switch in.Direction {
		case "before":
			sign = -1
		case "after":
			sign = 1
		default:
			continue
		}

		offsets = append(offsets, sign*int64(in.Amount*float64(secs)))
	}

	if len(offsets) == 0 {
		return []int64{0}
	}
	return offsets
}
