// Package gametime converts between game-clock strings ("MM:SS") and seconds.
package gametime

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeToSeconds parses an "MM:SS" clock value. Minutes may exceed 59 (a
// season's time on ice easily does); seconds must be in [0, 60). Both parts
// must be unsigned decimal digits.
func TimeToSeconds(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want MM:SS", s)
	}
	mm, err := parseUnsigned(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: minutes: %w", s, err)
	}
	ss, err := parseUnsigned(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: seconds: %w", s, err)
	}
	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock %q: seconds must be two digits", s)
	}
	if ss >= 60 {
		return 0, fmt.Errorf("invalid clock %q: seconds out of range", s)
	}
	return mm*60 + ss, nil
}

// SecondsToTime formats seconds as "MM:SS", zero-padding minutes to at least
// two digits.
func SecondsToTime(total int) (string, error) {
	if total < 0 {
		return "", fmt.Errorf("negative duration %d", total)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

func parseUnsigned(p string) (int, error) {
	if p == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(p)
}
