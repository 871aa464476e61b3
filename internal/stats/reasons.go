package stats

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedReason is one reason extracted from free-text dismissal input.
type ParsedReason struct {
	Reason  string   `json:"reason"`
	Minutes *float64 `json:"minutes"`
}

var (
	// "Weather +10", "Weather + 10 min"
	plusMinutesPattern = regexp.MustCompile(`(?i)^(.*?)\s*\+\s*(\d+(?:\.\d+)?)\s*(?:m|min|mins|minutes)?$`)
	// "Construction 12min"
	unitMinutesPattern = regexp.MustCompile(`(?i)^(.*?)\s+(\d+(?:\.\d+)?)\s*(?:m|min|mins|minutes)$`)
)

// ParseDismissReasonInput splits "Weather +10, Flats +5" into reasons. Reasons
// are deduplicated case-insensitively keeping the first spelling, and minutes
// are summed across repeats. Fragments without a reason are dropped.
func ParseDismissReasonInput(input string) []ParsedReason {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	var out []ParsedReason
	index := make(map[string]int)

	for _, part := range parts {
		reason, minutes := splitReasonMinutes(strings.TrimSpace(part))
		if reason == "" {
			continue
		}

		key := strings.ToLower(reason)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, ParsedReason{Reason: reason, Minutes: minutes})
			continue
		}
		if minutes != nil {
			if out[i].Minutes == nil {
				v := *minutes
				out[i].Minutes = &v
			} else {
				*out[i].Minutes += *minutes
			}
		}
	}
	return out
}

func splitReasonMinutes(part string) (string, *float64) {
	for _, re := range []*regexp.Regexp{plusMinutesPattern, unitMinutesPattern} {
		if m := re.FindStringSubmatch(part); m != nil {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			return strings.TrimSpace(m[1]), &v
		}
	}
	return part, nil
}
