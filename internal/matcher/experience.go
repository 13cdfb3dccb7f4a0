package matcher

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// experienceBand is a years-of-experience range parsed from free text.
type experienceBand struct {
	Min float64
	Max float64
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// parseExperience extracts a band from strings like "2-4 years",
// "0-1 yrs", "3+ years" or "Fresher". ok is false when the text carries
// no usable band, which scores as a neutral partial match rather than
// zero.
func parseExperience(text string) (experienceBand, bool) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return experienceBand{}, false
	}
	if strings.Contains(text, "fresher") || strings.Contains(text, "entry level") {
		return experienceBand{Min: 0, Max: 0}, true
	}

	nums := numberPattern.FindAllString(text, 2)
	switch len(nums) {
	case 0:
		return experienceBand{}, false
	case 1:
		n, err := strconv.ParseFloat(nums[0], 64)
		if err != nil {
			return experienceBand{}, false
		}
		if strings.Contains(text, "+") {
			return experienceBand{Min: n, Max: math.Inf(1)}, true
		}
		return experienceBand{Min: n, Max: n}, true
	default:
		lo, err1 := strconv.ParseFloat(nums[0], 64)
		hi, err2 := strconv.ParseFloat(nums[1], 64)
		if err1 != nil || err2 != nil {
			return experienceBand{}, false
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		return experienceBand{Min: lo, Max: hi}, true
	}
}

// overlaps reports whether two bands share any part of their range.
func (b experienceBand) overlaps(other experienceBand) bool {
	return b.Min <= other.Max && other.Min <= b.Max
}
