package dealer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Each heuristic below takes the flattened card text and reports the first
// match. They are kept independent so a dealer-specific override can replace
// one without touching the others.

var (
	priceRegex        = regexp.MustCompile(`£\s?([0-9][0-9,]*)`)
	yearRegex         = regexp.MustCompile(`\b(20[0-2][0-9])\b`)
	mileageRegex      = regexp.MustCompile(`(?i)\b([0-9][0-9,]*)\s*(?:miles|mi)\b`)
	vrmRegex          = regexp.MustCompile(`\b([A-Z]{2}[0-9]{2}\s?[A-Z]{3})\b`)
	transmissionRegex = regexp.MustCompile(`(?i)\b(automatic|manual)\b`)
	fuelRegex         = regexp.MustCompile(`(?i)\b(petrol|diesel|hybrid|electric)\b`)
	doorsRegex        = regexp.MustCompile(`(?i)\b([2-5])\s*-?\s*(?:dr|doors?)\b`)
)

const (
	minTitleLen         = 5
	minFallbackTitleLen = 10
	fallbackTitleLen    = 50
)

// ParsePrice returns the first pound-prefixed amount in whole pounds
func ParsePrice(text string) (int64, bool) {
	m := priceRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseYear returns the first year between 2000 and 2029
func ParseYear(text string) (int, bool) {
	m := yearRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseMileage returns the first number followed by "miles" or "mi"
func ParseMileage(text string) (int, bool) {
	m := mileageRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseVRM returns the first current-format UK registration mark, without
// whitespace and upper-cased
func ParseVRM(text string) (string, bool) {
	m := vrmRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return NormalizeVRM(m[1]), true
}

// NormalizeVRM strips whitespace and upper-cases a registration mark
func NormalizeVRM(vrm string) string {
	return strings.ToUpper(strings.Join(strings.Fields(vrm), ""))
}

// ParseTransmission returns "Automatic" or "Manual"
func ParseTransmission(text string) (string, bool) {
	m := transmissionRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return capitalize(m[1]), true
}

// ParseFuel returns "Petrol", "Diesel", "Hybrid" or "Electric"
func ParseFuel(text string) (string, bool) {
	m := fuelRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return capitalize(m[1]), true
}

// ParseDoors returns a door count between 2 and 5 written next to "dr" or "doors"
func ParseDoors(text string) (int, bool) {
	m := doorsRegex.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// PickTitle returns the first line when it is long enough and not a price.
// Otherwise it takes the first longer priceless line, so short badges such as
// "Reduced" are passed over, and finally the truncated card text.
func PickTitle(lines []string) string {
	if len(lines) > 0 && utf8.RuneCountInString(lines[0]) >= minTitleLen && !strings.Contains(lines[0], "£") {
		return lines[0]
	}
	for _, l := range lines {
		if utf8.RuneCountInString(l) > minFallbackTitleLen && !strings.Contains(l, "£") {
			return l
		}
	}
	return truncateRunes(strings.Join(lines, " "), fallbackTitleLen)
}

// UsableTitle reports whether title can identify a listing for a human:
// it must contain at least one letter, so a bare price or number is not enough
func UsableTitle(title string) bool {
	for _, r := range title {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func truncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:max]))
}
