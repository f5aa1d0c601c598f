package normalize

import (
	"regexp"
	"strings"
)

// Ordered: NUTRITN must run before NUTR or the longer form never matches.
var nameReplacements = [][2]string{
	{" & ", " AND "},
	{"#", " "},
	{"NO.", " "},
	{"MRKT", "MARKET"},
	{"MKT", "MARKET"},
	{"HLTH", "HEALTH"},
	{"NATRL", "NATURAL"},
	{"NUTRITN", "NUTRITION"},
	{"NUTR", "NUTRITION"},
	{"CTR", "CENTER"},
	{"CNTR", "CENTER"},
	{"FARMS", "FARMERS"},
	{"'S", "S"},
	{"-", " "},
	{"_", " "},
	{",", " "},
	{".", " "},
}

var nameSuffixes = []string{" INC", " LLC", " CO", " MARKET", " FOODS", " 1", " 2"}

var (
	trailingNumRe = regexp.MustCompile(`\s+\d+$`)
	storeNumRe    = regexp.MustCompile(`#\s*\d+`)
)

// StoreName normalizes a display name for matching: uppercases, strips a
// leading "THE ", expands common abbreviations, drops legal suffixes and
// trailing store numbers. Empty input yields an empty string.
func StoreName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	name = strings.TrimPrefix(name, "THE ")

	for _, r := range nameReplacements {
		name = strings.ReplaceAll(name, r[0], r[1])
	}

	for _, suffix := range nameSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}

	name = trailingNumRe.ReplaceAllString(name, "")
	name = storeNumRe.ReplaceAllString(name, "")

	return strings.Join(strings.Fields(name), " ")
}
