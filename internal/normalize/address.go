// Package normalize provides deterministic text cleanup for account
// addresses and store names. All functions are pure and never panic;
// unusable input comes back as a sentinel, not an error.
package normalize

import (
	"regexp"
	"strings"
)

// Sentinel results from Address. Callers must treat both as "do not use
// this value", never as a real address.
const (
	NoAddress = "NO_ADDRESS"
	NormError = "NORM_ERROR"
)

var (
	poBoxRe       = regexp.MustCompile(`P\.?\s*O\.?\s*BOX`)
	poBoxNumRe    = regexp.MustCompile(`P\.?\s*O\.?\s*BOX\s*(\d+)`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	unitWithIDRe  = regexp.MustCompile(`(?i)\s+(?:UNIT|STE|SUITE|APT|APARTMENT|FL|FLOOR|ROOM|RM|DEPT|#)\s*([A-Z0-9\-]+)\b`)
	unitBareRe    = regexp.MustCompile(`(?i)\s+(?:UNIT|STE|SUITE|APT|APARTMENT|FL|FLOOR|ROOM|RM|DEPT|#)\b`)
	stateZipEndRe = regexp.MustCompile(`\b(?:[A-Z]{2})\s+\d{5}(?:-\d{4})?$`)
	nonWordRe     = regexp.MustCompile(`[^\w\s\-]`)
)

type rewrite struct {
	re  *regexp.Regexp
	out string
}

// Street-type synonyms collapse to the postal abbreviation. Applied in
// two passes so a replacement cannot shadow a later pattern.
var streetTypes = []rewrite{
	{regexp.MustCompile(`\bST\b|\bSTREET\b|\bSTR\b`), "ST"},
	{regexp.MustCompile(`\bAVE\b|\bAVENUE\b|\bAVN\b`), "AVE"},
	{regexp.MustCompile(`\bRD\b|\bROAD\b`), "RD"},
	{regexp.MustCompile(`\bDR\b|\bDRIVE\b|\bDRVE\b`), "DR"},
	{regexp.MustCompile(`\bBLVD\b|\bBOULEVARD\b|\bBLVDN\b`), "BLVD"},
	{regexp.MustCompile(`\bPKWY\b|\bPARKWAY\b`), "PKWY"},
	{regexp.MustCompile(`\bCIR\b|\bCIRCLE\b`), "CIR"},
	{regexp.MustCompile(`\bHWY\b|\bHIGHWAY\b`), "HWY"},
	{regexp.MustCompile(`\bLN\b|\bLANE\b`), "LN"},
	{regexp.MustCompile(`\bCT\b|\bCOURT\b`), "CT"},
	{regexp.MustCompile(`\bTER\b|\bTERRACE\b`), "TER"},
	{regexp.MustCompile(`\bPL\b|\bPLACE\b`), "PL"},
}

var directionals = []rewrite{
	{regexp.MustCompile(`\bN\b|\bNORTH\b|\bNTH\b`), "N"},
	{regexp.MustCompile(`\bS\b|\bSOUTH\b|\bSTH\b`), "S"},
	{regexp.MustCompile(`\bE\b|\bEAST\b`), "E"},
	{regexp.MustCompile(`\bW\b|\bWEST\b|\bWST\b`), "W"},
	{regexp.MustCompile(`\bNW\b|\bNORTHWEST\b`), "NW"},
	{regexp.MustCompile(`\bSW\b|\bSOUTHWEST\b`), "SW"},
	{regexp.MustCompile(`\bNE\b|\bNORTHEAST\b`), "NE"},
	{regexp.MustCompile(`\bSE\b|\bSOUTHEAST\b`), "SE"},
}

// Curated corrections for recurring OCR damage in distributor exports.
var spellingFixes = [][2]string{
	{"SHINGTON", "WASHINGTON"},
	{"LVER RING", "SILVER SPRING"},
	{"LVER GS", "SILVER SPRING"},
	{"LNUT", "WALNUT"},
	{"DEMP", "DEMPSTER"},
	{"YNE", "WAYNE"},
	{"GANBIER", "GAMBIER"},
	{"GEMONT", "EGEMONT"},
	{"AUL POWDER", "AUSTELL POWDER"},
	{"MOUNT HOOD", "MT HOOD"},
	{"BAY VIEW", "BAYVIEW"},
	{"OY CREEK", "JOY CREEK"},
	{"CKTON", "ROCKTON"},
}

// Address combines the street/city/state/zip components of a raw record
// into a single normalized uppercase string suitable for hashing.
// Returns NoAddress when no usable input exists.
func Address(street, city, state, zip string) (result string) {
	// Normalization must never take a batch down. Anything unexpected
	// degrades to the error sentinel, which callers skip.
	defer func() {
		if recover() != nil {
			result = NormError
		}
	}()

	var parts []string
	for _, p := range []string{street, city, state, zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return NoAddress
	}
	addr := strings.ToUpper(strings.Join(parts, " "))

	if poBoxRe.MatchString(addr) {
		if m := poBoxNumRe.FindStringSubmatch(addr); m != nil {
			return "PO BOX " + m[1]
		}
		return "PO BOX"
	}

	if strings.Contains(addr, "NOT AVAILABLE") {
		return NoAddress
	}

	addr = strings.NewReplacer(",", " ", ".", " ").Replace(addr)
	addr = strings.TrimSpace(multiSpaceRe.ReplaceAllString(addr, " "))

	for range 2 {
		for _, r := range streetTypes {
			addr = r.re.ReplaceAllString(addr, r.out)
		}
	}
	for _, r := range directionals {
		addr = r.re.ReplaceAllString(addr, r.out)
	}

	addr = unitWithIDRe.ReplaceAllString(addr, "")
	addr = unitBareRe.ReplaceAllString(addr, "")

	for _, fix := range spellingFixes {
		addr = strings.ReplaceAll(addr, fix[0], fix[1])
	}

	addr = strings.TrimSpace(stateZipEndRe.ReplaceAllString(addr, ""))
	addr = stripCityTokens(addr, city)

	addr = nonWordRe.ReplaceAllString(addr, "")
	addr = strings.TrimSpace(multiSpaceRe.ReplaceAllString(addr, " "))

	if addr == "" {
		return NoAddress
	}
	return addr
}

// stripCityTokens removes whole-word occurrences of the city name so
// "123 MAIN ST SPRINGFIELD" and "123 MAIN ST" hash identically.
func stripCityTokens(addr, city string) string {
	city = strings.ToUpper(strings.TrimSpace(city))
	if city == "" {
		return addr
	}
	for _, tok := range strings.Fields(city) {
		if len(tok) <= 2 {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(tok) + `\b`)
		if err != nil {
			continue
		}
		addr = strings.TrimSpace(re.ReplaceAllString(addr, ""))
	}
	return addr
}
