package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/sells-group/salespulse/internal/normalize"
)

// nullLike values mean "no ship-to", not a ship-to literally named so.
// Distributor exports serialize missing cells this way.
var nullLike = map[string]bool{
	"": true, "nan": true, "none": true, "null": true, "0": true,
}

var shipToCleanRe = regexp.MustCompile(`[^A-Z0-9\-]+`)

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// OverrideStrategy consults the manual override table on the raw code.
// A hit is used unconditionally; no further tier runs.
type OverrideStrategy struct {
	Table *Overrides
}

func (s *OverrideStrategy) Name() string { return "override" }

func (s *OverrideStrategy) Resolve(in Input) (string, bool) {
	if s.Table == nil {
		return "", false
	}
	return s.Table.Lookup(in.RawCode)
}

// ShipToStrategy derives base_code + "_" + cleaned ship-to.
type ShipToStrategy struct{}

func (s *ShipToStrategy) Name() string { return "ship_to" }

func (s *ShipToStrategy) Resolve(in Input) (string, bool) {
	shipTo := strings.TrimSpace(in.ShipTo)
	if nullLike[strings.ToLower(shipTo)] {
		return "", false
	}
	clean := shipToCleanRe.ReplaceAllString(strings.ToUpper(shipTo), "")
	if clean == "" {
		return "", false
	}
	return in.BaseCode + "_" + clean, true
}

// AddressHashStrategy derives base_code + "_LOC_" + first 12 hex of the
// SHA-1 of the normalized address. Sentinel addresses are unusable.
type AddressHashStrategy struct{}

func (s *AddressHashStrategy) Name() string { return "address_hash" }

func (s *AddressHashStrategy) Resolve(in Input) (string, bool) {
	addr := in.NormAddress
	if addr == "" || addr == normalize.NoAddress || addr == normalize.NormError {
		return "", false
	}
	return in.BaseCode + "_LOC_" + shortHash(addr), true
}

// NameHashStrategy is the last resort: base_code + "_NAME_" + first 12
// hex of the SHA-1 of the normalized store name.
type NameHashStrategy struct{}

func (s *NameHashStrategy) Name() string { return "name_hash" }

func (s *NameHashStrategy) Resolve(in Input) (string, bool) {
	if in.NormName == "" {
		return "", false
	}
	return in.BaseCode + "_NAME_" + shortHash(in.NormName), true
}
