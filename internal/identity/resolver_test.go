package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/salespulse/internal/normalize"
)

func sha1Prefix(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

func TestBaseCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"C1000_01", "C1000"},
		{"C1000-01", "C1000"},
		{"C1000 01", "C1000"},
		{"C1000", "C1000"},
		{"C1000_01_02", "C1000"},
		{"  C1000_01  ", "C1000"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BaseCode(tc.in), "raw %q", tc.in)
	}
}

func TestResolve_OverrideWinsUnconditionally(t *testing.T) {
	overrides := NewOverrides(map[string]string{"C1000_01": "MERGED_ACCOUNT"})
	r := NewResolver(overrides)

	res := r.Resolve(Input{
		RawCode:     "C1000_01",
		ShipTo:      "SHIP9",
		NormAddress: "123 MAIN ST",
		NormName:    "CORNER STORE",
	})
	require.True(t, res.Resolved)
	assert.Equal(t, "MERGED_ACCOUNT", res.CanonicalCode)
	assert.Equal(t, "override", res.Strategy)
}

func TestResolve_ShipTo(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(Input{RawCode: "C1000_01", ShipTo: "ship 42"})
	require.True(t, res.Resolved)
	assert.Equal(t, "C1000_SHIP42", res.CanonicalCode)
	assert.Equal(t, "ship_to", res.Strategy)
}

func TestResolve_ShipToNullLikeFallsThrough(t *testing.T) {
	r := NewResolver(nil)

	for _, shipTo := range []string{"", "nan", "NaN", "none", "NULL", "0"} {
		res := r.Resolve(Input{RawCode: "C1000", ShipTo: shipTo, NormAddress: "123 MAIN ST"})
		require.True(t, res.Resolved, "ship_to %q", shipTo)
		assert.Equal(t, "address_hash", res.Strategy, "ship_to %q", shipTo)
	}
}

func TestResolve_AddressHash(t *testing.T) {
	addr := normalize.Address("123 Main St", "Springfield", "IL", "62701")
	require.NotEqual(t, normalize.NoAddress, addr)

	r := NewResolver(nil)
	res := r.Resolve(Input{RawCode: "C1000", NormAddress: addr})

	require.True(t, res.Resolved)
	assert.Equal(t, "C1000_LOC_"+sha1Prefix(addr), res.CanonicalCode)
}

func TestResolve_AddressSentinelsFallThrough(t *testing.T) {
	r := NewResolver(nil)

	for _, addr := range []string{normalize.NoAddress, normalize.NormError, ""} {
		res := r.Resolve(Input{RawCode: "C1000", NormAddress: addr, NormName: "CORNER STORE"})
		require.True(t, res.Resolved, "addr %q", addr)
		assert.Equal(t, "name_hash", res.Strategy, "addr %q", addr)
		assert.Equal(t, "C1000_NAME_"+sha1Prefix("CORNER STORE"), res.CanonicalCode)
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := NewResolver(nil)

	res := r.Resolve(Input{RawCode: "C1000"})
	assert.False(t, res.Resolved)
	assert.Empty(t, res.CanonicalCode)

	res = r.Resolve(Input{RawCode: ""})
	assert.False(t, res.Resolved)
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver(nil)
	in := Input{RawCode: "C1000_01", NormAddress: "123 MAIN ST"}

	first := r.Resolve(in)
	for range 10 {
		assert.Equal(t, first, r.Resolve(in))
	}
}

func TestResolve_UnrelatedFieldDoesNotChangeCode(t *testing.T) {
	// Changing the display name must not move an address-resolved
	// account to a different canonical code.
	r := NewResolver(nil)
	a := r.Resolve(Input{RawCode: "C1000", NormAddress: "123 MAIN ST", NormName: "OLD NAME"})
	b := r.Resolve(Input{RawCode: "C1000", NormAddress: "123 MAIN ST", NormName: "NEW NAME"})
	assert.Equal(t, a.CanonicalCode, b.CanonicalCode)
}

func TestStrategies_InIsolation(t *testing.T) {
	shipOnly := NewResolverWith(&ShipToStrategy{})
	res := shipOnly.Resolve(Input{RawCode: "C1", ShipTo: "A-2"})
	require.True(t, res.Resolved)
	assert.Equal(t, "C1_A-2", res.CanonicalCode)

	nameOnly := NewResolverWith(&NameHashStrategy{})
	res = nameOnly.Resolve(Input{RawCode: "C1", ShipTo: "A-2", NormName: "STORE"})
	require.True(t, res.Resolved)
	assert.Equal(t, "name_hash", res.Strategy)
}

func TestOverrides_Lookup(t *testing.T) {
	o := NewOverrides(map[string]string{
		"RAW1":   "CANON1",
		"  RAW2 ": "CANON2",
		"":       "IGNORED",
	})
	assert.Equal(t, 2, o.Len())

	got, ok := o.Lookup("RAW1")
	assert.True(t, ok)
	assert.Equal(t, "CANON1", got)

	got, ok = o.Lookup(" RAW2 ")
	assert.True(t, ok)
	assert.Equal(t, "CANON2", got)

	_, ok = o.Lookup("MISSING")
	assert.False(t, ok)
}
