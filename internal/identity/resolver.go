// Package identity turns noisy source account identifiers into stable
// canonical codes through an ordered chain of resolution strategies.
package identity

import (
	"regexp"
	"strings"
)

// Input carries everything a strategy may consult. NormAddress and
// NormName are expected to be pre-normalized (see internal/normalize).
type Input struct {
	RawCode     string
	BaseCode    string
	ShipTo      string
	NormAddress string
	NormName    string
}

// Strategy attempts to derive a canonical code for one input. A false
// return means "not my case, try the next tier".
type Strategy interface {
	Name() string
	Resolve(in Input) (string, bool)
}

// Result is the outcome of a resolution attempt. Unresolved inputs are
// reported, never silently dropped.
type Result struct {
	CanonicalCode string
	Strategy      string
	Resolved      bool
}

var baseCodeSplitRe = regexp.MustCompile(`[_\s-]+`)

// BaseCode extracts the leading token of a raw account code, shared
// across related ship-to sub-locations.
func BaseCode(rawCode string) string {
	rawCode = strings.TrimSpace(rawCode)
	if rawCode == "" {
		return ""
	}
	return baseCodeSplitRe.Split(rawCode, 2)[0]
}

// Resolver evaluates its strategies in order; the first success wins.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the standard chain: manual override, ship-to,
// address hash, name hash. Precedence is the slice order.
func NewResolver(overrides *Overrides) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			&OverrideStrategy{Table: overrides},
			&ShipToStrategy{},
			&AddressHashStrategy{},
			&NameHashStrategy{},
		},
	}
}

// NewResolverWith builds a resolver from an explicit strategy chain.
// Used by tests to exercise a single tier in isolation.
func NewResolverWith(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve fills in BaseCode if absent and walks the chain. Identical
// inputs always produce the identical canonical code.
func (r *Resolver) Resolve(in Input) Result {
	if in.BaseCode == "" {
		in.BaseCode = BaseCode(in.RawCode)
	}
	if in.BaseCode == "" {
		return Result{}
	}
	for _, s := range r.strategies {
		if code, ok := s.Resolve(in); ok {
			return Result{CanonicalCode: code, Strategy: s.Name(), Resolved: true}
		}
	}
	return Result{}
}
