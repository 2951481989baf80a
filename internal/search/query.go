// Package search: strategy selection, candidate retrieval, result fusion and
// the orchestrator tying them to the catalog snapshot and cache.
package search

import (
	"strings"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
)

// Strategy is a closed variant; adding one is a compile-time-checked change
// everywhere a switch enumerates these.
type Strategy int

const (
	StrategyGeospatial Strategy = iota
	StrategyPincode
	StrategyText
	StrategyHybrid
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyGeospatial:
		return "geospatial"
	case StrategyPincode:
		return "pincode"
	case StrategyText:
		return "text"
	case StrategyHybrid:
		return "hybrid"
	case StrategyFallback:
		return "fallback"
	}
	return "unknown"
}

// Query is constructed once per request and treated as immutable after
// normalization.
type Query struct {
	FreeText string
	Origin   *geo.Coordinate
	Pincode  string
	RadiusKm float64

	Verified  *bool
	MinRating float64
	Status    string
	Services  []string

	Limit  int
	Offset int
}

func (q Query) hasOrigin() bool   { return q.Origin != nil && q.Origin.Valid() }
func (q Query) hasFreeText() bool { return strings.TrimSpace(q.FreeText) != "" }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (q Query) hasFullPincode() bool { return len(q.Pincode) == 6 && isDigits(q.Pincode) }

// Select implements the fixed-priority decision table: location beats postal
// code beats free text beats the unfiltered default listing; free text on top
// of a location or pincode signal upgrades to hybrid.
func Select(q Query) Strategy {
	switch {
	case q.hasOrigin() && q.hasFreeText():
		return StrategyHybrid
	case q.hasOrigin():
		return StrategyGeospatial
	case q.hasFullPincode() && q.hasFreeText():
		return StrategyHybrid
	case q.hasFullPincode():
		return StrategyPincode
	case q.hasFreeText():
		return StrategyText
	default:
		return StrategyFallback
	}
}
