package search

import (
	"math"
	"sort"
	"strings"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
)

// Candidate is produced per strategy run. DistanceKm is NaN when unknown.
type Candidate struct {
	Clinic     catalog.Clinic
	Strategy   Strategy
	DistanceKm float64
	TextScore  float64
}

// TierCounts reports pincode cascade membership for query metadata; every
// tier is counted even when a higher tier already satisfied the query.
type TierCounts struct {
	Exact    int `json:"exact"`
	Address  int `json:"address"`
	Location int `json:"location"`
	Nearby   int `json:"nearby"`
}

// matchesFilters applies the structural filters uniformly before strategy
// matching.
func matchesFilters(c catalog.Clinic, q Query) bool {
	if q.Verified != nil && c.Verified != *q.Verified {
		return false
	}
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	if q.MinRating > 0 && (!c.HasRating || c.Rating < q.MinRating) {
		return false
	}
	for _, want := range q.Services {
		found := false
		for _, s := range c.Services {
			if strings.EqualFold(s, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// geospatial returns clinics with valid coordinates within RadiusKm of the
// origin, distance attached. No cap here; the limit is applied downstream.
func geospatial(clinics []catalog.Clinic, q Query) []Candidate {
	var out []Candidate
	for _, c := range clinics {
		if !matchesFilters(c, q) {
			continue
		}
		if c.Coord == nil || !c.Coord.Valid() {
			continue
		}
		d := geo.DistanceKm(*q.Origin, *c.Coord)
		if geo.Undefined(d) || d > q.RadiusKm {
			continue
		}
		out = append(out, Candidate{Clinic: c, Strategy: StrategyGeospatial, DistanceKm: d, TextScore: 0})
	}
	return out
}

// pincode runs the four-tier cascade: exact code, code in address, code in
// location, shared postal subdivision. A clinic lands in its highest tier
// only; tiers concatenate in order and truncate to the limit, while counts
// cover all tiers. A 3-5 digit query code matches its subdivision prefix in
// the exact tier (the pincode endpoint accepts 3+ digits).
func pincode(clinics []catalog.Clinic, q Query) ([]Candidate, TierCounts) {
	pin := q.Pincode
	var exact, addr, loc, nearby []Candidate
	var counts TierCounts
	for _, c := range clinics {
		if !matchesFilters(c, q) {
			continue
		}
		cand := Candidate{Clinic: c, Strategy: StrategyPincode, DistanceKm: math.NaN()}
		switch {
		case len(pin) == 6 && c.Pincode == pin,
			len(pin) >= 3 && len(pin) < 6 && strings.HasPrefix(c.Pincode, pin):
			counts.Exact++
			exact = append(exact, cand)
		case c.Address != "" && strings.Contains(c.Address, pin):
			counts.Address++
			addr = append(addr, cand)
		case c.Location != "" && strings.Contains(c.Location, pin):
			counts.Location++
			loc = append(loc, cand)
		case len(pin) == 6 && len(c.Pincode) == 6 && isDigits(c.Pincode) && c.Pincode[:3] == pin[:3]:
			counts.Nearby++
			nearby = append(nearby, cand)
		}
	}
	out := append(append(append(exact, addr...), loc...), nearby...)
	return truncate(out, q), counts
}

// textScore ranks a substring hit: exact name match highest, name prefix
// next, then name containment, then any other field, plus verification and
// rating bonuses.
func textScore(c catalog.Clinic, needle string) (float64, bool) {
	name := strings.ToLower(c.Name)
	var score float64
	switch {
	case name == needle:
		score = 100
	case strings.HasPrefix(name, needle):
		score = 50
	case strings.Contains(name, needle):
		score = 25
	case strings.Contains(strings.ToLower(c.Address), needle),
		strings.Contains(strings.ToLower(c.Location), needle),
		serviceMatch(c.Services, needle):
		score = 10
	default:
		return 0, false
	}
	if c.Verified {
		score += 5
	}
	if c.HasRating {
		score += c.Rating * 2
	}
	return score, true
}

func serviceMatch(services []string, needle string) bool {
	for _, s := range services {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// text scans the catalog case-insensitively over name, address, location and
// services, ordered by text score (stable).
func text(clinics []catalog.Clinic, q Query) []Candidate {
	needle := strings.ToLower(strings.TrimSpace(q.FreeText))
	var out []Candidate
	for _, c := range clinics {
		if !matchesFilters(c, q) {
			continue
		}
		s, ok := textScore(c, needle)
		if !ok {
			continue
		}
		out = append(out, Candidate{Clinic: c, Strategy: StrategyText, DistanceKm: math.NaN(), TextScore: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TextScore > out[j].TextScore })
	return out
}

// fallback lists by descending rating, catalog order breaking ties, when no
// location, pincode or text signal is present.
func fallback(clinics []catalog.Clinic, q Query) []Candidate {
	var out []Candidate
	for _, c := range clinics {
		if !matchesFilters(c, q) {
			continue
		}
		out = append(out, Candidate{Clinic: c, Strategy: StrategyFallback, DistanceKm: math.NaN()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := 0.0, 0.0
		if out[i].Clinic.HasRating {
			ri = out[i].Clinic.Rating
		}
		if out[j].Clinic.HasRating {
			rj = out[j].Clinic.Rating
		}
		return ri > rj
	})
	return truncate(out, q)
}

// truncate caps a strategy's output at the requested page end; the
// orchestrator applies the offset after fusion.
func truncate(out []Candidate, q Query) []Candidate {
	if q.Limit <= 0 {
		return out
	}
	end := q.Offset + q.Limit
	if len(out) > end {
		out = out[:end]
	}
	return out
}
