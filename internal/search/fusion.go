package search

import (
	"math"
	"sort"
	"strings"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
)

// Scoring constants for fused results.
const (
	baseScore          = 10.0
	maxDistanceBonus   = 20.0
	nameMatchBonus     = 15.0
	verifiedBonus      = 5.0
	primaryConfirm     = 10.0
	secondaryConfirm   = 5.0
	ratingBonusPerStar = 2.0
)

// ScoredResult is the fused, ranked unit returned to callers.
type ScoredResult struct {
	Clinic         catalog.Clinic `json:"clinic"`
	RelevanceScore float64        `json:"relevanceScore"`
	FoundBy        []string       `json:"foundBy"`
	DistanceKm     *float64       `json:"distanceKm,omitempty"`
	Distance       string         `json:"distance,omitempty"`
}

// StrategyList is one strategy's buffered output, in the order the selector
// ranked the strategies (index 0 is primary).
type StrategyList struct {
	Strategy   Strategy
	Candidates []Candidate
}

// Merge fuses candidate lists into one deduplicated ranked list. Pure and
// deterministic: ordering depends only on scores and first-seen order, never
// on which strategy finished first. Truncation to the caller's limit happens
// after sorting, by the orchestrator, so offset paging sees the full ranking.
func Merge(lists []StrategyList, q Query) []ScoredResult {
	type slot struct {
		res       ScoredResult
		firstList int
	}
	index := make(map[string]int)
	var slots []slot

	needle := strings.ToLower(strings.TrimSpace(q.FreeText))
	for li, list := range lists {
		for _, cand := range list.Candidates {
			id := cand.Clinic.ID
			if at, seen := index[id]; seen {
				// Cross-strategy confirmation: never rescore, just bonus.
				// Confirming a primary-strategy hit is worth more.
				s := &slots[at]
				if s.firstList == 0 {
					s.res.RelevanceScore += primaryConfirm
				} else {
					s.res.RelevanceScore += secondaryConfirm
				}
				s.res.FoundBy = appendTag(s.res.FoundBy, list.Strategy.String())
				if s.res.DistanceKm == nil && !geo.Undefined(cand.DistanceKm) {
					d := cand.DistanceKm
					s.res.DistanceKm = &d
					s.res.Distance = geo.FormatDistance(d)
				}
				continue
			}

			score := baseScore
			if !geo.Undefined(cand.DistanceKm) {
				score += math.Max(0, maxDistanceBonus-cand.DistanceKm)
			}
			if cand.Clinic.HasRating {
				score += cand.Clinic.Rating * ratingBonusPerStar
			}
			if needle != "" && strings.Contains(strings.ToLower(cand.Clinic.Name), needle) {
				score += nameMatchBonus
			}
			if cand.Clinic.Verified {
				score += verifiedBonus
			}

			res := ScoredResult{
				Clinic:         cand.Clinic,
				RelevanceScore: score,
				FoundBy:        []string{list.Strategy.String()},
			}
			if !geo.Undefined(cand.DistanceKm) {
				d := cand.DistanceKm
				res.DistanceKm = &d
				res.Distance = geo.FormatDistance(d)
			}
			index[id] = len(slots)
			slots = append(slots, slot{res: res, firstList: li})
		}
	}

	out := make([]ScoredResult, len(slots))
	for i, s := range slots {
		out[i] = s.res
	}
	// Stable: equal scores keep first-seen order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	return out
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
