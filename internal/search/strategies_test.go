package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
)

func pinCatalog() []catalog.Clinic {
	return []catalog.Clinic{
		{ID: "1", Name: "Fort Physio", Pincode: "400001"},
		{ID: "2", Name: "Colaba Rehab", Pincode: "400099"},
		{ID: "3", Name: "Pune Ortho", Pincode: "411001"},
	}
}

func TestPincodeExactBeforeNearby(t *testing.T) {
	cands, counts := pincode(pinCatalog(), Query{Pincode: "400001", Limit: 20})

	require.Len(t, cands, 2)
	// Exact match ranks before the shared-subdivision match; 411001 is out.
	assert.Equal(t, "1", cands[0].Clinic.ID)
	assert.Equal(t, "2", cands[1].Clinic.ID)
	assert.Equal(t, 1, counts.Exact)
	assert.Equal(t, 1, counts.Nearby)
	assert.Equal(t, 0, counts.Address)
	assert.Equal(t, 0, counts.Location)
}

func TestPincodeAddressAndLocationTiers(t *testing.T) {
	clinics := []catalog.Clinic{
		{ID: "a", Name: "A", Pincode: "400001"},
		{ID: "b", Name: "B", Address: "12 Marine Drive, Mumbai 400001"},
		{ID: "c", Name: "C", Location: "near 400001 post office"},
		{ID: "d", Name: "D", Pincode: "999999"},
	}
	cands, counts := pincode(clinics, Query{Pincode: "400001", Limit: 20})

	require.Len(t, cands, 3)
	assert.Equal(t, []string{"a", "b", "c"},
		[]string{cands[0].Clinic.ID, cands[1].Clinic.ID, cands[2].Clinic.ID})
	assert.Equal(t, TierCounts{Exact: 1, Address: 1, Location: 1, Nearby: 0}, counts)
}

func TestPincodeSubdivisionPrefixQuery(t *testing.T) {
	// The pincode endpoint accepts 3+ digits; a short code matches its
	// subdivision prefix.
	cands, counts := pincode(pinCatalog(), Query{Pincode: "400", Limit: 20})
	require.Len(t, cands, 2)
	assert.Equal(t, 2, counts.Exact)
}

func TestPincodeTruncatesToLimit(t *testing.T) {
	cands, counts := pincode(pinCatalog(), Query{Pincode: "400001", Limit: 1})
	require.Len(t, cands, 1)
	assert.Equal(t, "1", cands[0].Clinic.ID)
	// Counts still cover every tier.
	assert.Equal(t, 1, counts.Nearby)
}

func TestGeospatialRadiusAndDistance(t *testing.T) {
	origin := geo.Coordinate{Lat: 19.076, Lng: 72.8777}
	clinics := []catalog.Clinic{
		{ID: "near", Coord: &geo.Coordinate{Lat: 19.08, Lng: 72.88}},
		{ID: "far", Coord: &geo.Coordinate{Lat: 18.52, Lng: 73.85}}, // Pune, ~120km
		{ID: "nocoord"},
	}
	cands := geospatial(clinics, Query{Origin: &origin, RadiusKm: 10})

	require.Len(t, cands, 1)
	assert.Equal(t, "near", cands[0].Clinic.ID)
	assert.False(t, geo.Undefined(cands[0].DistanceKm))
	assert.Less(t, cands[0].DistanceKm, 10.0)
}

func TestTextScoringOrder(t *testing.T) {
	clinics := []catalog.Clinic{
		{ID: "contains", Name: "City Physio Center"},
		{ID: "exact", Name: "Physio"},
		{ID: "prefix", Name: "Physio Plus"},
		{ID: "service", Name: "Wellness Hub", Services: []string{"physiotherapy"}},
		{ID: "none", Name: "Dental Studio"},
	}
	cands := text(clinics, Query{FreeText: "Physio"})

	require.Len(t, cands, 4)
	assert.Equal(t, "exact", cands[0].Clinic.ID)
	assert.Equal(t, "prefix", cands[1].Clinic.ID)
	assert.Equal(t, "contains", cands[2].Clinic.ID)
	assert.Equal(t, "service", cands[3].Clinic.ID)
}

func TestTextVerifiedAndRatingBonus(t *testing.T) {
	clinics := []catalog.Clinic{
		{ID: "plain", Name: "Physio One"},
		{ID: "boosted", Name: "Physio Two", Verified: true, Rating: 4.5, HasRating: true},
	}
	cands := text(clinics, Query{FreeText: "physio"})

	require.Len(t, cands, 2)
	assert.Equal(t, "boosted", cands[0].Clinic.ID)
	assert.Equal(t, 50.0+5+9, cands[0].TextScore)
}

func TestFallbackRatingOrderAndFilters(t *testing.T) {
	verified := true
	clinics := []catalog.Clinic{
		{ID: "low", Rating: 2, HasRating: true, Verified: true},
		{ID: "high", Rating: 4.8, HasRating: true, Verified: true},
		{ID: "unverified", Rating: 5, HasRating: true},
		{ID: "unrated", Verified: true},
	}
	cands := fallback(clinics, Query{Verified: &verified, Limit: 10})

	require.Len(t, cands, 3)
	assert.Equal(t, "high", cands[0].Clinic.ID)
	assert.Equal(t, "low", cands[1].Clinic.ID)
	assert.Equal(t, "unrated", cands[2].Clinic.ID)
}

func TestMatchesFilters(t *testing.T) {
	verified := true
	c := catalog.Clinic{Verified: true, Status: "active", Rating: 4, HasRating: true,
		Services: []string{"Physiotherapy", "Orthopedics"}}

	assert.True(t, matchesFilters(c, Query{Verified: &verified, Status: "active", MinRating: 3.5}))
	assert.True(t, matchesFilters(c, Query{Services: []string{"orthopedics"}}))
	assert.False(t, matchesFilters(c, Query{Status: "closed"}))
	assert.False(t, matchesFilters(c, Query{MinRating: 4.5}))
	assert.False(t, matchesFilters(c, Query{Services: []string{"cardiology"}}))
}
