package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/cache"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/search"
)

func testMux(t *testing.T) *http.ServeMux {
	t.Helper()
	snap := catalog.NewSnapshot(&catalog.StaticSource{Clinics: []catalog.Clinic{
		{ID: "fort", Name: "Fort Physio", Pincode: "400001",
			Coord:  &geo.Coordinate{Lat: 18.935, Lng: 72.835},
			Rating: 4.5, HasRating: true, Verified: true, Status: "active"},
		{ID: "colaba", Name: "Colaba Rehab", Pincode: "400005",
			Coord:  &geo.Coordinate{Lat: 18.915, Lng: 72.825},
			Rating: 3.8, HasRating: true, Status: "active"},
	}})
	require.NoError(t, snap.Refresh(context.Background()))
	o, err := search.New(snap, cache.NewLocal(), nil, search.Config{})
	require.NoError(t, err)
	return BuildRoutes(o, snap, cache.NewLocal(), nil)
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSearchEndpoint(t *testing.T) {
	mux := testMux(t)
	w := get(t, mux, "/search?lat=18.93&lng=72.83&radius=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("content-type"))
	assert.Equal(t, "no-store", w.Header().Get("cache-control"))

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "geospatial", res.Meta.Strategy)
	assert.Len(t, res.Clinics, 2)
	assert.Equal(t, 20, res.Meta.Limit)
}

func TestSearchEndpointValidation(t *testing.T) {
	mux := testMux(t)

	w := get(t, mux, "/search?lat=abc&lng=72.83")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "lat", e.Field)

	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?lat=95&lng=72.83").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?radius=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?verified=maybe").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?minRating=7").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?limit=-5").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?pincode=40").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/search?query=p").Code)
}

func TestPincodeEndpoint(t *testing.T) {
	mux := testMux(t)
	w := get(t, mux, "/pincode/400001")
	require.Equal(t, http.StatusOK, w.Code)

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "pincode", res.Meta.Strategy)
	require.NotNil(t, res.Meta.TierCounts)
	assert.Equal(t, 1, res.Meta.TierCounts.Exact)
	require.NotEmpty(t, res.Clinics)
	assert.Equal(t, "fort", res.Clinics[0].Clinic.ID)
}

func TestPincodeEndpointRejectsShortCode(t *testing.T) {
	mux := testMux(t)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/pincode/40").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/pincode/40a001").Code)
	assert.Equal(t, http.StatusOK, get(t, mux, "/pincode/400").Code)
}

func TestClinicsListing(t *testing.T) {
	mux := testMux(t)
	w := get(t, mux, "/clinics?limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var res search.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "fallback", res.Meta.Strategy)
	require.Len(t, res.Clinics, 1)
	// Rating-ordered default listing.
	assert.Equal(t, "fort", res.Clinics[0].Clinic.ID)
	assert.True(t, res.Meta.HasMore)
}

func TestHealthz(t *testing.T) {
	mux := testMux(t)
	w := get(t, mux, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAdminRefreshRequiresToken(t *testing.T) {
	mux := testMux(t)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	t.Setenv("ADMIN_TOKEN", "secret")
	r := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	r.Header.Set("x-admin-token", "secret")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
