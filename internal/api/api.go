// Package api registers the HTTP routes on a child ServeMux so the main
// entry point stays a thin assembly of middleware and dependencies.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/cache"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geoip"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/search"
)

// errorBody is the structural-validation error shape.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg, field string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Field: field})
}

// clientIP prefers the proxy headers this deployment sits behind, then the
// direct peer.
func clientIP(r *http.Request) string {
	if x := r.Header.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := r.Header.Get("x-real-ip"); x != "" {
		return x
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	return host
}

// parseQuery maps request params onto a search query; the bool result is
// false when a response was already written.
func parseQuery(w http.ResponseWriter, r *http.Request, resolver *geoip.Resolver) (search.Query, bool) {
	var q search.Query
	p := r.URL.Query()

	q.FreeText = p.Get("query")
	q.Pincode = p.Get("pincode")
	q.Status = p.Get("status")

	latS, lngS := p.Get("lat"), p.Get("lng")
	if latS != "" || lngS != "" {
		lat, errA := strconv.ParseFloat(latS, 64)
		lng, errB := strconv.ParseFloat(lngS, 64)
		if errA != nil || errB != nil {
			badRequest(w, "lat and lng must both be numbers", "lat")
			return q, false
		}
		q.Origin = &geo.Coordinate{Lat: lat, Lng: lng}
	} else if p.Get("near") == "auto" {
		if c, ok := resolver.Origin(clientIP(r)); ok {
			q.Origin = &c
		}
	}

	if s := p.Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			badRequest(w, "radius must be a non-negative number", "radius")
			return q, false
		}
		q.RadiusKm = v
	}
	if s := p.Get("verified"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			badRequest(w, "verified must be a boolean", "verified")
			return q, false
		}
		q.Verified = &v
	}
	if s := p.Get("minRating"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 5 {
			badRequest(w, "minRating must be between 0 and 5", "minRating")
			return q, false
		}
		q.MinRating = v
	}
	if s := p.Get("services"); s != "" {
		for _, svc := range strings.Split(s, ",") {
			if svc = strings.TrimSpace(svc); svc != "" {
				q.Services = append(q.Services, svc)
			}
		}
	}
	var ok bool
	if q.Limit, ok = parseIntParam(w, p.Get("limit"), "limit"); !ok {
		return q, false
	}
	if q.Offset, ok = parseIntParam(w, p.Get("offset"), "offset"); !ok {
		return q, false
	}
	return q, true
}

func parseIntParam(w http.ResponseWriter, s, field string) (int, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		badRequest(w, field+" must be a non-negative integer", field)
		return 0, false
	}
	return v, true
}

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

// BuildRoutes wires the search endpoints onto a fresh ServeMux for mounting
// under the API base path.
func BuildRoutes(o *search.Orchestrator, snap *catalog.Snapshot, store cache.Store, resolver *geoip.Resolver) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		q, ok := parseQuery(w, r, resolver)
		if !ok {
			return
		}
		res, err := o.Search(r.Context(), q)
		if err != nil {
			if errors.Is(err, search.ErrInvalidQuery) {
				badRequest(w, err.Error(), "")
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "search failed"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /pincode/{code}", func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		if len(code) < 3 || !isDigits(code) {
			badRequest(w, "pincode must be at least 3 digits", "code")
			return
		}
		q := search.Query{Pincode: code}
		var ok bool
		if q.Limit, ok = parseIntParam(w, r.URL.Query().Get("limit"), "limit"); !ok {
			return
		}
		res, err := o.Pincode(r.Context(), q)
		if err != nil {
			if errors.Is(err, search.ErrInvalidQuery) {
				badRequest(w, err.Error(), "code")
				return
			}
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "search failed"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /clinics", func(w http.ResponseWriter, r *http.Request) {
		// Unfiltered default listing: the fallback strategy by construction.
		q, ok := parseQuery(w, r, nil)
		if !ok {
			return
		}
		q.FreeText, q.Origin, q.Pincode = "", nil, ""
		res, err := o.Search(r.Context(), q)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "listing failed"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"clinics":            snap.Count(),
			"snapshotAgeSeconds": int(snap.Age().Seconds()),
		}
		if !snap.Loaded() {
			body["status"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ok"
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("POST /admin/refresh", func(w http.ResponseWriter, r *http.Request) {
		t := r.Header.Get("x-admin-token")
		if t == "" || t != os.Getenv("ADMIN_TOKEN") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// Catalog writes invalidate both the snapshot and the fused cache.
		snap.Invalidate()
		if store != nil {
			_ = store.InvalidatePattern(r.Context(), "search:")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}
