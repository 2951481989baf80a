// Package geoip resolves a client IP to an approximate search origin from a
// GeoLite2/GeoIP2 city database. Strictly opt-in per request (near=auto) and
// best effort: a missing database or failed lookup disables the feature, it
// never produces an error.
package geoip

import (
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
)

type Resolver struct {
	db *geoip2.Reader
}

// NewFromEnv opens the database at GEOIP_MMDB_PATH. Unset or unreadable path
// returns nil; callers treat a nil resolver as feature-off.
func NewFromEnv() *Resolver {
	path := os.Getenv("GEOIP_MMDB_PATH")
	if path == "" {
		return nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		logger.L().Warn("geoip_open_error", "path", path, "err", err)
		return nil
	}
	logger.L().Info("geoip_ready", "path", path)
	return &Resolver{db: db}
}

// Origin maps an IP to a coordinate. False when the resolver is off, the IP
// does not parse, or the database has no usable location for it.
func (r *Resolver) Origin(ip string) (geo.Coordinate, bool) {
	if r == nil || r.db == nil {
		return geo.Coordinate{}, false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return geo.Coordinate{}, false
	}
	rec, err := r.db.City(parsed)
	if err != nil || rec == nil {
		return geo.Coordinate{}, false
	}
	c := geo.Coordinate{Lat: rec.Location.Latitude, Lng: rec.Location.Longitude}
	// The zero value doubles as "no data" in the mmdb.
	if (c.Lat == 0 && c.Lng == 0) || !c.Valid() {
		return geo.Coordinate{}, false
	}
	return c, true
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
