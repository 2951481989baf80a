package catalog

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
)

// PostgresSource loads the catalog from the clinics table. The table is owned
// by the admin/CRUD side; this side only reads it wholesale per refresh.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource { return &PostgresSource{db: db} }

// EnsureSchema creates the clinics table when absent so a fresh deployment
// can ingest before the admin side exists.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS clinics (
		id       text PRIMARY KEY,
		name     text NOT NULL,
		address  text NOT NULL DEFAULT '',
		location text NOT NULL DEFAULT '',
		pincode  text NOT NULL DEFAULT '',
		lat      double precision,
		lng      double precision,
		rating   double precision,
		verified boolean NOT NULL DEFAULT false,
		status   text NOT NULL DEFAULT 'active',
		services text[] NOT NULL DEFAULT '{}'
	)`)
	return err
}

func (p *PostgresSource) Load(ctx context.Context) ([]Clinic, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, address, location, pincode, lat, lng, rating, verified, status, services
		 FROM clinics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		var c Clinic
		var lat, lng, rating sql.NullFloat64
		var services pq.StringArray
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Location, &c.Pincode,
			&lat, &lng, &rating, &c.Verified, &c.Status, &services); err != nil {
			return nil, err
		}
		if lat.Valid && lng.Valid {
			c.Coord = &geo.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
		}
		if rating.Valid {
			c.Rating = rating.Float64
			c.HasRating = true
		}
		c.Services = services
		out = append(out, c)
	}
	return out, rows.Err()
}
