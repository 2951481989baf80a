// Catalog ingest tool: loads a clinic CSV into PostgreSQL with batched
// upserts so the search side can refresh from a populated table.
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/utils"
)

const batchSize = 500

func main() {
	file := flag.String("file", "", "clinic CSV path")
	flag.Parse()
	if *file == "" {
		log.Fatal("missing -file")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := catalog.EnsureSchema(db); err != nil {
		log.Fatal(err)
	}

	rd := csv.NewReader(f)
	header, err := rd.Read()
	if err != nil {
		log.Fatal(err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"id", "name"} {
		if _, ok := col[required]; !ok {
			log.Fatalf("missing column %q", required)
		}
	}

	tx, stmt := begin(db)
	count := 0
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal(err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		lat := nullFloat(get("lat"))
		lng := nullFloat(get("lng"))
		rating := nullFloat(get("rating"))
		verified := strings.EqualFold(get("verified"), "true")
		status := get("status")
		if status == "" {
			status = "active"
		}
		services := []string{}
		for _, s := range strings.Split(get("services"), ";") {
			if s = strings.TrimSpace(s); s != "" {
				services = append(services, s)
			}
		}

		if _, err := stmt.Exec(get("id"), get("name"), get("address"), get("location"),
			get("pincode"), lat, lng, rating, verified, status, pq.Array(services)); err != nil {
			log.Fatal(err)
		}
		count++
		// Periodic commits keep transactions and lock windows small.
		if count%batchSize == 0 {
			commit(tx, stmt)
			tx, stmt = begin(db)
		}
	}
	commit(tx, stmt)
	log.Printf("ingest done: %d clinics", count)
}

func begin(db *sql.DB) (*sql.Tx, *sql.Stmt) {
	tx, err := db.Begin()
	if err != nil {
		log.Fatal(err)
	}
	stmt, err := tx.Prepare(`INSERT INTO clinics
		(id, name, address, location, pincode, lat, lng, rating, verified, status, services)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
		name=EXCLUDED.name, address=EXCLUDED.address, location=EXCLUDED.location,
		pincode=EXCLUDED.pincode, lat=EXCLUDED.lat, lng=EXCLUDED.lng,
		rating=EXCLUDED.rating, verified=EXCLUDED.verified, status=EXCLUDED.status,
		services=EXCLUDED.services`)
	if err != nil {
		log.Fatal(err)
	}
	return tx, stmt
}

func commit(tx *sql.Tx, stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		log.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatal(err)
	}
}

func nullFloat(s string) sql.NullFloat64 {
	if s == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
