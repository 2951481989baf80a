// Package utils: connection helpers shared by the server and the ingest
// tools; environment variable reading lives here so defaults stay in one place.
package utils

import (
	"database/sql"
	"os"

	_ "github.com/lib/pq"
)

func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return db, nil
}

func BuildPostgresDSNFromEnv() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASSWORD")
	db := os.Getenv("PG_DB")
	if db == "" {
		db = "rehabconnect"
	}
	ssl := os.Getenv("PG_SSLMODE")
	if ssl == "" {
		ssl = "disable"
	}
	dsn := "host=" + host + " port=" + port + " user=" + user + " dbname=" + db + " sslmode=" + ssl
	if pass != "" {
		dsn += " password=" + pass
	}
	return dsn
}

func OpenPostgresFromEnv() (*sql.DB, error) {
	return OpenPostgres(BuildPostgresDSNFromEnv())
}
