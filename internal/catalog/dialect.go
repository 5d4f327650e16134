// internal/catalog/dialect.go
package catalog

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// dialect captures the per-driver SQL differences the store needs:
// schema DDL and placeholder style.
type dialect struct {
	driver           string
	schema           []string
	numberedArgs     bool // postgres uses $1..$n instead of ?
	connectionParams string
}

var dialects = map[string]dialect{
	"sqlite3": {
		driver:           "sqlite3",
		connectionParams: "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id          TEXT PRIMARY KEY,
				source_id   TEXT NOT NULL,
				source_url  TEXT NOT NULL UNIQUE,
				title       TEXT NOT NULL,
				author      TEXT,
				price       REAL,
				image_url   TEXT,
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS product_details (
				product_id       TEXT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
				description      TEXT,
				isbn             TEXT,
				publisher        TEXT,
				publication_date TEXT,
				format           TEXT,
				pages            INTEGER,
				language         TEXT,
				dimensions       TEXT,
				rating           REAL,
				review_count     INTEGER,
				availability     TEXT
			)`,
		},
	},
	"postgres": {
		driver:       "postgres",
		numberedArgs: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id          TEXT PRIMARY KEY,
				source_id   TEXT NOT NULL,
				source_url  TEXT NOT NULL UNIQUE,
				title       TEXT NOT NULL,
				author      TEXT,
				price       DOUBLE PRECISION,
				image_url   TEXT,
				created_at  TIMESTAMPTZ NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS product_details (
				product_id       TEXT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
				description      TEXT,
				isbn             TEXT,
				publisher        TEXT,
				publication_date TEXT,
				format           TEXT,
				pages            INTEGER,
				language         TEXT,
				dimensions       TEXT,
				rating           DOUBLE PRECISION,
				review_count     INTEGER,
				availability     TEXT
			)`,
		},
	},
	"mysql": {
		driver: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id          VARCHAR(36) PRIMARY KEY,
				source_id   VARCHAR(255) NOT NULL,
				source_url  VARCHAR(512) NOT NULL,
				title       TEXT NOT NULL,
				author      TEXT,
				price       DOUBLE,
				image_url   TEXT,
				created_at  DATETIME(6) NOT NULL,
				updated_at  DATETIME(6) NOT NULL,
				UNIQUE KEY uq_products_source_url (source_url)
			)`,
			`CREATE TABLE IF NOT EXISTS product_details (
				product_id       VARCHAR(36) PRIMARY KEY,
				description      TEXT,
				isbn             VARCHAR(32),
				publisher        VARCHAR(255),
				publication_date VARCHAR(64),
				format           VARCHAR(64),
				pages            INT,
				language         VARCHAR(64),
				dimensions       VARCHAR(128),
				rating           DOUBLE,
				review_count     INT,
				availability     VARCHAR(128),
				CONSTRAINT fk_details_product FOREIGN KEY (product_id)
					REFERENCES products(id) ON DELETE CASCADE
			)`,
		},
	},
}

// applyDSNParams appends the connection parameters a driver needs to
// behave correctly, leaving caller-supplied values alone.
func (d dialect) applyDSNParams(dsn string) string {
	switch d.driver {
	case "sqlite3":
		if dsn != ":memory:" && d.connectionParams != "" {
			return dsn + d.connectionParams
		}
	case "mysql":
		// Without parseTime the driver hands DATETIME columns back as
		// []byte, which cannot scan into time.Time.
		params := []string{}
		if !strings.Contains(dsn, "parseTime=") {
			params = append(params, "parseTime=true")
		}
		if !strings.Contains(dsn, "loc=") {
			params = append(params, "loc=UTC")
		}
		if len(params) == 0 {
			return dsn
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + strings.Join(params, "&")
	}
	return dsn
}

// dialectFor returns the dialect for a configured driver name.
func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return d, nil
}

// rebind rewrites ? placeholders to $1..$n for drivers that need numbered
// arguments. Queries are written in ? style throughout the store.
func (d dialect) rebind(query string) string {
	if !d.numberedArgs {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err looks like a unique-constraint
// failure on any supported backend. Used to resolve concurrent first-time
// merges of the same source URL.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite3, postgres
		strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "duplicate entry") // mysql
}
