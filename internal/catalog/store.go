// internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfmark/shelfmark/internal/utils"
)

// Store persists products in a relational database. It owns the schema
// and is the only shared mutable resource between concurrent scrapes.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  utils.Logger

	// overridable for deterministic tests
	now   func() time.Time
	newID func() string
}

// Options configures a Store.
type Options struct {
	Driver string
	DSN    string
	Logger utils.Logger
}

// NewStore opens the database, applies connection settings and ensures
// the schema exists.
func NewStore(opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := d.applyDSNParams(opts.DSN)

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.driver, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.driver, err)
	}

	if d.driver == "sqlite3" {
		// SQLite works best with a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NopLogger{}
	}

	s := &Store{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate creates the products and product_details tables if absent.
func (s *Store) migrate() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return &StoreError{Op: "migrate", Err: err}
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Merge upserts a candidate keyed by its source URL. A first merge creates
// the product with a fresh id; subsequent merges update the
// presentation-mutable fields and the details row in place, preserving id
// and created_at. Concurrent first-time merges of the same URL resolve
// last-write-wins via the unique constraint on source_url.
func (s *Store) Merge(ctx context.Context, sourceURL string, c Candidate) (*Product, error) {
	id, err := s.mergeOnce(ctx, sourceURL, c)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost an insert race; the row exists now, retry as an update.
			id, err = s.mergeOnce(ctx, sourceURL, c)
		}
		if err != nil {
			return nil, &StoreError{Op: "merge", Err: err}
		}
	}
	return s.GetByID(ctx, id)
}

func (s *Store) mergeOnce(ctx context.Context, sourceURL string, c Candidate) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT id FROM products WHERE source_url = ?`),
		sourceURL,
	).Scan(&id)

	now := s.now()
	switch {
	case err == sql.ErrNoRows:
		id = s.newID()
		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			INSERT INTO products (id, source_id, source_url, title, author, price, image_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			id, c.SourceID, sourceURL, c.Title, c.Author, c.Price, c.ImageURL, now, now,
		)
		if err != nil {
			return "", err
		}
		s.logger.WithField("source_url", sourceURL).Debug("product created")
	case err != nil:
		return "", fmt.Errorf("lookup by source_url: %w", err)
	default:
		_, err = tx.ExecContext(ctx, s.dialect.rebind(`
			UPDATE products
			SET source_id = ?, title = ?, author = ?, price = ?, image_url = ?, updated_at = ?
			WHERE id = ?`),
			c.SourceID, c.Title, c.Author, c.Price, c.ImageURL, now, id,
		)
		if err != nil {
			return "", fmt.Errorf("update product: %w", err)
		}
		s.logger.WithField("source_url", sourceURL).Debug("product updated")
	}

	if c.Details != nil {
		if err := s.upsertDetails(ctx, tx, id, c.Details); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit merge: %w", err)
	}
	return id, nil
}

// upsertDetails overwrites the details row in place, inserting it on the
// first merge. Update-then-insert keeps the statement portable across
// all three dialects.
func (s *Store) upsertDetails(ctx context.Context, tx *sql.Tx, productID string, d *Details) error {
	res, err := tx.ExecContext(ctx, s.dialect.rebind(`
		UPDATE product_details
		SET description = ?, isbn = ?, publisher = ?, publication_date = ?, format = ?,
		    pages = ?, language = ?, dimensions = ?, rating = ?, review_count = ?, availability = ?
		WHERE product_id = ?`),
		d.Description, d.ISBN, d.Publisher, d.PublicationDate, d.Format,
		d.Pages, d.Language, d.Dimensions, d.Rating, d.ReviewCount, d.Availability,
		productID,
	)
	if err != nil {
		return fmt.Errorf("update details: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("details rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO product_details
			(product_id, description, isbn, publisher, publication_date, format,
			 pages, language, dimensions, rating, review_count, availability)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		productID, d.Description, d.ISBN, d.Publisher, d.PublicationDate, d.Format,
		d.Pages, d.Language, d.Dimensions, d.Rating, d.ReviewCount, d.Availability,
	)
	if err != nil {
		return fmt.Errorf("insert details: %w", err)
	}
	return nil
}

var sortColumns = map[string]string{
	SortByCreatedAt: "created_at",
	SortByPrice:     "price",
	SortByTitle:     "title",
}

// List returns the page of products matching the filter plus pagination
// metadata. The total is counted independently of the page window.
func (s *Store) List(ctx context.Context, filter FilterSpec) ([]Product, Pagination, error) {
	f := filter.normalized()

	where, args := buildWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, Pagination{}, &StoreError{Op: "list", Err: err}
	}

	order := fmt.Sprintf(" ORDER BY %s %s", sortColumns[f.SortBy], f.SortOrder)
	query := `SELECT id, source_id, source_url, title, author, price, image_url, created_at, updated_at
		FROM products` + where + order + " LIMIT ? OFFSET ?"
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, Pagination{}, &StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, Pagination{}, &StoreError{Op: "list", Err: err}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, Pagination{}, &StoreError{Op: "list", Err: err}
	}

	meta := Pagination{
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (total + f.Limit - 1) / f.Limit,
	}
	return products, meta, nil
}

// buildWhere assembles the AND-combined predicate clauses for a filter.
func buildWhere(f FilterSpec) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if f.Search != "" {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)")
		pattern := "%" + lowerLike(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if f.MinPrice != nil {
		clauses = append(clauses, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.Author != "" {
		clauses = append(clauses, "LOWER(author) LIKE ?")
		args = append(args, "%"+lowerLike(f.Author)+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func lowerLike(s string) string { return strings.ToLower(s) }

// GetByID returns a product with its details, or ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT id, source_id, source_url, title, author, price, image_url, created_at, updated_at
		FROM products WHERE id = ?`), id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}

	details, err := s.loadDetails(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	p.Details = details
	return &p, nil
}

func (s *Store) loadDetails(ctx context.Context, productID string) (*Details, error) {
	var d Details
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT description, isbn, publisher, publication_date, format,
		       pages, language, dimensions, rating, review_count, availability
		FROM product_details WHERE product_id = ?`), productID).Scan(
		&d.Description, &d.ISBN, &d.Publisher, &d.PublicationDate, &d.Format,
		&d.Pages, &d.Language, &d.Dimensions, &d.Rating, &d.ReviewCount, &d.Availability,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete removes a product and its details permanently. Deleting an
// unknown id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM product_details WHERE product_id = ?`), id); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Stats aggregates the whole catalog. Price aggregates are 0 when no rows
// carry a price.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(price), 0),
		       COALESCE(MIN(price), 0),
		       COALESCE(MAX(price), 0)
		FROM products`).Scan(&st.TotalProducts, &st.AvgPrice, &st.MinPrice, &st.MaxPrice)
	if err != nil {
		return nil, &StoreError{Op: "stats", Err: err}
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT author) FROM products WHERE author IS NOT NULL`,
	).Scan(&st.TotalAuthors)
	if err != nil {
		return nil, &StoreError{Op: "stats", Err: err}
	}
	return &st, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(r rowScanner) (Product, error) {
	var (
		p        Product
		author   sql.NullString
		price    sql.NullFloat64
		imageURL sql.NullString
	)
	err := r.Scan(&p.ID, &p.SourceID, &p.SourceURL, &p.Title, &author, &price, &imageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if author.Valid {
		p.Author = &author.String
	}
	if price.Valid {
		p.Price = &price.Float64
	}
	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}
	return p, nil
}
