// internal/catalog/store_test.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// newTestStore opens an in-memory database with a deterministic clock and
// id sequence.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{Driver: "sqlite3", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	seq := 0
	store.newID = func() string {
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}
	return store
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func testCandidate(title string) Candidate {
	return Candidate{
		SourceID: "src-" + title,
		Title:    title,
		Author:   strPtr("Test Author"),
		Price:    floatPtr(9.99),
		Details: &Details{
			Availability: strPtr("In Stock"),
		},
	}
}

func TestMergeCreatesProduct(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCandidate("First Book")
	c.Details.ISBN = strPtr("978-0141182636")

	p, err := store.Merge(ctx, "https://example.com/first-book-1", c)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if p.ID == "" {
		t.Error("Expected a generated id")
	}
	if p.SourceURL != "https://example.com/first-book-1" {
		t.Errorf("Expected source URL to be stored, got %q", p.SourceURL)
	}
	if p.Title != "First Book" {
		t.Errorf("Expected title %q, got %q", "First Book", p.Title)
	}
	if p.Author == nil || *p.Author != "Test Author" {
		t.Errorf("Expected author, got %v", p.Author)
	}
	if !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Error("Expected createdAt to equal updatedAt on first merge")
	}
	if p.Details == nil || p.Details.ISBN == nil || *p.Details.ISBN != "978-0141182636" {
		t.Errorf("Expected details with ISBN, got %+v", p.Details)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url := "https://example.com/same-book-1"

	first, err := store.Merge(ctx, url, testCandidate("Same Book"))
	if err != nil {
		t.Fatalf("First merge failed: %v", err)
	}

	updated := testCandidate("Same Book")
	updated.Price = floatPtr(12.50)
	second, err := store.Merge(ctx, url, updated)
	if err != nil {
		t.Fatalf("Second merge failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected stable id %q, got %q", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected createdAt preserved, got %v vs %v", second.CreatedAt, first.CreatedAt)
	}
	if second.Price == nil || *second.Price != 12.50 {
		t.Errorf("Expected updated price 12.50, got %v", second.Price)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("Expected updatedAt to advance on re-merge")
	}

	_, meta, err := store.List(ctx, FilterSpec{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if meta.Total != 1 {
		t.Errorf("Expected a single product after re-merge, got %d", meta.Total)
	}
}

func TestMergeUpdatesDetailsInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url := "https://example.com/detail-book-1"

	c := testCandidate("Detail Book")
	c.Details.Publisher = strPtr("Old Press")
	if _, err := store.Merge(ctx, url, c); err != nil {
		t.Fatalf("First merge failed: %v", err)
	}

	c.Details.Publisher = strPtr("New Press")
	c.Details.Pages = intPtr(200)
	p, err := store.Merge(ctx, url, c)
	if err != nil {
		t.Fatalf("Second merge failed: %v", err)
	}

	if p.Details == nil {
		t.Fatal("Expected details after merge")
	}
	if p.Details.Publisher == nil || *p.Details.Publisher != "New Press" {
		t.Errorf("Expected publisher New Press, got %v", p.Details.Publisher)
	}
	if p.Details.Pages == nil || *p.Details.Pages != 200 {
		t.Errorf("Expected 200 pages, got %v", p.Details.Pages)
	}
}

func TestMergeNullableFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.Merge(ctx, "https://example.com/sparse-1", Candidate{
		SourceID: "sparse-1",
		Title:    "Sparse Book",
		Details:  &Details{Availability: strPtr("In Stock")},
	})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if p.Author != nil {
		t.Errorf("Expected nil author, got %q", *p.Author)
	}
	if p.Price != nil {
		t.Errorf("Expected nil price, got %v", *p.Price)
	}
	if p.ImageURL != nil {
		t.Errorf("Expected nil image URL, got %q", *p.ImageURL)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetByID(context.Background(), "missing-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.Merge(ctx, "https://example.com/doomed-1", testCandidate("Doomed Book"))
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for repeated delete, got %v", err)
	}
}

// seedCatalog inserts a small fixed catalog for query tests.
func seedCatalog(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	rows := []struct {
		url    string
		title  string
		author string
		price  float64
	}{
		{"https://example.com/gatsby-1", "The Great Gatsby", "F. Scott Fitzgerald", 8.99},
		{"https://example.com/dune-1", "Dune", "Frank Herbert", 12.50},
		{"https://example.com/emma-1", "Emma", "Jane Austen", 6.25},
		{"https://example.com/persuasion-1", "Persuasion", "Jane Austen", 7.75},
		{"https://example.com/neuromancer-1", "Neuromancer", "William Gibson", 10.00},
	}
	for _, r := range rows {
		_, err := store.Merge(ctx, r.url, Candidate{
			SourceID: r.url,
			Title:    r.title,
			Author:   strPtr(r.author),
			Price:    floatPtr(r.price),
		})
		if err != nil {
			t.Fatalf("Failed to seed %s: %v", r.title, err)
		}
	}
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t)
	seedCatalog(t, store)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   FilterSpec
		expected []string
	}{
		{
			name:     "no filter returns newest first",
			filter:   FilterSpec{},
			expected: []string{"Neuromancer", "Persuasion", "Emma", "Dune", "The Great Gatsby"},
		},
		{
			name:     "search matches title case-insensitively",
			filter:   FilterSpec{Search: "gatsby"},
			expected: []string{"The Great Gatsby"},
		},
		{
			name:     "search matches author",
			filter:   FilterSpec{Search: "herbert"},
			expected: []string{"Dune"},
		},
		{
			name:     "author filter",
			filter:   FilterSpec{Author: "austen", SortBy: SortByTitle, SortOrder: SortAsc},
			expected: []string{"Emma", "Persuasion"},
		},
		{
			name:     "price range",
			filter:   FilterSpec{MinPrice: floatPtr(7.00), MaxPrice: floatPtr(10.00), SortBy: SortByPrice, SortOrder: SortAsc},
			expected: []string{"Persuasion", "The Great Gatsby", "Neuromancer"},
		},
		{
			name:     "filters combine with AND",
			filter:   FilterSpec{Author: "austen", MaxPrice: floatPtr(7.00)},
			expected: []string{"Emma"},
		},
		{
			name:     "sort by price descending",
			filter:   FilterSpec{SortBy: SortByPrice, SortOrder: SortDesc},
			expected: []string{"Dune", "Neuromancer", "The Great Gatsby", "Persuasion", "Emma"},
		},
		{
			name:     "no matches yields empty page",
			filter:   FilterSpec{Search: "nonexistent"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, meta, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(products) != len(tt.expected) {
				t.Fatalf("Expected %d products, got %d", len(tt.expected), len(products))
			}
			for i, title := range tt.expected {
				if products[i].Title != title {
					t.Errorf("Position %d: expected %q, got %q", i, title, products[i].Title)
				}
			}
			if meta.Total != len(tt.expected) {
				t.Errorf("Expected total %d, got %d", len(tt.expected), meta.Total)
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		url := fmt.Sprintf("https://example.com/bulk-book-%d", i)
		_, err := store.Merge(ctx, url, Candidate{
			SourceID: fmt.Sprintf("bulk-%d", i),
			Title:    fmt.Sprintf("Bulk Book %02d", i),
		})
		if err != nil {
			t.Fatalf("Failed to seed product %d: %v", i, err)
		}
	}

	tests := []struct {
		name          string
		page, limit   int
		expectedCount int
		expectedPages int
	}{
		{"first page", 1, 10, 10, 3},
		{"last partial page", 3, 10, 5, 3},
		{"page past the end", 4, 10, 0, 3},
		{"exact division", 1, 5, 5, 5},
		{"defaults applied", 0, 0, 20, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, meta, err := store.List(ctx, FilterSpec{Page: tt.page, Limit: tt.limit})
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(products) != tt.expectedCount {
				t.Errorf("Expected %d products, got %d", tt.expectedCount, len(products))
			}
			if meta.Total != 25 {
				t.Errorf("Expected total 25, got %d", meta.Total)
			}
			if meta.TotalPages != tt.expectedPages {
				t.Errorf("Expected %d pages, got %d", tt.expectedPages, meta.TotalPages)
			}
		})
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed on empty catalog: %v", err)
	}
	if empty.TotalProducts != 0 || empty.AvgPrice != 0 || empty.MinPrice != 0 || empty.MaxPrice != 0 {
		t.Errorf("Expected zeroed stats on empty catalog, got %+v", empty)
	}

	seedCatalog(t, store)
	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalProducts != 5 {
		t.Errorf("Expected 5 products, got %d", st.TotalProducts)
	}
	if st.TotalAuthors != 4 {
		t.Errorf("Expected 4 distinct authors, got %d", st.TotalAuthors)
	}
	if st.MinPrice != 6.25 {
		t.Errorf("Expected min price 6.25, got %v", st.MinPrice)
	}
	if st.MaxPrice != 12.50 {
		t.Errorf("Expected max price 12.50, got %v", st.MaxPrice)
	}
	expectedAvg := (8.99 + 12.50 + 6.25 + 7.75 + 10.00) / 5
	if diff := st.AvgPrice - expectedAvg; diff > 0.0001 || diff < -0.0001 {
		t.Errorf("Expected avg price %v, got %v", expectedAvg, st.AvgPrice)
	}
}

func TestFilterSpecNormalized(t *testing.T) {
	f := FilterSpec{SortBy: "bogus", SortOrder: "sideways", Page: -1, Limit: 0}.normalized()
	if f.SortBy != SortByCreatedAt {
		t.Errorf("Expected default sortBy, got %q", f.SortBy)
	}
	if f.SortOrder != SortDesc {
		t.Errorf("Expected default sortOrder, got %q", f.SortOrder)
	}
	if f.Page != DefaultPage || f.Limit != DefaultLimit {
		t.Errorf("Expected default page window, got page %d limit %d", f.Page, f.Limit)
	}
}

func intPtr(i int) *int { return &i }
