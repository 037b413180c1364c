// Package store persists the book catalog and orders in a local SQLite
// database, with a short-lived read cache in front of the hot queries.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bookbot/internal/logging"
	"bookbot/internal/types"
)

// ErrInsufficientStock is returned when an order asks for more copies than
// the catalog holds.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrBookNotFound is returned for lookups of unknown book ids.
var ErrBookNotFound = errors.New("book not found")

// DefaultCacheTTL bounds how long read results are served from cache.
const DefaultCacheTTL = 5 * time.Minute

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS books (
    book_id        TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    author         TEXT NOT NULL,
    category       TEXT NOT NULL,
    price          INTEGER NOT NULL,
    stock          INTEGER NOT NULL DEFAULT 0,
    isbn           TEXT,
    description    TEXT,
    rating         REAL,
    published_year INTEGER,
    created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    order_id      TEXT PRIMARY KEY,
    customer_name TEXT NOT NULL,
    phone         TEXT NOT NULL,
    address       TEXT NOT NULL,
    book_id       TEXT NOT NULL,
    quantity      INTEGER NOT NULL,
    status        TEXT NOT NULL DEFAULT 'Pending',
    total_price   INTEGER NOT NULL,
    created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (book_id) REFERENCES books (book_id)
);

CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
CREATE INDEX IF NOT EXISTS idx_books_category ON books(category);
CREATE INDEX IF NOT EXISTS idx_books_price ON books(price);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
`

// =============================================================================
// LOCAL STORE
// =============================================================================

// Local is the SQLite-backed catalog/order store. A single connection with
// WAL keeps writes serialized without cross-process lock churn.
type Local struct {
	db       *sql.DB
	cacheTTL time.Duration

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	books    []types.Book
	cachedAt time.Time
}

// Open opens (creating if needed) the database at path and ensures the
// schema. Use ":memory:" for an ephemeral store in tests.
func Open(path string, cacheTTL time.Duration) (*Local, error) {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("opened database at %s", path)
	return &Local{
		db:       db,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// Close releases the underlying database handle.
func (s *Local) Close() error {
	return s.db.Close()
}

// =============================================================================
// CACHE
// =============================================================================

func (s *Local) cached(key string) ([]types.Book, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.cache[key]
	if !ok || time.Since(entry.cachedAt) >= s.cacheTTL {
		return nil, false
	}
	return entry.books, true
}

func (s *Local) setCache(key string, books []types.Book) {
	s.cacheMu.Lock()
	s.cache[key] = cacheEntry{books: books, cachedAt: time.Now()}
	s.cacheMu.Unlock()
}

// invalidate drops the whole read cache; called after every write.
func (s *Local) invalidate() {
	s.cacheMu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.cacheMu.Unlock()
}

// =============================================================================
// BOOK QUERIES
// =============================================================================

const bookColumns = `book_id, title, author, category, price, stock,
	isbn, description, rating, published_year, created_at, updated_at`

// AllBooks returns the whole catalog ordered by title.
func (s *Local) AllBooks() ([]types.Book, error) {
	if books, ok := s.cached("all"); ok {
		return books, nil
	}

	books, err := s.queryBooks("SELECT "+bookColumns+" FROM books ORDER BY title", nil)
	if err != nil {
		return nil, err
	}
	s.setCache("all", books)
	return books, nil
}

// BookByID fetches a single book, or ErrBookNotFound.
func (s *Local) BookByID(id string) (*types.Book, error) {
	books, err := s.queryBooks("SELECT "+bookColumns+" FROM books WHERE book_id = ?", []interface{}{id})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return &books[0], nil
}

// SearchBooks matches the query against title, author and category.
func (s *Local) SearchBooks(query string) ([]types.Book, error) {
	key := "search:" + query
	if books, ok := s.cached(key); ok {
		return books, nil
	}

	like := "%" + query + "%"
	books, err := s.queryBooks(
		"SELECT "+bookColumns+" FROM books WHERE title LIKE ? OR author LIKE ? OR category LIKE ? ORDER BY title",
		[]interface{}{like, like, like})
	if err != nil {
		return nil, err
	}
	s.setCache(key, books)
	return books, nil
}

// BooksByAuthor returns books whose author contains the given name.
func (s *Local) BooksByAuthor(author string) ([]types.Book, error) {
	return s.queryBooks(
		"SELECT "+bookColumns+" FROM books WHERE author LIKE ? ORDER BY title",
		[]interface{}{"%" + author + "%"})
}

// BooksByCategory returns books whose category contains the given name.
func (s *Local) BooksByCategory(category string) ([]types.Book, error) {
	return s.queryBooks(
		"SELECT "+bookColumns+" FROM books WHERE category LIKE ? ORDER BY title",
		[]interface{}{"%" + category + "%"})
}

// BooksByPriceRange filters by price; nil bounds are unbounded.
func (s *Local) BooksByPriceRange(min, max *int) ([]types.Book, error) {
	var conditions []string
	var args []interface{}
	if min != nil {
		conditions = append(conditions, "price >= ?")
		args = append(args, *min)
	}
	if max != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *max)
	}

	query := "SELECT " + bookColumns + " FROM books"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY price"
	return s.queryBooks(query, args)
}

// AllCategories returns the distinct category names, sorted.
func (s *Local) AllCategories() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT category FROM books ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Local) queryBooks(query string, args []interface{}) ([]types.Book, error) {
	timer := logging.StartTimer(logging.CategoryStore, "query books")
	defer timer.Stop()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []types.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func scanBook(rows *sql.Rows) (types.Book, error) {
	var (
		b         types.Book
		isbn      sql.NullString
		desc      sql.NullString
		rating    sql.NullFloat64
		pubYear   sql.NullInt64
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Category, &b.Price, &b.Stock,
		&isbn, &desc, &rating, &pubYear, &createdAt, &updatedAt)
	if err != nil {
		return types.Book{}, fmt.Errorf("failed to scan book: %w", err)
	}
	b.ISBN = isbn.String
	b.Description = desc.String
	b.Rating = rating.Float64
	b.PublishedYear = int(pubYear.Int64)
	b.CreatedAt = parseTimestamp(createdAt.String)
	b.UpdatedAt = parseTimestamp(updatedAt.String)
	return b, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// =============================================================================
// BOOK WRITES
// =============================================================================

// UpsertBooks inserts or updates catalog records in one transaction.
func (s *Local) UpsertBooks(books []types.Book) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO books (book_id, title, author, category, price, stock, isbn, description, rating, published_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			category = excluded.category,
			price = excluded.price,
			stock = excluded.stock,
			isbn = excluded.isbn,
			description = excluded.description,
			rating = excluded.rating,
			published_year = excluded.published_year,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range books {
		if _, err := stmt.Exec(b.ID, b.Title, b.Author, b.Category, b.Price, b.Stock,
			nullable(b.ISBN), nullable(b.Description), nullableFloat(b.Rating), nullableInt(b.PublishedYear)); err != nil {
			return fmt.Errorf("failed to upsert book %s: %w", b.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	s.invalidate()
	logging.Store("upserted %d books", len(books))
	return nil
}

// UpdateStock sets a book's stock level.
func (s *Local) UpdateStock(bookID string, stock int) error {
	res, err := s.db.Exec(
		"UPDATE books SET stock = ?, updated_at = CURRENT_TIMESTAMP WHERE book_id = ?",
		stock, bookID)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrBookNotFound, bookID)
	}
	s.invalidate()
	return nil
}

// =============================================================================
// ORDERS
// =============================================================================

// CreateOrder persists an order, atomically verifying and decrementing
// stock in the same transaction. Insufficient stock or an unknown book
// fails without any partial write.
func (s *Local) CreateOrder(order types.Order) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRow("SELECT stock FROM books WHERE book_id = ?", order.BookID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrBookNotFound, order.BookID)
	}
	if err != nil {
		return fmt.Errorf("failed to check stock: %w", err)
	}
	if stock < order.Quantity {
		return fmt.Errorf("%w: book %s has %d, want %d", ErrInsufficientStock, order.BookID, stock, order.Quantity)
	}

	status := order.Status
	if status == "" {
		status = "Pending"
	}
	_, err = tx.Exec(`
		INSERT INTO orders (order_id, customer_name, phone, address, book_id, quantity, status, total_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerName, order.Phone, order.Address,
		order.BookID, order.Quantity, status, order.TotalPrice)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE books SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP WHERE book_id = ?",
		order.Quantity, order.BookID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	s.invalidate()
	logging.Store("created order %s: book=%s qty=%d", order.ID, order.BookID, order.Quantity)
	return nil
}

// OrdersByPhone returns a customer's orders, newest first.
func (s *Local) OrdersByPhone(phone string) ([]types.Order, error) {
	rows, err := s.db.Query(`
		SELECT order_id, customer_name, phone, address, book_id, quantity, status, total_price, created_at, updated_at
		FROM orders WHERE phone = ? ORDER BY created_at DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []types.Order
	for rows.Next() {
		var (
			o         types.Order
			createdAt sql.NullString
			updatedAt sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.Phone, &o.Address, &o.BookID,
			&o.Quantity, &o.Status, &o.TotalPrice, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.CreatedAt = parseTimestamp(createdAt.String)
		o.UpdatedAt = parseTimestamp(updatedAt.String)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order to a new status.
func (s *Local) UpdateOrderStatus(orderID, status string) error {
	res, err := s.db.Exec(
		"UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE order_id = ?",
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}

// =============================================================================
// STATISTICS
// =============================================================================

// Statistics summarizes the catalog and order book.
type Statistics struct {
	TotalBooks      int
	TotalCategories int
	TotalAuthors    int
	AveragePrice    float64
	TotalStock      int
	TotalOrders     int
	PendingOrders   int
	Revenue         int
}

// Stats gathers aggregate counts for reporting.
func (s *Local) Stats() (Statistics, error) {
	var stats Statistics
	queries := []struct {
		sql  string
		dest interface{}
	}{
		{"SELECT COUNT(*) FROM books", &stats.TotalBooks},
		{"SELECT COUNT(DISTINCT category) FROM books", &stats.TotalCategories},
		{"SELECT COUNT(DISTINCT author) FROM books", &stats.TotalAuthors},
		{"SELECT COALESCE(AVG(price), 0) FROM books", &stats.AveragePrice},
		{"SELECT COALESCE(SUM(stock), 0) FROM books", &stats.TotalStock},
		{"SELECT COUNT(*) FROM orders", &stats.TotalOrders},
		{"SELECT COUNT(*) FROM orders WHERE status = 'Pending'", &stats.PendingOrders},
		{"SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE status = 'Completed'", &stats.Revenue},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.sql).Scan(q.dest); err != nil {
			return Statistics{}, fmt.Errorf("failed to gather statistics: %w", err)
		}
	}
	return stats, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}

func nullableInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}
