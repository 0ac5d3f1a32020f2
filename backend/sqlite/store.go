// Package sqlite persists the commodity table and the book registry in a
// SQLite database.
//
// The commodity table feeds the decoder's resolver: commodities seen in
// earlier imports resolve even when a document references them without
// declaring them. The book registry tracks the books known to the
// application together with their last export time, which drives
// incremental register exports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/finledger/gnc"
)

const schema = `
CREATE TABLE IF NOT EXISTS commodities (
	namespace    TEXT NOT NULL,
	mnemonic     TEXT NOT NULL,
	fullname     TEXT NOT NULL DEFAULT '',
	fraction     INTEGER NOT NULL DEFAULT 100,
	cusip        TEXT NOT NULL DEFAULT '',
	quote_source TEXT NOT NULL DEFAULT '',
	quote_tz     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (namespace, mnemonic)
);
CREATE TABLE IF NOT EXISTS books (
	uid              TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL DEFAULT '',
	root_account_uid TEXT NOT NULL DEFAULT '',
	source_uri       TEXT NOT NULL DEFAULT '',
	last_export_time TIMESTAMP,
	created_at       TIMESTAMP NOT NULL
);
`

// Store is a SQLite-backed commodity store and book registry. It implements
// gnc.CommodityStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle, creating the schema if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Commodity looks up a commodity, treating the CURRENCY and ISO4217
// namespaces as aliases. A miss returns (nil, nil).
func (s *Store) Commodity(namespace, mnemonic string) (*gnc.Commodity, error) {
	query := `SELECT namespace, mnemonic, fullname, fraction, cusip, quote_source, quote_tz
		FROM commodities WHERE namespace = ? AND mnemonic = ? LIMIT 1`
	args := []any{namespace, mnemonic}
	if gnc.IsCurrencyNamespace(namespace) {
		query = `SELECT namespace, mnemonic, fullname, fraction, cusip, quote_source, quote_tz
			FROM commodities WHERE namespace IN (?, ?) AND mnemonic = ? LIMIT 1`
		args = []any{gnc.NamespaceCurrency, gnc.NamespaceISO4217, mnemonic}
	}
	var c gnc.Commodity
	err := s.db.QueryRow(query, args...).Scan(
		&c.Namespace, &c.Mnemonic, &c.Fullname, &c.SmallestFraction,
		&c.Cusip, &c.QuoteSource, &c.QuoteTimeZone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying commodity %s:%s: %w", namespace, mnemonic, err)
	}
	return &c, nil
}

// SaveCommodity inserts or updates a commodity.
func (s *Store) SaveCommodity(ctx context.Context, c *gnc.Commodity) error {
	if c == nil || c.IsTemplate() {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commodities (namespace, mnemonic, fullname, fraction, cusip, quote_source, quote_tz)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, mnemonic) DO UPDATE SET
			fullname = excluded.fullname,
			fraction = excluded.fraction,
			cusip = excluded.cusip,
			quote_source = excluded.quote_source,
			quote_tz = excluded.quote_tz`,
		c.Namespace, c.Mnemonic, c.Fullname, c.SmallestFraction,
		c.Cusip, c.QuoteSource, c.QuoteTimeZone)
	if err != nil {
		return fmt.Errorf("saving commodity %s:%s: %w", c.Namespace, c.Mnemonic, err)
	}
	return nil
}

// SaveBookCommodities persists every commodity a decoded book uses.
func (s *Store) SaveBookCommodities(ctx context.Context, book *gnc.Book) error {
	for _, c := range book.CommoditiesInUse() {
		if err := s.SaveCommodity(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// BookInfo is one entry of the book registry.
type BookInfo struct {
	UID            string
	DisplayName    string
	RootAccountUID string
	SourceURI      string
	LastExportTime time.Time
	CreatedAt      time.Time
}

// RegisterBook records a decoded book, assigning a generated display name
// ("Book 1", "Book 2", ...) when the book carries none.
func (s *Store) RegisterBook(ctx context.Context, book *gnc.Book, sourceURI string) error {
	name := book.DisplayName
	if name == "" {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
			return fmt.Errorf("counting books: %w", err)
		}
		name = fmt.Sprintf("Book %d", n+1)
		book.DisplayName = name
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (uid, display_name, root_account_uid, source_uri, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
			display_name = excluded.display_name,
			root_account_uid = excluded.root_account_uid,
			source_uri = excluded.source_uri`,
		book.UID, name, book.RootAccountUID, sourceURI, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("registering book %s: %w", book.UID, err)
	}
	return nil
}

// Books lists the registry in creation order.
func (s *Store) Books(ctx context.Context) ([]BookInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, display_name, root_account_uid, source_uri, last_export_time, created_at
		FROM books ORDER BY created_at, uid`)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []BookInfo
	for rows.Next() {
		var b BookInfo
		var lastExport sql.NullTime
		if err := rows.Scan(&b.UID, &b.DisplayName, &b.RootAccountUID,
			&b.SourceURI, &lastExport, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}
		if lastExport.Valid {
			b.LastExportTime = lastExport.Time
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

// Book returns one registry entry, or (nil, nil) when unknown.
func (s *Store) Book(ctx context.Context, uid string) (*BookInfo, error) {
	var b BookInfo
	var lastExport sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, display_name, root_account_uid, source_uri, last_export_time, created_at
		FROM books WHERE uid = ?`, uid).Scan(
		&b.UID, &b.DisplayName, &b.RootAccountUID, &b.SourceURI, &lastExport, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying book %s: %w", uid, err)
	}
	if lastExport.Valid {
		b.LastExportTime = lastExport.Time
	}
	return &b, nil
}

// SetLastExportTime records when a book's register was last exported; the
// next incremental export starts there.
func (s *Store) SetLastExportTime(ctx context.Context, bookUID string, t time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE books SET last_export_time = ? WHERE uid = ?`, t.UTC(), bookUID)
	if err != nil {
		return fmt.Errorf("updating export time for %s: %w", bookUID, err)
	}
	return nil
}

// DeleteBook removes a registry entry.
func (s *Store) DeleteBook(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("deleting book %s: %w", uid, err)
	}
	return nil
}
