package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/vegasq/medframe/internal/logging"
	"github.com/vegasq/medframe/table"
)

var (
	// ErrTableExists is returned by Register when the name is taken and
	// replacement was not requested.
	ErrTableExists = errors.New("table already registered")

	// ErrNoSuchTable is returned when dropping a table that is not
	// registered.
	ErrNoSuchTable = errors.New("table not registered")

	// ErrInvalidName is returned for table names that are not plain SQL
	// identifiers.
	ErrInvalidName = errors.New("invalid table name")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrBusy is returned by Register and Drop while a cursor returned by
	// Stream is still open.
	ErrBusy = errors.New("session has open cursors")

	// ErrNoColumns is returned when registering a table without columns.
	ErrNoColumns = errors.New("table has no columns")
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as a table name.
func ValidName(name string) bool {
	return identRe.MatchString(name)
}

// Session owns a private in-memory SQL catalog. Tables registered in one
// session are invisible to every other session. A Session is safe for
// concurrent use.
type Session struct {
	db     *sqlx.DB
	keep   *sql.Conn
	dsn    string
	logger *zap.Logger

	mu     sync.Mutex
	tables map[string]table.Schema
	closed bool
	// cursors counts Rows not yet closed. Shared-cache SQLite blocks schema
	// changes until every reader finishes.
	cursors int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession opens a new session backed by a private in-memory SQLite
// database.
func NewSession(ctx context.Context, opts ...Option) (*Session, error) {
	s := &Session{
		dsn:    fmt.Sprintf("file:medframe-%s?mode=memory&cache=shared", uuid.NewString()),
		tables: make(map[string]table.Schema),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("query")

	db, err := sqlx.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// An in-memory database lives as long as one connection to it is open.
	keep, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pin connection: %w", err)
	}
	s.db = db
	s.keep = keep

	s.logger.Debug("opened session", zap.String("dsn", s.dsn))
	return s, nil
}

// Close drops every registered table and releases the database. Closing an
// already closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tables = nil
	return errors.Join(s.keep.Close(), s.db.Close())
}

// Tables returns the registered table names in sorted order.
func (s *Session) Tables() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the schema a table was registered with.
func (s *Session) Schema(name string) (table.Schema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.tables[name]
	return schema, ok
}

// Register makes t queryable under name.
//
// An existing table of the same name is replaced when replace is true;
// otherwise the call fails with ErrTableExists. Rows are inserted in a single
// transaction, so a failed registration leaves the catalog unchanged.
//
// Register fails with ErrBusy while any Stream cursor is open, and with
// ErrNoColumns for a table without columns.
func (s *Session) Register(ctx context.Context, name string, t *table.Table, replace bool) error {
	if !ValidName(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if t.Width() == 0 {
		return fmt.Errorf("%q: %w", name, ErrNoColumns)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.cursors > 0 {
		return fmt.Errorf("register %q: %d open: %w", name, s.cursors, ErrBusy)
	}
	_, exists := s.tables[name]
	if exists && !replace {
		return fmt.Errorf("%q: %w", name, ErrTableExists)
	}

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(name, t.Schema())); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", name, err)
	}

	if t.Width() > 0 && t.Len() > 0 {
		stmt, err := tx.PreparexContext(ctx, insertSQL(name, t.Schema()))
		if err != nil {
			return fmt.Errorf("sqlite: prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		args := make([]any, t.Width())
		for i := 0; i < t.Len(); i++ {
			for j, v := range t.Row(i) {
				args[j] = bindValue(v)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("sqlite: insert row %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	s.tables[name] = t.Schema()

	s.logger.Info("registered table",
		zap.String("table", name),
		zap.Int("rows", t.Len()),
		zap.Bool("replaced", exists),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Drop removes a registered table. Like Register it fails with ErrBusy
// while a Stream cursor is open.
func (s *Session) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNoSuchTable)
	}
	if s.cursors > 0 {
		return fmt.Errorf("drop %q: %d open: %w", name, s.cursors, ErrBusy)
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quoteIdent(name)); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", name, err)
	}
	delete(s.tables, name)
	return nil
}

// acquireCursor reserves a cursor slot; releaseCursor gives it back.
func (s *Session) acquireCursor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cursors++
	return nil
}

func (s *Session) releaseCursor() {
	s.mu.Lock()
	s.cursors--
	s.mu.Unlock()
}

// sqlTypes maps column types to declared SQLite types. The declared type is
// read back from result metadata to restore the column type.
var sqlTypes = map[table.Type]string{
	table.String: "TEXT",
	table.Int:    "INTEGER",
	table.Float:  "REAL",
	table.Bool:   "BOOLEAN",
	table.Date:   "DATE",
}

func createTableSQL(name string, schema table.Schema) string {
	cols := make([]string, schema.Len())
	for i, f := range schema.Fields() {
		cols[i] = quoteIdent(f.Name) + " " + sqlTypes[f.Type]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(cols, ", "))
}

func insertSQL(name string, schema table.Schema) string {
	cols := make([]string, schema.Len())
	placeholders := make([]string, schema.Len())
	for i, f := range schema.Fields() {
		cols[i] = quoteIdent(f.Name)
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// bindValue stores dates as ISO text so that SQLite date functions apply.
func bindValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(table.DateLayout)
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}
