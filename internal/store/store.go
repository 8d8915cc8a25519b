package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/patrickmn/go-cache"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupported     = errors.New("unsupported database driver")
	ErrDatabaseMissing = errors.New("database file not found")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	productCacheTTL = 30 * time.Second
)

type dialect struct {
	driver string
}

func (d dialect) dateOf(col string) string {
	if d.driver == DriverPostgres {
		return "CAST(" + col + " AS DATE)"
	}
	return "DATE(" + col + ")"
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(q string) string {
	if d.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is a read-only view of the POS database.
type Store struct {
	db      *sql.DB
	dialect dialect
	cache   *cache.Cache
	now     func() time.Time
}

// Open connects with the given driver. SQLite files are opened read-only.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			if _, err := os.Stat(dsn); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, dsn)
			}
			dsn = "file:" + filepath.ToSlash(dsn) + "?mode=ro"
		}
	case DriverPostgres, "postgres":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: dialect{driver: driver},
		cache:   cache.New(productCacheTTL, time.Minute),
		now:     time.Now,
	}, nil
}

// Connect opens the configured database. An SQLite driver without a DSN
// uses the first existing file of searchPaths. It returns the location used.
func Connect(ctx context.Context, driver, dsn string, searchPaths []string) (*Store, string, error) {
	if driver == DriverSQLite && dsn == "" {
		p, err := ResolveSQLitePath(searchPaths)
		if err != nil {
			return nil, "", err
		}
		dsn = p
	}
	s, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, dsn, err
	}
	return s, dsn, nil
}

// ResolveSQLitePath returns the first candidate file that exists.
func ResolveSQLitePath(candidates []string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		p := expandHome(c)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrDatabaseMissing, strings.Join(candidates, ", "))
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Driver() string {
	return s.dialect.driver
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(q), args...)
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
