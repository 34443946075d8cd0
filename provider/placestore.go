package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"go-termgps/nav"
)

// PlaceStore keeps the user's saved places in SQL. A file path selects
// SQLite; a postgres:// URL selects PostgreSQL through pgx.
type PlaceStore struct {
	DB       *sql.DB
	postgres bool
}

// OpenPlaceStore opens the database behind dsn and creates the schema.
func OpenPlaceStore(ctx context.Context, dsn string) (*PlaceStore, error) {
	driver := "sqlite"
	postgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	if postgres {
		driver = "pgx"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open place store: open %s database: %w", driver, err)
	}
	if postgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// A single connection keeps SQLite writers from tripping over each other.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open place store: verify %s connection: %w", driver, err)
	}

	s := &PlaceStore{DB: db, postgres: postgres}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PlaceStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS places (
		name TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		saved_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("init schema: create places table: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *PlaceStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save inserts or replaces a place.
func (s *PlaceStore) Save(ctx context.Context, p Place) error {
	if s.DB == nil {
		return errors.New("place store: db is nil")
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return errors.New("save place: empty name")
	}
	if !p.Point.Valid() {
		return fmt.Errorf("save place %q: %w", name, nav.ErrInvalidFix)
	}

	query := s.rebind(`
	INSERT INTO places (name, lat, lon, saved_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (name) DO UPDATE SET
		lat = excluded.lat,
		lon = excluded.lon,
		saved_at = excluded.saved_at;
	`)
	if _, err := s.DB.ExecContext(ctx, query, name, p.Point.Latitude, p.Point.Longitude, time.Now().UTC()); err != nil {
		return fmt.Errorf("save place %q: %w", name, err)
	}
	return nil
}

// Delete removes a place by name; removing an unknown name is not an error.
func (s *PlaceStore) Delete(ctx context.Context, name string) error {
	if s.DB == nil {
		return errors.New("place store: db is nil")
	}
	if _, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM places WHERE name = ?;`), strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("delete place %q: %w", name, err)
	}
	return nil
}

// Search matches saved names case-insensitively by substring, most
// recently saved first.
func (s *PlaceStore) Search(ctx context.Context, query string) ([]Place, error) {
	if s.DB == nil {
		return nil, errors.New("place store: db is nil")
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if len(q) < minQueryLength {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, s.rebind(`
	SELECT name, lat, lon
	FROM places
	WHERE LOWER(name) LIKE ?
	ORDER BY saved_at DESC, name
	LIMIT ?;
	`), "%"+q+"%", maxResults)
	if err != nil {
		return nil, fmt.Errorf("search places: query places table: %w", err)
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.Name, &p.Point.Latitude, &p.Point.Longitude); err != nil {
			return nil, fmt.Errorf("search places: scan rows: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search places: row iteration: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *PlaceStore) Close() error {
	return s.DB.Close()
}
