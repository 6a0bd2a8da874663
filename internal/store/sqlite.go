package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kordite/switchboard/internal/classify"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// SQLite is the default store backend, keeping patterns, history, and
// transitions in a single database at baseDir/switchboard.db.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite initializes the database at baseDir/switchboard.db.
// The baseDir parameter allows tests to use t.TempDir() instead of
// ~/.switchboard. maxOpen/maxIdle tune the connection pool; zero values
// leave the driver defaults in place.
func OpenSQLite(baseDir string, maxOpen, maxIdle int) (*SQLite, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "switchboard.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}

	return &SQLite{db: db}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := getUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS patterns (
		  signature      TEXT PRIMARY KEY,
		  classification TEXT NOT NULL,
		  primary_domain TEXT,
		  last_used      INTEGER NOT NULL,
		  hit_count      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS history (
		  seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		  signature      TEXT NOT NULL,
		  query          TEXT NOT NULL,
		  classification TEXT NOT NULL,
		  primary_domain TEXT,
		  timestamp      INTEGER NOT NULL,
		  prev_signature TEXT
		);

		CREATE TABLE IF NOT EXISTS transitions (
		  prev  TEXT NOT NULL,
		  curr  TEXT NOT NULL,
		  count INTEGER NOT NULL DEFAULT 0,
		  PRIMARY KEY (prev, curr)
		);

		CREATE INDEX IF NOT EXISTS idx_patterns_hit_count
		ON patterns(hit_count DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

func setUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

func (s *SQLite) LookupPattern(sig string) (*PatternEntry, error) {
	var (
		blob     string
		primary  sql.NullString
		lastUsed int64
		hits     int
	)
	err := s.db.QueryRow(
		`SELECT classification, primary_domain, last_used, hit_count FROM patterns WHERE signature = ?`, sig,
	).Scan(&blob, &primary, &lastUsed, &hits)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup pattern: %w", err)
	}
	var res classify.Result
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		// Undecodable row reads as a miss rather than an error.
		return nil, nil
	}
	return &PatternEntry{
		Classification: res,
		PrimaryDomain:  primary.String,
		LastUsed:       time.UnixMilli(lastUsed).UTC(),
		HitCount:       hits,
	}, nil
}

func (s *SQLite) StorePattern(sig string, e PatternEntry) error {
	blob, err := json.Marshal(e.Classification)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO patterns (signature, classification, primary_domain, last_used, hit_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(signature) DO UPDATE SET
		  classification = excluded.classification,
		  primary_domain = excluded.primary_domain,
		  last_used      = excluded.last_used`,
		sig, string(blob), e.PrimaryDomain, e.LastUsed.UnixMilli(), e.HitCount)
	if err != nil {
		return fmt.Errorf("store pattern: %w", err)
	}
	return nil
}

func (s *SQLite) TouchPattern(sig string) error {
	_, err := s.db.Exec(
		`UPDATE patterns SET hit_count = hit_count + 1, last_used = ? WHERE signature = ?`,
		time.Now().UTC().UnixMilli(), sig)
	if err != nil {
		return fmt.Errorf("touch pattern: %w", err)
	}
	return nil
}

func (s *SQLite) AppendHistory(e HistoryEntry) error {
	blob, err := json.Marshal(e.Classification)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}
	var prev any
	if e.PrevSignature != "" {
		prev = e.PrevSignature
	}
	var primary any
	if e.PrimaryDomain != "" {
		primary = e.PrimaryDomain
	}
	_, err = s.db.Exec(`
		INSERT INTO history (signature, query, classification, primary_domain, timestamp, prev_signature)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Signature, e.Query, string(blob), primary, e.Timestamp.UnixMilli(), prev)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *SQLite) RecentHistory(limit int) ([]HistoryEntry, error) {
	query := `SELECT signature, query, classification, primary_domain, timestamp, prev_signature
		FROM history ORDER BY seq DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			blob    string
			ts      int64
			primary sql.NullString
			prev    sql.NullString
		)
		if err := rows.Scan(&e.Signature, &e.Query, &blob, &primary, &ts, &prev); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(blob), &e.Classification); err != nil {
			continue
		}
		e.PrimaryDomain = primary.String
		e.Timestamp = time.UnixMilli(ts).UTC()
		e.PrevSignature = prev.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) BumpTransition(prev, curr string) error {
	_, err := s.db.Exec(`
		INSERT INTO transitions (prev, curr, count) VALUES (?, ?, 1)
		ON CONFLICT(prev, curr) DO UPDATE SET count = count + 1`,
		prev, curr)
	if err != nil {
		return fmt.Errorf("bump transition: %w", err)
	}
	return nil
}

func (s *SQLite) Transitions() ([]Transition, error) {
	rows, err := s.db.Query(
		`SELECT prev, curr, count FROM transitions ORDER BY count DESC, prev ASC, curr ASC`)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.Prev, &t.Curr, &t.Count); err != nil {
			return nil, fmt.Errorf("scan transition row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM patterns`,
	).Scan(&st.PatternCount, &st.TotalHits)
	if err != nil {
		return Stats{}, fmt.Errorf("pattern stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&st.HistoryCount); err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transitions`).Scan(&st.TransitionPairs); err != nil {
		return Stats{}, fmt.Errorf("transition stats: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT signature, hit_count FROM patterns
		 ORDER BY hit_count DESC, signature ASC LIMIT ?`, maxHotSignatures)
	if err != nil {
		return Stats{}, fmt.Errorf("hot signatures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h HotSignature
		if err := rows.Scan(&h.Signature, &h.HitCount); err != nil {
			return Stats{}, fmt.Errorf("scan hot signature: %w", err)
		}
		st.HottestSignatures = append(st.HottestSignatures, h)
	}
	return st, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
