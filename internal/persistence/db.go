// Package persistence stores simulation sessions in SQL (SQLite by default, Postgres via
// pgx) and exports compressed snapshots.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/social"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Environment variables read by OpenFromEnv.
const (
	EnvDialect     = "STATESIM_DB_DIALECT"
	EnvPath        = "STATESIM_DB_PATH"
	EnvPostgresDSN = "STATESIM_POSTGRES_DSN"
)

// DB wraps a SQL connection for session persistence.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return OpenDialect(DialectSQLite, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

// OpenDialect opens a database of the given dialect and applies the schema.
func OpenDialect(d Dialect, dsn string) (*DB, error) {
	var driver string
	switch d {
	case DialectSQLite:
		driver = "sqlite"
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d, err)
	}
	if d == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", d, err)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("database opened", "dialect", d)
	return db, nil
}

// OpenFromEnv picks the backend from STATESIM_DB_DIALECT (default sqlite). SQLite uses
// STATESIM_DB_PATH, falling back to fallbackPath; Postgres requires STATESIM_POSTGRES_DSN.
func OpenFromEnv(fallbackPath string) (*DB, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(EnvDialect)))
	if raw == "" {
		raw = string(DialectSQLite)
	}
	switch Dialect(raw) {
	case DialectSQLite:
		path := strings.TrimSpace(os.Getenv(EnvPath))
		if path == "" {
			path = fallbackPath
		}
		if path == "" {
			return nil, fmt.Errorf("%s=sqlite requires %s or a database path", EnvDialect, EnvPath)
		}
		return Open(path)
	case DialectPostgres:
		dsn := strings.TrimSpace(os.Getenv(EnvPostgresDSN))
		if dsn == "" {
			return nil, fmt.Errorf("%s=postgres requires %s", EnvDialect, EnvPostgresDSN)
		}
		return OpenDialect(DialectPostgres, dsn)
	default:
		return nil, fmt.Errorf("unsupported %s %q", EnvDialect, raw)
	}
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect reports the backend in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			name TEXT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provinces (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			population BIGINT NOT NULL,
			ideology TEXT NOT NULL,
			state TEXT NOT NULL,
			perception DOUBLE PRECISION NOT NULL,
			loyalty DOUBLE PRECISION NOT NULL,
			discontent DOUBLE PRECISION NOT NULL,
			rebellion DOUBLE PRECISION NOT NULL,
			economic DOUBLE PRECISION NOT NULL,
			neighbors_json TEXT NOT NULL,
			active_json TEXT NOT NULL,
			history_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fired_events (
			seq INTEGER PRIMARY KEY,
			event_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cooldowns (
			event_id TEXT PRIMARY KEY,
			expires_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			seq INTEGER PRIMARY KEY,
			event_id TEXT NOT NULL,
			choice_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			result_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS unlocked (
			event_id TEXT PRIMARY KEY
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_event ON decisions(event_id)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta upserts a session metadata value.
func (db *DB) SaveMeta(key, value string) error {
	return saveMeta(db.conn, key, value)
}

func saveMeta(ex sqlx.Execer, key, value string) error {
	_, err := ex.Exec(
		sqlx.Rebind(bindFor(ex), `INSERT INTO session_meta (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// GetMeta reads a session metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, db.conn.Rebind("SELECT value FROM session_meta WHERE key = ?"), key)
	return value, err
}

// HasState reports whether a session has been saved.
func (db *DB) HasState() (bool, error) {
	_, err := db.GetMeta("session_id")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SaveState writes the whole session (full replace) in one transaction.
func (db *DB) SaveState(st engine.State) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"metrics", "provinces", "fired_events", "cooldowns", "decisions", "unlocked"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for name, v := range st.Metrics {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO metrics (name, value) VALUES (?, ?)"), name, v); err != nil {
			return fmt.Errorf("insert metric %s: %w", name, err)
		}
	}

	if err := saveProvinces(tx, st.Provinces); err != nil {
		return err
	}

	for i, id := range st.Fired {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO fired_events (seq, event_id) VALUES (?, ?)"), i, id); err != nil {
			return fmt.Errorf("insert fired event %s: %w", id, err)
		}
	}
	for id, until := range st.Cooldowns {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO cooldowns (event_id, expires_at) VALUES (?, ?)"),
			id, until.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert cooldown %s: %w", id, err)
		}
	}
	for i, d := range st.Decisions {
		body, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode decision %d: %w", i, err)
		}
		if _, err := tx.Exec(tx.Rebind(`INSERT INTO decisions (seq, event_id, choice_id, day, result_json)
			VALUES (?, ?, ?, ?, ?)`), i, d.EventID, d.ChoiceID, d.Day, string(body)); err != nil {
			return fmt.Errorf("insert decision %d: %w", i, err)
		}
	}
	for _, id := range st.Unlocked {
		if _, err := tx.Exec(tx.Rebind("INSERT INTO unlocked (event_id) VALUES (?)"), id); err != nil {
			return fmt.Errorf("insert unlock %s: %w", id, err)
		}
	}

	meta := map[string]string{
		"session_id":   st.SessionID,
		"character":    st.Character,
		"day":          strconv.Itoa(st.Day),
		"crisis_level": strconv.Itoa(st.CrisisLevel),
		"pending":      st.Pending,
		"saved_at":     time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if err := saveMeta(tx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("session saved", "session", st.SessionID, "day", st.Day, "provinces", len(st.Provinces))
	return nil
}

type provinceRow struct {
	ID         string  `db:"id"`
	Position   int     `db:"position"`
	Name       string  `db:"name"`
	Population int64   `db:"population"`
	Ideology   string  `db:"ideology"`
	State      string  `db:"state"`
	Perception float64 `db:"perception"`
	Loyalty    float64 `db:"loyalty"`
	Discontent float64 `db:"discontent"`
	Rebellion  float64 `db:"rebellion"`
	Economic   float64 `db:"economic"`
	Neighbors  string  `db:"neighbors_json"`
	Active     string  `db:"active_json"`
	History    string  `db:"history_json"`
}

func saveProvinces(tx *sqlx.Tx, provs []*social.Province) error {
	q := tx.Rebind(`INSERT INTO provinces
		(id, position, name, population, ideology, state, perception, loyalty, discontent,
		 rebellion, economic, neighbors_json, active_json, history_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	stmt, err := tx.Preparex(q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range provs {
		if p == nil {
			continue
		}
		neighborsJSON, _ := json.Marshal(p.Neighbors)
		activeJSON, _ := json.Marshal(p.ActiveEvents)
		historyJSON, _ := json.Marshal(p.SocialHistory)

		_, err := stmt.Exec(
			p.ID, i, p.Name, int64(p.Population), p.Ideology.String(), p.State.String(),
			p.Perception, p.Loyalty, p.Discontent, p.RebellionLevel, p.EconomicLevel,
			string(neighborsJSON), string(activeJSON), string(historyJSON),
		)
		if err != nil {
			return fmt.Errorf("insert province %s: %w", p.ID, err)
		}
	}
	return nil
}

// LoadState reads the saved session back.
func (db *DB) LoadState() (engine.State, error) {
	var st engine.State

	meta, err := db.meta()
	if err != nil {
		return st, err
	}
	if meta["session_id"] == "" {
		return st, fmt.Errorf("load state: %w", sql.ErrNoRows)
	}
	st.SessionID = meta["session_id"]
	st.Character = meta["character"]
	st.Pending = meta["pending"]
	st.Day, _ = strconv.Atoi(meta["day"])
	st.CrisisLevel, _ = strconv.Atoi(meta["crisis_level"])

	var metricRows []struct {
		Name  string  `db:"name"`
		Value float64 `db:"value"`
	}
	if err := db.conn.Select(&metricRows, "SELECT name, value FROM metrics"); err != nil {
		return st, fmt.Errorf("load metrics: %w", err)
	}
	st.Metrics = make(map[string]float64, len(metricRows))
	for _, r := range metricRows {
		st.Metrics[r.Name] = r.Value
	}

	if st.Provinces, err = db.loadProvinces(); err != nil {
		return st, err
	}

	if err := db.conn.Select(&st.Fired, "SELECT event_id FROM fired_events ORDER BY seq"); err != nil {
		return st, fmt.Errorf("load history: %w", err)
	}

	var cooldownRows []struct {
		EventID   string `db:"event_id"`
		ExpiresAt string `db:"expires_at"`
	}
	if err := db.conn.Select(&cooldownRows, "SELECT event_id, expires_at FROM cooldowns"); err != nil {
		return st, fmt.Errorf("load cooldowns: %w", err)
	}
	st.Cooldowns = make(map[string]time.Time, len(cooldownRows))
	for _, r := range cooldownRows {
		until, err := time.Parse(time.RFC3339Nano, r.ExpiresAt)
		if err != nil {
			return st, fmt.Errorf("cooldown %s: %w", r.EventID, err)
		}
		st.Cooldowns[r.EventID] = until
	}

	var bodies []string
	if err := db.conn.Select(&bodies, "SELECT result_json FROM decisions ORDER BY seq"); err != nil {
		return st, fmt.Errorf("load decisions: %w", err)
	}
	for i, b := range bodies {
		var d events.DecisionResult
		if err := json.Unmarshal([]byte(b), &d); err != nil {
			return st, fmt.Errorf("decode decision %d: %w", i, err)
		}
		st.Decisions = append(st.Decisions, d)
	}

	if err := db.conn.Select(&st.Unlocked, "SELECT event_id FROM unlocked ORDER BY event_id"); err != nil {
		return st, fmt.Errorf("load unlocks: %w", err)
	}
	return st, nil
}

func (db *DB) meta() (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.Select(&rows, "SELECT key, value FROM session_meta"); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (db *DB) loadProvinces() ([]*social.Province, error) {
	var rows []provinceRow
	if err := db.conn.Select(&rows, "SELECT * FROM provinces ORDER BY position"); err != nil {
		return nil, fmt.Errorf("load provinces: %w", err)
	}

	out := make([]*social.Province, 0, len(rows))
	for _, r := range rows {
		ideo, ok := social.ParseIdeology(r.Ideology)
		if !ok {
			return nil, fmt.Errorf("province %s: unknown ideology %q", r.ID, r.Ideology)
		}
		state, ok := social.ParseSocialState(r.State)
		if !ok {
			return nil, fmt.Errorf("province %s: unknown state %q", r.ID, r.State)
		}
		p := &social.Province{
			ID:             r.ID,
			Name:           r.Name,
			Population:     uint32(r.Population),
			Ideology:       ideo,
			State:          state,
			Perception:     r.Perception,
			Loyalty:        r.Loyalty,
			Discontent:     r.Discontent,
			RebellionLevel: r.Rebellion,
			EconomicLevel:  r.Economic,
		}
		if err := json.Unmarshal([]byte(r.Neighbors), &p.Neighbors); err != nil {
			return nil, fmt.Errorf("province %s neighbors: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.Active), &p.ActiveEvents); err != nil {
			return nil, fmt.Errorf("province %s active events: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.History), &p.SocialHistory); err != nil {
			return nil, fmt.Errorf("province %s history: %w", r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func bindFor(ex sqlx.Execer) int {
	switch v := ex.(type) {
	case *sqlx.DB:
		return sqlx.BindType(v.DriverName())
	case *sqlx.Tx:
		return sqlx.BindType(v.DriverName())
	default:
		return sqlx.QUESTION
	}
}
