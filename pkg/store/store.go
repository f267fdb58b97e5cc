// Package store persists ingested CS2 log lines and their classification in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

// ErrServerNotFound is returned when a server id is unknown or inactive.
var ErrServerNotFound = errors.New("server not found")

// Fixed-width RFC 3339 so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// nowUTC is replaced in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }

// Store is a SQLite-backed log store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration and maintenance messages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes access.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db, migrationsFS, s.logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersions returns the applied migration versions in order.
func (s *Store) SchemaVersions(ctx context.Context) ([]string, error) {
	return appliedVersions(ctx, s.db)
}

// RollbackMigration reverts the latest migration and returns its version.
func (s *Store) RollbackMigration(ctx context.Context) (string, error) {
	return rollback(ctx, s.db, migrationsFS)
}

// ServerSpec is a game server declared in configuration.
type ServerSpec struct {
	ID     string
	Name   string
	APIKey string
}

// Server is a stored game server.
type Server struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	APIKey    string     `json:"-"`
	Active    bool       `json:"-"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SyncServers upserts the declared servers and deactivates every other one.
// Stored logs of deactivated servers are kept.
func (s *Store) SyncServers(ctx context.Context, specs []ServerSpec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE servers SET is_active = 0"); err != nil {
		return fmt.Errorf("deactivating servers: %w", err)
	}

	now := formatTime(nowUTC())
	for _, spec := range specs {
		name := spec.Name
		if name == "" {
			name = spec.ID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO servers (id, name, api_key, is_active, created_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				api_key = excluded.api_key,
				is_active = 1
		`, spec.ID, name, spec.APIKey, now)
		if err != nil {
			return fmt.Errorf("upserting server %s: %w", spec.ID, err)
		}
	}

	return tx.Commit()
}

// FindServer returns the active server with the given id, or ErrServerNotFound.
func (s *Store) FindServer(ctx context.Context, id string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, api_key, is_active, last_seen, created_at
		FROM servers WHERE id = ? AND is_active = 1
	`, id)

	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("finding server %s: %w", id, err)
	}
	return srv, nil
}

// ListServers returns the active servers ordered by name.
func (s *Store) ListServers(ctx context.Context) ([]Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, api_key, is_active, last_seen, created_at
		FROM servers WHERE is_active = 1
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing servers: %w", err)
	}
	defer rows.Close()

	servers := []Server{}
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning server: %w", err)
		}
		servers = append(servers, *srv)
	}
	return servers, rows.Err()
}

// TouchServer records that the server was seen at the given time.
func (s *Store) TouchServer(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE servers SET last_seen = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return fmt.Errorf("updating last_seen for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrServerNotFound, id)
	}
	return nil
}

// IngestBatch stores every line of batch as a raw log plus its parsed or
// failed record, all in one transaction.
func (s *Store) IngestBatch(ctx context.Context, serverID string, receivedAt time.Time, batch *parser.BatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	at := formatTime(receivedAt)
	for _, r := range batch.Results {
		rawID := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO raw_logs (id, server_id, content, received_at) VALUES (?, ?, ?, ?)",
			rawID, serverID, r.Content, at); err != nil {
			return fmt.Errorf("inserting raw log line %d: %w", r.LineNumber, err)
		}

		if !r.Parsed() {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO failed_parses (id, raw_log_id, error_message, created_at) VALUES (?, ?, ?, ?)",
				uuid.NewString(), rawID, r.Error, at); err != nil {
				return fmt.Errorf("inserting failed parse line %d: %w", r.LineNumber, err)
			}
			continue
		}

		data, err := parser.EventJSON(r.Event)
		if err != nil {
			return fmt.Errorf("encoding event line %d: %w", r.LineNumber, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO parsed_logs (id, raw_log_id, server_id, event_type, event_data, game_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), rawID, serverID, string(r.Event.Type()), string(data), r.GameTime, at); err != nil {
			return fmt.Errorf("inserting parsed log line %d: %w", r.LineNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	s.logger.Debug("stored batch",
		zap.String("server_id", serverID),
		zap.Int("lines", batch.TotalLines))
	return nil
}

// LogFilter selects stored log entries. Zero values mean no filter.
type LogFilter struct {
	ServerID  string
	EventType string
	Limit     int
	Offset    int
}

// LogEntry is one stored line as returned by the List methods.
type LogEntry struct {
	ID        string          `json:"id"`
	ServerID  string          `json:"server_id"`
	Content   string          `json:"content"`
	EventType string          `json:"event_type,omitempty"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	GameTime  string          `json:"game_time,omitempty"`
	Error     string          `json:"error_message,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListRawLogs returns raw lines newest first, with the event type of lines that parsed.
func (s *Store) ListRawLogs(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var w where
	w.add("r.server_id = ?", f.ServerID)
	w.add("p.event_type = ?", f.EventType)

	query := `
		SELECT r.id, r.server_id, r.content, COALESCE(p.event_type, ''), r.received_at
		FROM raw_logs r
		LEFT JOIN parsed_logs p ON p.raw_log_id = r.id
	` + w.String() + `
		ORDER BY r.received_at DESC, r.rowid DESC
		LIMIT ? OFFSET ?`

	return s.listLogs(ctx, query, w.args, f, func(rows *sql.Rows, e *LogEntry, createdAt *string) error {
		return rows.Scan(&e.ID, &e.ServerID, &e.Content, &e.EventType, createdAt)
	})
}

// ListParsedLogs returns parsed lines newest first.
func (s *Store) ListParsedLogs(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var w where
	w.add("p.server_id = ?", f.ServerID)
	w.add("p.event_type = ?", f.EventType)

	query := `
		SELECT p.id, p.server_id, r.content, p.event_type, p.event_data, p.game_time, p.created_at
		FROM parsed_logs p
		JOIN raw_logs r ON r.id = p.raw_log_id
	` + w.String() + `
		ORDER BY p.created_at DESC, r.rowid DESC
		LIMIT ? OFFSET ?`

	return s.listLogs(ctx, query, w.args, f, func(rows *sql.Rows, e *LogEntry, createdAt *string) error {
		var data string
		if err := rows.Scan(&e.ID, &e.ServerID, &e.Content, &e.EventType, &data, &e.GameTime, createdAt); err != nil {
			return err
		}
		e.EventData = json.RawMessage(data)
		return nil
	})
}

// ListFailedLogs returns lines that failed classification, newest first.
// The event type filter does not apply.
func (s *Store) ListFailedLogs(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var w where
	w.add("r.server_id = ?", f.ServerID)

	query := `
		SELECT fp.id, r.server_id, r.content, fp.error_message, fp.created_at
		FROM failed_parses fp
		JOIN raw_logs r ON r.id = fp.raw_log_id
	` + w.String() + `
		ORDER BY fp.created_at DESC, r.rowid DESC
		LIMIT ? OFFSET ?`

	return s.listLogs(ctx, query, w.args, f, func(rows *sql.Rows, e *LogEntry, createdAt *string) error {
		return rows.Scan(&e.ID, &e.ServerID, &e.Content, &e.Error, createdAt)
	})
}

// EventTypeCount is the number of stored parsed lines of one event type.
type EventTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// EventTypeCounts returns per-type counts ordered by count descending.
// An empty serverID counts across all servers.
func (s *Store) EventTypeCounts(ctx context.Context, serverID string) ([]EventTypeCount, error) {
	var w where
	w.add("server_id = ?", serverID)

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, COUNT(*) AS n
		FROM parsed_logs
	`+w.String()+`
		GROUP BY event_type
		ORDER BY n DESC, event_type
	`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("counting event types: %w", err)
	}
	defer rows.Close()

	counts := []EventTypeCount{}
	for rows.Next() {
		var c EventTypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning event type count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *Store) listLogs(ctx context.Context, query string, args []any, f LogFilter,
	scan func(*sql.Rows, *LogEntry, *string) error) ([]LogEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("listing logs: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		var createdAt string
		if err := scan(rows, &e, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// where accumulates optional equality conditions.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond, value string) {
	if value == "" {
		return
	}
	w.conds = append(w.conds, cond)
	w.args = append(w.args, value)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*Server, error) {
	var srv Server
	var lastSeen sql.NullString
	var createdAt string
	if err := row.Scan(&srv.ID, &srv.Name, &srv.APIKey, &srv.Active, &lastSeen, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if srv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		t, err := parseTime(lastSeen.String)
		if err != nil {
			return nil, err
		}
		srv.LastSeen = &t
	}
	return &srv, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
