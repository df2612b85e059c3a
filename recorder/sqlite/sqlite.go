// Package sqlite records event buffer sessions in SQLite.
//
// A session is one run of a reader against one map. Each sample is
// stored with its raw bytes and, when the buffer decoded it, the
// formatted record. Lost-sample reports are stored alongside.
//
// The database is opened in WAL mode with foreign keys enforced;
// deleting a session removes its samples and reports. All queries use
// statements prepared at open time.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/frobware/go-bpfobject/events"
)

//go:embed schema.sql
var schemaSQL string

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo summarises a recorded session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Map       string    `json:"map"`
	Struct    string    `json:"struct,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Samples   int64     `json:"samples"`
	Lost      uint64    `json:"lost"`
}

// StoredSample is a sample as read back from the database.
type StoredSample struct {
	Seq        int64     `json:"seq"`
	CPU        int       `json:"cpu"`
	Raw        []byte    `json:"raw"`
	Decoded    string    `json:"decoded,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder stores sessions in a SQLite database.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	stmtInsertSession *sql.Stmt
	stmtInsertSample  *sql.Stmt
	stmtInsertLost    *sql.Stmt
	stmtListSessions  *sql.Stmt
	stmtGetSession    *sql.Stmt
	stmtListSamples   *sql.Stmt
	stmtDeleteSession *sql.Stmt
}

// New opens, creating if needed, the database at dbPath.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "recorder", "db", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, [][2]string{{"journal_mode", "WAL"}, {"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	r, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("opened database", "path", dbPath)
	return r, nil
}

// NewInMemory opens a private in-memory database.
func NewInMemory(ctx context.Context, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "recorder", "db", ":memory:")

	db, err := sql.Open(driverName, dsn(":memory:", [][2]string{{"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	r, err := open(ctx, db, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened in-memory database")
	return r, nil
}

func open(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Recorder, error) {
	r := &Recorder{db: db, logger: logger, now: time.Now}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := r.prepareStatements(ctx); err != nil {
		r.closeStatements()
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return r, nil
}

func (r *Recorder) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (r *Recorder) prepareStatements(ctx context.Context) error {
	var err error

	const sqlInsertSession = `
		INSERT INTO sessions (id, map_name, struct_name, started_at)
		VALUES (?, ?, ?, ?)`
	if r.stmtInsertSession, err = r.db.PrepareContext(ctx, sqlInsertSession); err != nil {
		return fmt.Errorf("prepare InsertSession: %w", err)
	}

	const sqlInsertSample = `
		INSERT INTO samples (session_id, cpu, raw, decoded, recorded_at)
		VALUES (?, ?, ?, ?, ?)`
	if r.stmtInsertSample, err = r.db.PrepareContext(ctx, sqlInsertSample); err != nil {
		return fmt.Errorf("prepare InsertSample: %w", err)
	}

	const sqlInsertLost = `
		INSERT INTO lost_reports (session_id, cpu, count, recorded_at)
		VALUES (?, ?, ?, ?)`
	if r.stmtInsertLost, err = r.db.PrepareContext(ctx, sqlInsertLost); err != nil {
		return fmt.Errorf("prepare InsertLost: %w", err)
	}

	const sqlListSessions = `
		SELECT s.id, s.map_name, s.struct_name, s.started_at,
		       (SELECT COUNT(*) FROM samples WHERE session_id = s.id),
		       (SELECT COALESCE(SUM(count), 0) FROM lost_reports WHERE session_id = s.id)
		FROM sessions s
		ORDER BY s.started_at, s.id`
	if r.stmtListSessions, err = r.db.PrepareContext(ctx, sqlListSessions); err != nil {
		return fmt.Errorf("prepare ListSessions: %w", err)
	}

	const sqlGetSession = "SELECT 1 FROM sessions WHERE id = ?"
	if r.stmtGetSession, err = r.db.PrepareContext(ctx, sqlGetSession); err != nil {
		return fmt.Errorf("prepare GetSession: %w", err)
	}

	const sqlListSamples = `
		SELECT seq, cpu, raw, decoded, recorded_at
		FROM samples
		WHERE session_id = ?
		ORDER BY seq`
	if r.stmtListSamples, err = r.db.PrepareContext(ctx, sqlListSamples); err != nil {
		return fmt.Errorf("prepare ListSamples: %w", err)
	}

	const sqlDeleteSession = "DELETE FROM sessions WHERE id = ?"
	if r.stmtDeleteSession, err = r.db.PrepareContext(ctx, sqlDeleteSession); err != nil {
		return fmt.Errorf("prepare DeleteSession: %w", err)
	}

	return nil
}

// Close closes all prepared statements and the database connection.
func (r *Recorder) Close() error {
	r.closeStatements()
	return r.db.Close()
}

// closeStatements closes all prepared statements. Each close error
// is silently ignored because the database is about to be closed.
func (r *Recorder) closeStatements() {
	stmts := []*sql.Stmt{
		r.stmtInsertSession,
		r.stmtInsertSample,
		r.stmtInsertLost,
		r.stmtListSessions,
		r.stmtGetSession,
		r.stmtListSamples,
		r.stmtDeleteSession,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// Session appends samples to one recorded session.
type Session struct {
	r  *Recorder
	id string
}

// ID is the session's UUID.
func (s *Session) ID() string { return s.id }

// StartSession creates a session for mapName. structName is the decode
// struct, or empty for raw samples.
func (r *Recorder) StartSession(ctx context.Context, mapName, structName string) (*Session, error) {
	id := uuid.NewString()
	if _, err := r.stmtInsertSession.ExecContext(ctx, id, mapName, structName, formatTime(r.now())); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	r.logger.Debug("started session", "session", id, "map", mapName, "struct", structName)
	return &Session{r: r, id: id}, nil
}

// Record stores one sample.
func (s *Session) Record(ctx context.Context, sample events.Sample) error {
	var decoded string
	if sample.Record != nil {
		decoded = sample.Record.String()
	}
	raw := sample.Raw
	if raw == nil {
		raw = []byte{}
	}
	if _, err := s.r.stmtInsertSample.ExecContext(ctx, s.id, sample.CPU, raw, decoded, formatTime(s.r.now())); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// RecordLost stores a lost-sample report. SQLite integers are signed,
// so counts above math.MaxInt64 are stored as math.MaxInt64.
func (s *Session) RecordLost(ctx context.Context, cpu int, count uint64) error {
	stored := int64(math.MaxInt64)
	if count <= math.MaxInt64 {
		stored = int64(count)
	} else {
		s.r.logger.Warn("clamping lost count", "session", s.id, "cpu", cpu, "count", count)
	}
	if _, err := s.r.stmtInsertLost.ExecContext(ctx, s.id, cpu, stored, formatTime(s.r.now())); err != nil {
		return fmt.Errorf("insert lost report: %w", err)
	}
	return nil
}

// Sessions lists every session, oldest first.
func (r *Recorder) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := r.stmtListSessions.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []SessionInfo
	for rows.Next() {
		var (
			info    SessionInfo
			started string
			lost    int64
		)
		if err := rows.Scan(&info.ID, &info.Map, &info.Struct, &started, &info.Samples, &lost); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("session %s: %w", info.ID, err)
		}
		info.Lost = uint64(lost)
		result = append(result, info)
	}
	return result, rows.Err()
}

// Samples returns the samples of session id in arrival order.
func (r *Recorder) Samples(ctx context.Context, id string) ([]StoredSample, error) {
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := r.stmtListSamples.QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var result []StoredSample
	for rows.Next() {
		var (
			s        StoredSample
			recorded string
		)
		if err := rows.Scan(&s.Seq, &s.CPU, &s.Raw, &s.Decoded, &recorded); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if s.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("sample %d: %w", s.Seq, err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// DeleteSession removes a session with its samples and reports.
func (r *Recorder) DeleteSession(ctx context.Context, id string) error {
	res, err := r.stmtDeleteSession.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.logger.Debug("deleted session", "session", id)
	return nil
}

func (r *Recorder) exists(ctx context.Context, id string) error {
	var one int
	err := r.stmtGetSession.QueryRowContext(ctx, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
