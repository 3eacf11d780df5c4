package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/teemow/inboxtriage/internal/model"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, enables
// WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	if err := s.db.Get(&v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// runMigrations applies outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if currentVersion, err = s.SchemaVersion(); err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

type runRow struct {
	ID            string `db:"id"`
	StartedAt     int64  `db:"started_at"`
	FinishedAt    int64  `db:"finished_at"`
	Total         int    `db:"total"`
	DraftsSaved   int    `db:"drafts_saved"`
	EventsCreated int    `db:"events_created"`
	Conflicts     int    `db:"conflicts"`
}

func (r runRow) summary() model.RunSummary {
	return model.RunSummary{
		RunID:         r.ID,
		StartedAt:     time.UnixMilli(r.StartedAt).UTC(),
		FinishedAt:    time.UnixMilli(r.FinishedAt).UTC(),
		Total:         r.Total,
		DraftsSaved:   r.DraftsSaved,
		EventsCreated: r.EventsCreated,
		Conflicts:     r.Conflicts,
	}
}

type resultRow struct {
	Index            int    `db:"idx"`
	EmailID          string `db:"email_id"`
	ThreadID         string `db:"thread_id"`
	Sender           string `db:"sender"`
	SenderEmail      string `db:"sender_email"`
	Subject          string `db:"subject"`
	Summary          string `db:"summary"`
	Urgency          string `db:"urgency"`
	ReplyNeeded      bool   `db:"reply_needed"`
	ReplyReason      string `db:"reply_reason"`
	DraftID          string `db:"draft_id"`
	CalendarAction   string `db:"calendar_action"`
	CalendarEventID  string `db:"calendar_event_id"`
	ConflictDetected bool   `db:"conflict_detected"`
	KeyPoints        string `db:"key_points"`
	CalendarDetails  string `db:"calendar_details"`
	Errors           string `db:"errors"`
}

func (r resultRow) result() (model.ProcessedResult, error) {
	res := model.ProcessedResult{
		Index:            r.Index,
		EmailID:          r.EmailID,
		ThreadID:         r.ThreadID,
		Sender:           r.Sender,
		SenderEmail:      r.SenderEmail,
		Subject:          r.Subject,
		Summary:          r.Summary,
		Urgency:          model.Urgency(r.Urgency),
		ReplyNeeded:      r.ReplyNeeded,
		ReplyReason:      r.ReplyReason,
		DraftID:          r.DraftID,
		CalendarAction:   model.CalendarAction(r.CalendarAction),
		CalendarEventID:  r.CalendarEventID,
		ConflictDetected: r.ConflictDetected,
	}
	if err := json.Unmarshal([]byte(r.KeyPoints), &res.KeyPoints); err != nil {
		return res, fmt.Errorf("decoding key_points for result %d: %w", r.Index, err)
	}
	if err := json.Unmarshal([]byte(r.CalendarDetails), &res.CalendarDetails); err != nil {
		return res, fmt.Errorf("decoding calendar_details for result %d: %w", r.Index, err)
	}
	if err := json.Unmarshal([]byte(r.Errors), &res.Errors); err != nil {
		return res, fmt.Errorf("decoding errors for result %d: %w", r.Index, err)
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveRun inserts a run and all of its results in one transaction. A run
// ID that already exists is rejected.
func (s *SQLiteStore) SaveRun(ctx context.Context, d *model.Digest) error {
	if d == nil {
		return errors.New("nil digest")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, total, drafts_saved, events_created, conflicts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.StartedAt.UnixMilli(), d.FinishedAt.UnixMilli(),
		d.Total, d.DraftsSaved, d.EventsCreated, d.Conflicts,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", d.RunID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO results (
			run_id, idx, email_id, thread_id,
			sender, sender_email, subject, summary,
			urgency, reply_needed, reply_reason, draft_id,
			calendar_action, calendar_event_id, conflict_detected,
			key_points, calendar_details, errors
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)`)
	if err != nil {
		return fmt.Errorf("preparing result statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range d.Results {
		keyPoints := r.KeyPoints
		if keyPoints == nil {
			keyPoints = []string{}
		}
		errs := r.Errors
		if errs == nil {
			errs = []string{}
		}
		kp, err := jsonText(keyPoints)
		if err != nil {
			return fmt.Errorf("encoding key_points for result %d: %w", r.Index, err)
		}
		details, err := jsonText(r.CalendarDetails)
		if err != nil {
			return fmt.Errorf("encoding calendar_details for result %d: %w", r.Index, err)
		}
		errText, err := jsonText(errs)
		if err != nil {
			return fmt.Errorf("encoding errors for result %d: %w", r.Index, err)
		}

		_, err = stmt.ExecContext(ctx,
			d.RunID, r.Index, r.EmailID, r.ThreadID,
			r.Sender, r.SenderEmail, r.Subject, r.Summary,
			string(r.Urgency), r.ReplyNeeded, r.ReplyReason, r.DraftID,
			string(r.CalendarAction), r.CalendarEventID, r.ConflictDetected,
			kp, details, errText,
		)
		if err != nil {
			return fmt.Errorf("inserting result %d of run %s: %w", r.Index, d.RunID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, started_at, finished_at, total, drafts_saved, events_created, conflicts
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]model.RunSummary, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.summary())
	}
	return runs, nil
}

// GetRun returns a stored run with its results ordered by index.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Digest, error) {
	var run runRow
	err := s.db.GetContext(ctx, &run, `
		SELECT id, started_at, finished_at, total, drafts_saved, events_created, conflicts
		FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	var rows []resultRow
	err = s.db.SelectContext(ctx, &rows, `
		SELECT idx, email_id, thread_id, sender, sender_email, subject, summary,
			urgency, reply_needed, reply_reason, draft_id,
			calendar_action, calendar_event_id, conflict_detected,
			key_points, calendar_details, errors
		FROM results
		WHERE run_id = ?
		ORDER BY idx ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("getting results for run %s: %w", id, err)
	}

	summary := run.summary()
	digest := &model.Digest{
		RunID:         summary.RunID,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
		Total:         summary.Total,
		DraftsSaved:   summary.DraftsSaved,
		EventsCreated: summary.EventsCreated,
		Conflicts:     summary.Conflicts,
		Results:       make([]model.ProcessedResult, 0, len(rows)),
	}
	for _, row := range rows {
		res, err := row.result()
		if err != nil {
			return nil, err
		}
		digest.Results = append(digest.Results, res)
	}
	return digest, nil
}
