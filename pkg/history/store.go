package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Decision is one recorded gate evaluation.
type Decision struct {
	ID             string    `db:"id"`
	Base           string    `db:"base"`
	Head           string    `db:"head"`
	FilesChanged   int       `db:"files_changed"`
	CodeChanged    bool      `db:"code_changed"`
	MatchedPath    string    `db:"matched_path"`
	MatchedPattern string    `db:"matched_pattern"`
	Action         string    `db:"action"`
	CreatedAt      time.Time `db:"created_at"`
}

// Actions recorded for a decision.
const (
	ActionEvaluated       = "evaluated"
	ActionSkippedChecks   = "skipped-checks"
	ActionDispatchedTests = "dispatched-tests"
)

// Store persists gate decisions.
type Store struct {
	db *sqlx.DB
}

// NewStore opens the history database at dbPath (the default path when
// empty) and ensures the schema is current.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			base TEXT NOT NULL,
			head TEXT NOT NULL,
			files_changed INTEGER NOT NULL,
			code_changed BOOLEAN NOT NULL,
			matched_path TEXT NOT NULL DEFAULT '',
			matched_pattern TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to create decisions table")
	}

	_, err = s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at DESC)")
	return errors.Wrap(err, "failed to create decisions index")
}

// Record inserts a decision row. A missing ID or CreatedAt is filled in.
func (s *Store) Record(ctx context.Context, d *Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO decisions (id, base, head, files_changed, code_changed,
			matched_path, matched_pattern, action, created_at)
		VALUES (:id, :base, :head, :files_changed, :code_changed,
			:matched_path, :matched_pattern, :action, :created_at)
	`, d)
	return errors.Wrap(err, "failed to record decision")
}

// List returns the most recent decisions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}

	var decisions []Decision
	err := s.db.SelectContext(ctx, &decisions,
		"SELECT * FROM decisions ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list decisions")
	}
	return decisions, nil
}
