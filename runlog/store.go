// Package runlog persists fit provenance: which dataset was fitted, with
// what coefficients, and how well. It is the lab-notebook half of the
// toolkit: every recorded run can be listed, looked up, and exported long
// after the dataset file moved on.
//
// The store is a single SQLite file in WAL mode; entries are identified by
// UUID and datasets by their content fingerprint.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/quantfold/countfit/dataset"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/poisson"
)

// Entry is one recorded analysis run.
type Entry struct {
	// ID is a UUID assigned by Record when empty.
	ID string `yaml:"id"`
	// CreatedAt is the record time in UTC, assigned by Record when zero.
	CreatedAt time.Time `yaml:"created_at"`
	// DatasetHash is the hex content fingerprint of the fitted dataset.
	DatasetHash string `yaml:"dataset_hash"`
	// NObs and NParams describe the fitted model shape.
	NObs    int `yaml:"nobs"`
	NParams int `yaml:"nparams"`
	// Params maps coefficient names to estimates.
	Params map[string]float64 `yaml:"params"`
	// Fit statistics at the recorded estimates.
	LogLike   float64 `yaml:"loglike"`
	AIC       float64 `yaml:"aic"`
	BIC       float64 `yaml:"bic"`
	Converged bool    `yaml:"converged"`
	// Note is free-form context supplied by the analyst.
	Note string `yaml:"note,omitempty"`
}

// NewEntry assembles an Entry from a fitted model and the dataset it came
// from. The caller may adjust fields before Record.
func NewEntry(res *poisson.Results, ds *dataset.Dataset, note string) *Entry {
	params := make(map[string]float64, res.NumParams())
	for i, name := range res.Model().Names() {
		params[name] = res.Params()[i]
	}

	hash := ""
	if ds != nil {
		hash = fmt.Sprintf("%016x", ds.Fingerprint())
	}

	return &Entry{
		DatasetHash: hash,
		NObs:        res.NumObs(),
		NParams:     res.NumParams(),
		Params:      params,
		LogLike:     res.LogLike(),
		AIC:         res.AIC(),
		BIC:         res.BIC(),
		Converged:   res.Converged(),
		Note:        note,
	}
}

// Store is a SQLite-backed run log. Open creates it; Close releases it.
type Store struct {
	db *sql.DB
}

// Open opens or creates the run log database at path, enabling WAL mode and
// creating the schema when missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run log schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		dataset_hash TEXT NOT NULL,
		nobs INTEGER NOT NULL,
		nparams INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		loglike REAL NOT NULL,
		aic REAL NOT NULL,
		bic REAL NOT NULL,
		converged INTEGER NOT NULL,
		note TEXT
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`)

	return err
}

// Record inserts the entry, filling ID with a fresh UUID and CreatedAt with
// the current UTC time when they are zero.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	paramsJSON, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, dataset_hash, nobs, nparams, params_json,
			loglike, aic, bic, converged, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CreatedAt.Format(time.RFC3339Nano), e.DatasetHash, e.NObs, e.NParams,
		string(paramsJSON), e.LogLike, e.AIC, e.BIC, boolToInt(e.Converged), e.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.ID, err)
	}

	return nil
}

// Get returns the entry with the given ID, or ErrRunNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, dataset_hash, nobs, nparams, params_json,
			loglike, aic, bic, converged, note
		 FROM runs WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errs.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	return e, nil
}

// List returns the most recent entries, newest first. A nonpositive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `SELECT id, created_at, dataset_hash, nobs, nparams, params_json,
			loglike, aic, bic, converged, note
		 FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ExportYAML writes the full run history to w as a YAML document, newest
// first, for report archives.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	entries, err := s.List(ctx, 0)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(map[string][]*Entry{"runs": entries}); err != nil {
		return fmt.Errorf("failed to encode run history: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var createdAt, paramsJSON string
	var converged int
	var note sql.NullString

	err := row.Scan(&e.ID, &createdAt, &e.DatasetHash, &e.NObs, &e.NParams,
		&paramsJSON, &e.LogLike, &e.AIC, &e.BIC, &converged, &note)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
		return nil, fmt.Errorf("bad params_json: %w", err)
	}
	e.Converged = converged != 0
	e.Note = note.String

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
