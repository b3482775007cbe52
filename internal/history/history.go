/*
Package history keeps a persistent record of every search study and its
trials in SQLite.

It uses modernc.org/sqlite (a pure Go, CGo-free implementation), so the binary
stays statically linked.
*/
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thalesfsp/gnnsearch/ho"
)

var (
	// ErrStudyNotFound is returned when a study ID is unknown.
	ErrStudyNotFound = errors.New("study not found")

	// ErrClosed is returned by every operation on a closed Store.
	ErrClosed = errors.New("history store closed")
)

// StudyStatus is the lifecycle state of a study.
type StudyStatus string

const (
	StudyRunning StudyStatus = "running"
	StudyDone    StudyStatus = "done"
	StudyFailed  StudyStatus = "failed"
)

// timeLayout is how timestamps are stored.
const timeLayout = time.RFC3339Nano

// Study is one invocation of the search driver.
type Study struct {
	ID         string
	Model      string
	Dataset    string
	Fold       int
	Algorithm  string
	Seed       int64
	Runs       int
	Iterations int
	StartedAt  time.Time

	Status StudyStatus

	// Error is the reason a failed study stopped.
	Error string

	// FinishedAt is nil while the study runs. BestLoss is nil unless the
	// study is done.
	FinishedAt *time.Time
	BestLoss   *float64
}

// Trial is one evaluated hyperparameter sample of a study.
type Trial struct {
	StudyID       string
	Number        int
	Params        ho.Sample
	Loss          float64
	RunAccuracies []float64
	StartedAt     time.Time
	FinishedAt    time.Time

	// Status is ho.StatusFailed when the trial aborted the study; Loss is
	// then meaningless and Error holds the cause.
	Status ho.Status
	Error  string
}

// Store is a SQLite backed history.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; keep one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil

	return nil
}

// CreateStudy inserts a new, unfinished study.
func (s *Store) CreateStudy(ctx context.Context, study Study) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO studies (id, model, dataset, fold, algorithm, seed, runs, iterations, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		study.ID, study.Model, study.Dataset, study.Fold, study.Algorithm, study.Seed,
		study.Runs, study.Iterations, study.StartedAt.UTC().Format(timeLayout), StudyRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create study %s: %w", study.ID, err)
	}

	return nil
}

// RecordTrial stores one trial of an existing study.
func (s *Store) RecordTrial(ctx context.Context, trial Trial) error {
	params, err := json.Marshal(trial.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	runs, err := json.Marshal(trial.RunAccuracies)
	if err != nil {
		return fmt.Errorf("failed to encode run accuracies: %w", err)
	}

	status := trial.Status
	if status == "" {
		status = ho.StatusOK
	}

	loss := trial.Loss
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		loss = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (study_id, number, params, loss, run_accuracies, started_at, finished_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trial.StudyID, trial.Number, string(params), loss, string(runs),
		trial.StartedAt.UTC().Format(timeLayout), trial.FinishedAt.UTC().Format(timeLayout),
		string(status), trial.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record trial %d of study %s: %w", trial.Number, trial.StudyID, err)
	}

	return nil
}

// FinishStudy marks a study as done with its best loss.
func (s *Store) FinishStudy(ctx context.Context, id string, finishedAt time.Time, bestLoss float64) error {
	return s.updateStudy(ctx, id,
		`UPDATE studies SET finished_at = ?, best_loss = ?, status = ? WHERE id = ?`,
		finishedAt.UTC().Format(timeLayout), bestLoss, StudyDone, id,
	)
}

// FailStudy marks a study as stopped by cause.
func (s *Store) FailStudy(ctx context.Context, id string, finishedAt time.Time, cause string) error {
	return s.updateStudy(ctx, id,
		`UPDATE studies SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		finishedAt.UTC().Format(timeLayout), StudyFailed, cause, id,
	)
}

func (s *Store) updateStudy(ctx context.Context, id, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update study %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update study %s: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrStudyNotFound, id)
	}

	return nil
}

// ListStudies returns every study, most recent first.
func (s *Store) ListStudies(ctx context.Context) ([]Study, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, dataset, fold, algorithm, seed, runs, iterations, started_at, finished_at, best_loss, status, error
		FROM studies
		ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	defer rows.Close()

	var studies []Study

	for rows.Next() {
		var (
			study      Study
			startedAt  string
			finishedAt sql.NullString
			bestLoss   sql.NullFloat64
		)

		if err := rows.Scan(
			&study.ID, &study.Model, &study.Dataset, &study.Fold, &study.Algorithm, &study.Seed,
			&study.Runs, &study.Iterations, &startedAt, &finishedAt, &bestLoss, &study.Status, &study.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}

		if study.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse study start: %w", err)
		}

		if finishedAt.Valid {
			t, err := time.Parse(timeLayout, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse study end: %w", err)
			}

			study.FinishedAt = &t
		}

		if bestLoss.Valid {
			v := bestLoss.Float64
			study.BestLoss = &v
		}

		studies = append(studies, study)
	}

	return studies, rows.Err()
}

// ListTrials returns the trials of a study in evaluation order.
func (s *Store) ListTrials(ctx context.Context, studyID string) ([]Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrClosed
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM studies WHERE id = ?`, studyID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up study: %w", err)
	}

	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrStudyNotFound, studyID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT number, params, loss, run_accuracies, started_at, finished_at, status, error
		FROM trials
		WHERE study_id = ?
		ORDER BY number`, studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var trials []Trial

	for rows.Next() {
		var (
			trial                 = Trial{StudyID: studyID}
			params, runs          string
			startedAt, finishedAt string
		)

		if err := rows.Scan(
			&trial.Number, &params, &trial.Loss, &runs, &startedAt, &finishedAt, &trial.Status, &trial.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}

		if err := json.Unmarshal([]byte(params), &trial.Params); err != nil {
			return nil, fmt.Errorf("failed to decode params of trial %d: %w", trial.Number, err)
		}

		if err := json.Unmarshal([]byte(runs), &trial.RunAccuracies); err != nil {
			return nil, fmt.Errorf("failed to decode run accuracies of trial %d: %w", trial.Number, err)
		}

		if trial.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse trial start: %w", err)
		}

		if trial.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse trial end: %w", err)
		}

		trials = append(trials, trial)
	}

	return trials, rows.Err()
}
