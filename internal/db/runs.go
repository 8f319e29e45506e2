package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/scenebench/internal/timeutil"
)

// Run is one persisted evaluation. Metrics that do not apply to the task,
// or are undefined, are NaN and stored as NULL.
type Run struct {
	RunID        string          `json:"run_id"`
	Task         string          `json:"task"`
	Benchmark    string          `json:"benchmark"`
	ParamsJSON   json.RawMessage `json:"params_json,omitempty"`
	MeanAP       float64         `json:"mean_ap"`
	AP50         float64         `json:"ap50"`
	AP25         float64         `json:"ap25"`
	MeanIoU      float64         `json:"mean_iou"`
	SceneCount   int             `json:"scene_count"`
	FailureCount int             `json:"failure_count"`
	CreatedAt    int64           `json:"created_at"`
}

// ClassResult is one class's row for a run.
type ClassResult struct {
	Label       string  `json:"label"`
	LabelID     int     `json:"label_id"`
	AP          float64 `json:"ap"`
	AP50        float64 `json:"ap50"`
	AP25        float64 `json:"ap25"`
	IoU         float64 `json:"iou"`
	TP          int64   `json:"tp"`
	Denominator int64   `json:"denominator"`
}

// FailureRecord is a skipped scene.
type FailureRecord struct {
	Scene   string `json:"scene"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NaNClassResult returns a row with every metric unset.
func NaNClassResult(label string, id int) ClassResult {
	nan := math.NaN()
	return ClassResult{Label: label, LabelID: id, AP: nan, AP50: nan, AP25: nan, IoU: nan}
}

// RunStore persists evaluation runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore over an opened database.
func NewRunStore(db *DB) *RunStore {
	return NewRunStoreWithClock(db, timeutil.RealClock{})
}

// NewRunStoreWithClock stamps runs using clock.
func NewRunStoreWithClock(db *DB, clock timeutil.Clock) *RunStore {
	return &RunStore{db: db.DB, clock: clock}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f) && !math.IsInf(f, 0)}
}

func fromNull(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// Insert stores a run with its class rows and failures in one transaction.
// An empty RunID is replaced with a new UUID.
func (s *RunStore) Insert(ctx context.Context, run *Run, classes []ClassResult, failures []FailureRecord) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run insert: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evaluation_runs (
				run_id, task, benchmark, params_json, mean_ap, ap50, ap25, mean_iou,
				scene_count, failure_count, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Task, run.Benchmark, params,
			nullFloat(run.MeanAP), nullFloat(run.AP50), nullFloat(run.AP25), nullFloat(run.MeanIoU),
			run.SceneCount, run.FailureCount, run.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, c := range classes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO class_results (run_id, label, label_id, ap, ap50, ap25, iou, tp, denominator)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.RunID, c.Label, c.LabelID,
				nullFloat(c.AP), nullFloat(c.AP50), nullFloat(c.AP25), nullFloat(c.IoU),
				c.TP, c.Denominator,
			); err != nil {
				return fmt.Errorf("insert class result %s: %w", c.Label, err)
			}
		}
		for _, f := range failures {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO scene_failures (run_id, scene, kind, message) VALUES (?, ?, ?, ?)`,
				run.RunID, f.Scene, f.Kind, f.Message,
			); err != nil {
				return fmt.Errorf("insert scene failure: %w", err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `run_id, task, benchmark, params_json, mean_ap, ap50, ap25, mean_iou,
		       scene_count, failure_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var params sql.NullString
	var meanAP, ap50, ap25, meanIoU sql.NullFloat64
	if err := row.Scan(
		&r.RunID, &r.Task, &r.Benchmark, &params, &meanAP, &ap50, &ap25, &meanIoU,
		&r.SceneCount, &r.FailureCount, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	r.MeanAP, r.AP50, r.AP25, r.MeanIoU = fromNull(meanAP), fromNull(ap50), fromNull(ap25), fromNull(meanIoU)
	return &r, nil
}

// Get returns a single run by ID.
func (s *RunStore) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM evaluation_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// List returns the most recent runs first. limit <= 0 returns all.
func (s *RunStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM evaluation_runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListClassResults returns a run's class rows ordered by label id.
func (s *RunStore) ListClassResults(ctx context.Context, runID string) ([]ClassResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, label_id, ap, ap50, ap25, iou, tp, denominator
		FROM class_results WHERE run_id = ? ORDER BY label_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query class results: %w", err)
	}
	defer rows.Close()

	var out []ClassResult
	for rows.Next() {
		var c ClassResult
		var ap, ap50, ap25, iou sql.NullFloat64
		if err := rows.Scan(&c.Label, &c.LabelID, &ap, &ap50, &ap25, &iou, &c.TP, &c.Denominator); err != nil {
			return nil, fmt.Errorf("scan class result: %w", err)
		}
		c.AP, c.AP50, c.AP25, c.IoU = fromNull(ap), fromNull(ap50), fromNull(ap25), fromNull(iou)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListFailures returns a run's skipped scenes.
func (s *RunStore) ListFailures(ctx context.Context, runID string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scene, kind, message FROM scene_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scene failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.Scene, &f.Kind, &f.Message); err != nil {
			return nil, fmt.Errorf("scan scene failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes a run and its dependent rows.
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("run %s not found", runID)
		}
		return nil
	})
}
