package turso

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"labflow/internal/domain"
	"labflow/internal/ports"
	"labflow/internal/util"
)

// ExperimentRepository persists experiments and their steps in Turso.
type ExperimentRepository struct {
	db *sql.DB
}

func NewExperimentRepository(db *sql.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, experiment *domain.Experiment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO experiments (id, title, description, protocol_text, progress, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		experiment.ID,
		experiment.Title,
		experiment.Description,
		util.NullStringPtr(experiment.ProtocolText),
		experiment.Progress,
		experiment.CreatedAt.UTC().Format(time.RFC3339),
		util.NullTimePtr(experiment.StartedAt),
		util.NullTimePtr(experiment.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	for i, step := range experiment.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO experiment_steps (experiment_id, step_index, description, estimated_duration, scheduled_time, completed, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			experiment.ID,
			i,
			step.Description,
			util.NullInt64Ptr(step.EstimatedDuration),
			util.NullTimePtr(step.ScheduledTime),
			util.BoolToInt64(step.Completed),
			util.NullTimePtr(step.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create transaction: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]*domain.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, protocol_text, progress, created_at, started_at, completed_at
		FROM experiments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*domain.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}

	for _, exp := range experiments {
		steps, err := r.loadSteps(ctx, exp.ID)
		if err != nil {
			return nil, err
		}
		exp.Steps = steps
	}
	return experiments, nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, protocol_text, progress, created_at, started_at, completed_at
		FROM experiments
		WHERE id = ?
	`, id)

	exp, err := scanExperiment(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	steps, err := r.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	exp.Steps = steps
	return exp, nil
}

func (r *ExperimentRepository) Update(ctx context.Context, id string, upd ports.ExperimentUpdate) error {
	var sets []string
	var args []any
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.ProtocolText != nil {
		sets = append(sets, "protocol_text = ?")
		args = append(args, *upd.ProtocolText)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, "UPDATE experiments SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update experiment: %w", err)
	}
	return requireRow(res)
}

func (r *ExperimentRepository) Start(ctx context.Context, id string, startedAt time.Time, scheduledTimes []time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE experiments SET started_at = ? WHERE id = ?`,
		startedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to stamp start time: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	for i, st := range scheduledTimes {
		_, err := tx.ExecContext(ctx, `
			UPDATE experiment_steps SET scheduled_time = ?
			WHERE experiment_id = ? AND step_index = ?
		`, st.UTC().Format(time.RFC3339), id, i)
		if err != nil {
			return fmt.Errorf("failed to schedule step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit start transaction: %w", err)
	}
	return nil
}

// CompleteStep marks a step complete and recomputes the experiment's
// progress inside the same transaction, so two concurrent completions
// cannot interleave stale progress values. Completing an already
// completed step changes nothing.
func (r *ExperimentRepository) CompleteStep(ctx context.Context, id string, stepIndex int, completedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var completed int64
	err = tx.QueryRowContext(ctx, `
		SELECT completed FROM experiment_steps WHERE experiment_id = ? AND step_index = ?
	`, id, stepIndex).Scan(&completed)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read step: %w", err)
	}
	if completed == 1 {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE experiment_steps SET completed = 1, completed_at = ?
		WHERE experiment_id = ? AND step_index = ?
	`, completedAt.UTC().Format(time.RFC3339), id, stepIndex)
	if err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}

	var total, done int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM experiment_steps WHERE experiment_id = ?
	`, id).Scan(&total, &done)
	if err != nil {
		return fmt.Errorf("failed to count steps: %w", err)
	}

	progress := domain.ProgressOf(done, total)
	if progress == 100 {
		_, err = tx.ExecContext(ctx, `UPDATE experiments SET progress = ?, completed_at = ? WHERE id = ?`,
			progress, completedAt.UTC().Format(time.RFC3339), id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE experiments SET progress = ? WHERE id = ?`, progress, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete transaction: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM experiment_steps WHERE experiment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete steps: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM experiments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transaction: %w", err)
	}
	return nil
}

func (r *ExperimentRepository) loadSteps(ctx context.Context, experimentID string) ([]domain.Step, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT description, estimated_duration, scheduled_time, completed, completed_at
		FROM experiment_steps
		WHERE experiment_id = ?
		ORDER BY step_index
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var (
			step          domain.Step
			estimated     sql.NullInt64
			scheduledTime sql.NullString
			completed     int64
			completedAt   sql.NullString
		)
		if err := rows.Scan(&step.Description, &estimated, &scheduledTime, &completed, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.EstimatedDuration = util.NullInt64ToPtr(estimated)
		step.ScheduledTime = util.NullTimeToPtr(scheduledTime)
		step.Completed = completed == 1
		step.CompletedAt = util.NullTimeToPtr(completedAt)
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*domain.Experiment, error) {
	var (
		exp          domain.Experiment
		protocolText sql.NullString
		createdAt    string
		startedAt    sql.NullString
		completedAt  sql.NullString
	)
	err := row.Scan(&exp.ID, &exp.Title, &exp.Description, &protocolText, &exp.Progress, &createdAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan experiment: %w", err)
	}

	exp.ProtocolText = util.NullStringToPtr(protocolText)
	exp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	exp.StartedAt = util.NullTimeToPtr(startedAt)
	exp.CompletedAt = util.NullTimeToPtr(completedAt)
	return &exp, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
