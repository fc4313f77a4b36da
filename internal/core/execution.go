package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/testpilot/internal/model"
)

type ExecutionService struct {
	db DB
}

func NewExecutionService(db DB) *ExecutionService {
	return &ExecutionService{db: db}
}

func (s *ExecutionService) Create(ctx context.Context, exec *model.Execution) error {
	results, err := marshalResults(exec.Results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO executions (id, plan_id, schedule_id, status, trigger, triggered_by, started_at, completed_at, results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		exec.ID, exec.PlanID, exec.ScheduleID, exec.Status, exec.Trigger,
		exec.TriggeredBy, exec.StartedAt, exec.CompletedAt, results,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

func (s *ExecutionService) GetByID(ctx context.Context, id string) (*model.Execution, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, plan_id, schedule_id, status, trigger, triggered_by, started_at, completed_at, results
		 FROM executions WHERE id = $1`, id,
	)
	exec, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution %s: %w", id, err)
	}
	return &exec, nil
}

// UpdateResults persists the in-flight result list, keeping partial
// progress observable while the plan is still running.
func (s *ExecutionService) UpdateResults(ctx context.Context, id string, results []model.TestResult) error {
	data, err := marshalResults(results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`UPDATE executions SET results = $1 WHERE id = $2`,
		data, id,
	)
	if err != nil {
		return fmt.Errorf("update execution results %s: %w", id, err)
	}
	return nil
}

// MarkRunning transitions a pending execution to running.
func (s *ExecutionService) MarkRunning(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE executions SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusRunning, id, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark execution running %s: %w", id, err)
	}
	return nil
}

// Complete writes the terminal status, completion time, and final
// result list. The WHERE guard keeps a terminal status from ever being
// overwritten.
func (s *ExecutionService) Complete(ctx context.Context, id, status string, completedAt time.Time, results []model.TestResult) error {
	data, err := marshalResults(results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`UPDATE executions SET status = $1, completed_at = $2, results = $3
		 WHERE id = $4 AND status IN ($5, $6)`,
		status, completedAt, data, id, model.StatusPending, model.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("complete execution %s: %w", id, err)
	}
	return nil
}

func (s *ExecutionService) ListByPlan(ctx context.Context, planID string, limit int, cursor string) ([]model.Execution, bool, error) {
	query := `SELECT id, plan_id, schedule_id, status, trigger, triggered_by, started_at, completed_at, results
	 FROM executions WHERE plan_id = $1`
	args := []any{planID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list executions for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var execs []model.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate executions: %w", err)
	}

	hasMore := len(execs) > limit
	if hasMore {
		execs = execs[:limit]
	}
	return execs, hasMore, nil
}

// CountBySchedule returns how many executions a schedule has produced.
func (s *ExecutionService) CountBySchedule(ctx context.Context, scheduleID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM executions WHERE schedule_id = $1`, scheduleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count executions for schedule %s: %w", scheduleID, err)
	}
	return count, nil
}

func marshalResults(results []model.TestResult) ([]byte, error) {
	if results == nil {
		results = []model.TestResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal execution results: %w", err)
	}
	return data, nil
}

func scanExecution(row interface{ Scan(dest ...any) error }) (model.Execution, error) {
	var (
		exec    model.Execution
		results []byte
	)
	err := row.Scan(&exec.ID, &exec.PlanID, &exec.ScheduleID, &exec.Status, &exec.Trigger,
		&exec.TriggeredBy, &exec.StartedAt, &exec.CompletedAt, &results)
	if err != nil {
		return model.Execution{}, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &exec.Results); err != nil {
			return model.Execution{}, fmt.Errorf("decode execution results: %w", err)
		}
	}
	return exec, nil
}
