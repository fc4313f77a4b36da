package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/testpilot/internal/model"
)

type ScheduleService struct {
	db DB
}

func NewScheduleService(db DB) *ScheduleService {
	return &ScheduleService{db: db}
}

func (s *ScheduleService) Create(ctx context.Context, sched *model.Schedule) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO schedules (id, plan_id, frequency, next_run_at, is_active, retry_policy, retry_count, environment, browser_set, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sched.ID, sched.PlanID, sched.Frequency, sched.NextRunAt, sched.IsActive,
		sched.RetryPolicy, sched.RetryCount, sched.Environment, sched.BrowserSet,
		sched.CreatedAt, sched.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (s *ScheduleService) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, plan_id, frequency, next_run_at, is_active, retry_policy, retry_count, environment, browser_set, created_at, updated_at
		 FROM schedules WHERE id = $1`, id,
	)
	sched, err := scanSchedule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	return &sched, nil
}

func (s *ScheduleService) Update(ctx context.Context, sched *model.Schedule) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET frequency = $1, next_run_at = $2, is_active = $3, retry_policy = $4,
		 retry_count = $5, environment = $6, browser_set = $7, updated_at = now() WHERE id = $8`,
		sched.Frequency, sched.NextRunAt, sched.IsActive, sched.RetryPolicy,
		sched.RetryCount, sched.Environment, sched.BrowserSet, sched.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", sched.ID, err)
	}
	return nil
}

// ListActive returns every active schedule, for loadAll replay at boot.
func (s *ScheduleService) ListActive(ctx context.Context) ([]model.Schedule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, plan_id, frequency, next_run_at, is_active, retry_policy, retry_count, environment, browser_set, created_at, updated_at
		 FROM schedules WHERE is_active = true ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleService) List(ctx context.Context, limit int, cursor string) ([]model.Schedule, bool, error) {
	query := `SELECT id, plan_id, frequency, next_run_at, is_active, retry_policy, retry_count, environment, browser_set, created_at, updated_at FROM schedules`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate schedules: %w", err)
	}

	hasMore := len(schedules) > limit
	if hasMore {
		schedules = schedules[:limit]
	}
	return schedules, hasMore, nil
}

// Deactivate marks a schedule inactive. Idempotent.
func (s *ScheduleService) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE schedules SET is_active = false, updated_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("deactivate schedule %s: %w", id, err)
	}
	return nil
}

// DeactivateIfActive atomically flips is_active to false and reports
// whether this call won the flip. A once-schedule fire racing a
// concurrent disarm uses this as its check-and-set: only the winner
// executes the plan.
func (s *ScheduleService) DeactivateIfActive(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE schedules SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true`, id,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate schedule %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return nil
}

func scanSchedule(row interface{ Scan(dest ...any) error }) (model.Schedule, error) {
	var sched model.Schedule
	err := row.Scan(&sched.ID, &sched.PlanID, &sched.Frequency, &sched.NextRunAt,
		&sched.IsActive, &sched.RetryPolicy, &sched.RetryCount,
		&sched.Environment, &sched.BrowserSet, &sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return model.Schedule{}, err
	}
	return sched, nil
}
