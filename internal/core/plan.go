package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/testpilot/internal/model"
)

type PlanService struct {
	db DB
}

func NewPlanService(db DB) *PlanService {
	return &PlanService{db: db}
}

func (s *PlanService) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	var p model.Plan
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}
	return &p, nil
}

// ListTests returns the plan's member tests in plan-defined order.
func (s *PlanService) ListTests(ctx context.Context, planID string) ([]model.Test, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.id, t.name, t.type, t.start_url, t.steps, t.api_spec, t.created_at, t.updated_at
		 FROM tests t
		 JOIN plan_tests pt ON pt.test_id = t.id
		 WHERE pt.plan_id = $1
		 ORDER BY pt.position`, planID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tests for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan test: %w", err)
		}
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan tests: %w", err)
	}
	return tests, nil
}
