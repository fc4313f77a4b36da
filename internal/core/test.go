package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/testpilot/internal/model"
)

type TestService struct {
	db DB
}

func NewTestService(db DB) *TestService {
	return &TestService{db: db}
}

func (s *TestService) GetByID(ctx context.Context, id string) (*model.Test, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, type, start_url, steps, api_spec, created_at, updated_at
		 FROM tests WHERE id = $1`, id,
	)
	t, err := scanTest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get test %s: %w", id, err)
	}
	return &t, nil
}

// UpdateStepLocator rewrites the locator of one step inside the test's
// stored step list. Used by self-healing to persist a repaired locator
// so the next run uses it directly.
func (s *TestService) UpdateStepLocator(ctx context.Context, testID string, stepIndex int, locator string) error {
	t, err := s.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if stepIndex < 0 || stepIndex >= len(t.Steps) {
		return fmt.Errorf("update step locator: test %s has no step %d", testID, stepIndex)
	}

	t.Steps[stepIndex].Locator = locator
	steps, err := json.Marshal(t.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps for test %s: %w", testID, err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE tests SET steps = $1, updated_at = now() WHERE id = $2`,
		steps, testID,
	)
	if err != nil {
		return fmt.Errorf("update step locator for test %s: %w", testID, err)
	}
	return nil
}

func scanTest(row interface{ Scan(dest ...any) error }) (model.Test, error) {
	var (
		t       model.Test
		steps   []byte
		apiSpec []byte
	)
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.StartURL, &steps, &apiSpec, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Test{}, err
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &t.Steps); err != nil {
			return model.Test{}, fmt.Errorf("decode steps: %w", err)
		}
	}
	if len(apiSpec) > 0 {
		if err := json.Unmarshal(apiSpec, &t.APISpec); err != nil {
			return model.Test{}, fmt.Errorf("decode api spec: %w", err)
		}
	}
	return t, nil
}
