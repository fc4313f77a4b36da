package core

import (
	"context"
	"fmt"
)

type ElementService struct {
	db DB
}

func NewElementService(db DB) *ElementService {
	return &ElementService{db: db}
}

// UpdateLocator rewrites a shared element's locator. Used by
// self-healing when a step references a named element.
func (s *ElementService) UpdateLocator(ctx context.Context, id, locator string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE elements SET locator = $1, updated_at = now() WHERE id = $2`,
		locator, id,
	)
	if err != nil {
		return fmt.Errorf("update element locator %s: %w", id, err)
	}
	return nil
}
