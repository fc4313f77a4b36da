package core

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrTestNotFound      = errors.New("test not found")
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrExecutionNotFound = errors.New("execution not found")
)
