package core

type Services struct {
	Plan      *PlanService
	Test      *TestService
	Schedule  *ScheduleService
	Execution *ExecutionService
	Element   *ElementService
}

func NewServices(db DB) *Services {
	return &Services{
		Plan:      NewPlanService(db),
		Test:      NewTestService(db),
		Schedule:  NewScheduleService(db),
		Execution: NewExecutionService(db),
		Element:   NewElementService(db),
	}
}
