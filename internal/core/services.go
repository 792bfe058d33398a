package core

type Services struct {
	Job          *JobService
	JobExecution *JobExecutionService
}

func NewServices(db DB) *Services {
	return &Services{
		Job:          NewJobService(db),
		JobExecution: NewJobExecutionService(db),
	}
}
