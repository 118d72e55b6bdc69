package agents

import "time"

// Agent is a course-bound AI tutor configuration. Widget tokens can
// bind to it; model selection itself happens in a separate service.
type Agent struct {
	ID           int64
	CourseID     int64
	Name         string
	Model        string
	Instructions string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
