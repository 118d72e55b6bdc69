package courses

import "time"

// Course is a tenant-owned teaching unit under one university.
type Course struct {
	ID           int64
	UniversityID int64
	Name         string
	Code         string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfessorAssignment ties a professor to a course. It is the
// visibility boundary for non-admin professors.
type ProfessorAssignment struct {
	ProfessorID int64
	CourseID    int64
	CreatedAt   time.Time
}

// Student is the enrollment view of a user within a course.
type Student struct {
	UserID     int64
	Email      string
	Name       string
	EnrolledAt time.Time
}
