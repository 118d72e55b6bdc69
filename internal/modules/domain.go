package modules

import "time"

// Module is a unit of course content. Widget tokens can bind to it.
type Module struct {
	ID          int64
	CourseID    int64
	Name        string
	Description string
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// File is stored metadata for an uploaded module file. Blob storage
// mechanics live elsewhere; this side only tracks the rows.
type File struct {
	ID          int64
	ModuleID    int64
	Name        string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
