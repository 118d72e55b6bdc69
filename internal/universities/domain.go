package universities

import "time"

// University is the top-level tenant boundary.
type University struct {
	ID        int64
	Name      string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
