package authz

// Resource identifies a tenant-owned resource type registered with the
// scope filter.
type Resource string

const (
	ResourceUniversity Resource = "university"
	ResourceCourse     Resource = "course"
	ResourceModule     Resource = "module"
	ResourceFile       Resource = "file"
	ResourceAgent      Resource = "agent"
	ResourceEnrollment Resource = "enrollment"
)

// OwnershipPath declares, once per resource type, how rows of that type
// resolve to their owning course and university. The scope filter is
// the only consumer; repositories never hand-roll tenant predicates.
type OwnershipPath struct {
	// Table is the base table holding the resource rows.
	Table string
	// Joins is the join chain needed to reach the ownership columns.
	// Empty when both expressions are local to Table.
	Joins string
	// CourseExpr yields the owning course id. Empty when the type has
	// no course in its ownership path (the university itself).
	CourseExpr string
	// UniversityExpr yields the owning university id.
	UniversityExpr string
}

// defaultPaths is the canonical ownership-path table for the schema.
var defaultPaths = map[Resource]OwnershipPath{
	ResourceUniversity: {
		Table:          "universities",
		UniversityExpr: "universities.id",
	},
	ResourceCourse: {
		Table:          "courses",
		CourseExpr:     "courses.id",
		UniversityExpr: "courses.university_id",
	},
	ResourceModule: {
		Table:          "course_modules",
		Joins:          "JOIN courses ON courses.id = course_modules.course_id",
		CourseExpr:     "course_modules.course_id",
		UniversityExpr: "courses.university_id",
	},
	ResourceFile: {
		Table:          "module_files",
		Joins:          "JOIN course_modules ON course_modules.id = module_files.module_id JOIN courses ON courses.id = course_modules.course_id",
		CourseExpr:     "course_modules.course_id",
		UniversityExpr: "courses.university_id",
	},
	ResourceAgent: {
		Table:          "agents",
		Joins:          "JOIN courses ON courses.id = agents.course_id",
		CourseExpr:     "agents.course_id",
		UniversityExpr: "courses.university_id",
	},
	ResourceEnrollment: {
		Table:          "enrollments",
		Joins:          "JOIN courses ON courses.id = enrollments.course_id",
		CourseExpr:     "enrollments.course_id",
		UniversityExpr: "courses.university_id",
	},
}
