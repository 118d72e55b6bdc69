package courses

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// AssignmentInvalidator drops a professor's cached course set after an
// assignment change.
type AssignmentInvalidator interface {
	Invalidate(ctx context.Context, professorID int64) error
}

// Store is the persistence surface the service needs. *Repository is the
// production implementation.
type Store interface {
	List(ctx context.Context, cond authz.Condition, page shared.Pagination) ([]Course, int, error)
	Get(ctx context.Context, id int64) (*Course, error)
	Create(ctx context.Context, c Course) (*Course, error)
	Update(ctx context.Context, id int64, name, code, description string) (*Course, error)
	AssignProfessor(ctx context.Context, courseID, professorID int64) error
	UnassignProfessor(ctx context.Context, courseID, professorID int64) error
	ListProfessors(ctx context.Context, courseID int64) ([]ProfessorAssignment, error)
	ListStudents(ctx context.Context, courseID int64) ([]Student, error)
}

// Service wraps course business rules.
type Service struct {
	repo        Store
	scoper      *authz.Scoper
	invalidator AssignmentInvalidator
	audit       *shared.AuditRecorder
	logger      *slog.Logger
}

// NewService constructs a new Service. invalidator and audit may be nil.
func NewService(repo Store, scoper *authz.Scoper, invalidator AssignmentInvalidator, audit *shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, scoper: scoper, invalidator: invalidator, audit: audit, logger: logger}
}

// List returns the courses the principal may see.
func (s *Service) List(ctx context.Context, p *principal.Principal, page shared.Pagination) ([]Course, shared.Pagination, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, page, err
	}
	cond, err := s.scoper.ScopeQuery(ctx, p, authz.ResourceCourse)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, cond, page)
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get returns one course within the principal's scope.
func (s *Service) Get(ctx context.Context, p *principal.Principal, id int64) (*Course, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// CreateInput carries course creation fields.
type CreateInput struct {
	UniversityID int64
	Name         string
	Code         string
	Description  string
}

// Create adds a course under a university the principal administers.
func (s *Service) Create(ctx context.Context, p *principal.Principal, in CreateInput) (*Course, error) {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceUniversity, in.UniversityID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: courses: name required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Course{
		UniversityID: in.UniversityID,
		Name:         name,
		Code:         strings.TrimSpace(in.Code),
		Description:  strings.TrimSpace(in.Description),
	})
}

// Update edits course metadata within the principal's scope.
func (s *Service) Update(ctx context.Context, p *principal.Principal, id int64, name, code, description string) (*Course, error) {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: courses: name required", shared.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(code), strings.TrimSpace(description))
}

// AssignProfessor grants a professor visibility over one course and
// drops their cached assignment set.
func (s *Service) AssignProfessor(ctx context.Context, p *principal.Principal, courseID, professorID int64) error {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, courseID); err != nil {
		return err
	}
	if err := s.repo.AssignProfessor(ctx, courseID, professorID); err != nil {
		return err
	}
	s.invalidate(ctx, professorID)
	s.recordAudit(ctx, p, "course.assign_professor", courseID, professorID)
	return nil
}

// UnassignProfessor removes the assignment and drops the cached set.
func (s *Service) UnassignProfessor(ctx context.Context, p *principal.Principal, courseID, professorID int64) error {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, courseID); err != nil {
		return err
	}
	if err := s.repo.UnassignProfessor(ctx, courseID, professorID); err != nil {
		return err
	}
	s.invalidate(ctx, professorID)
	s.recordAudit(ctx, p, "course.unassign_professor", courseID, professorID)
	return nil
}

// ListProfessors returns the assignments for a course in scope.
func (s *Service) ListProfessors(ctx context.Context, p *principal.Principal, courseID int64) ([]ProfessorAssignment, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListProfessors(ctx, courseID)
}

// ListStudents returns enrolled students for a course in scope.
func (s *Service) ListStudents(ctx context.Context, p *principal.Principal, courseID int64) ([]Student, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListStudents(ctx, courseID)
}

func (s *Service) invalidate(ctx context.Context, professorID int64) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, professorID); err != nil && s.logger != nil {
		s.logger.Warn("invalidate assignment cache", slog.Int64("professor_id", professorID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, p *principal.Principal, action string, courseID, professorID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditEvent{
		ActorID:  p.UserID,
		Action:   action,
		Entity:   "course",
		EntityID: fmt.Sprintf("%d", courseID),
		Meta:     map[string]any{"professor_id": professorID},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit event", slog.String("action", action), slog.Any("error", err))
	}
}
