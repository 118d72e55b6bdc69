package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Service wraps course-module business rules.
type Service struct {
	repo   *Repository
	scoper *authz.Scoper
}

// NewService constructs a new Service.
func NewService(repo *Repository, scoper *authz.Scoper) *Service {
	return &Service{repo: repo, scoper: scoper}
}

// List returns the modules the principal may see, optionally narrowed
// to one course.
func (s *Service) List(ctx context.Context, p *principal.Principal, courseID int64) ([]Module, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if courseID > 0 {
		if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, courseID); err != nil {
			return nil, err
		}
	}
	cond, err := s.scoper.ScopeQuery(ctx, p, authz.ResourceModule)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond, courseID)
}

// Get returns one module within the principal's scope.
func (s *Service) Get(ctx context.Context, p *principal.Principal, id int64) (*Module, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceModule, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// CreateInput carries module creation fields.
type CreateInput struct {
	CourseID    int64
	Name        string
	Description string
	Position    int
}

// Create adds a module to a course in scope.
func (s *Service) Create(ctx context.Context, p *principal.Principal, in CreateInput) (*Module, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, in.CourseID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: modules: name required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Module{
		CourseID:    in.CourseID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Position:    in.Position,
	})
}

// Update edits a module in scope.
func (s *Service) Update(ctx context.Context, p *principal.Principal, id int64, name, description string, position int) (*Module, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceModule, id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: modules: name required", shared.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(description), position)
}

// Delete removes a module in scope.
func (s *Service) Delete(ctx context.Context, p *principal.Principal, id int64) error {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceModule, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListFiles returns file metadata for a module in scope.
func (s *Service) ListFiles(ctx context.Context, p *principal.Principal, moduleID int64) ([]File, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceModule, moduleID); err != nil {
		return nil, err
	}
	return s.repo.ListFiles(ctx, moduleID)
}

// FileInput carries file metadata fields.
type FileInput struct {
	Name        string
	ContentType string
	SizeBytes   int64
}

// CreateFile records file metadata under a module in scope.
func (s *Service) CreateFile(ctx context.Context, p *principal.Principal, moduleID int64, in FileInput) (*File, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceModule, moduleID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: modules: file name required", shared.ErrInvalidInput)
	}
	return s.repo.CreateFile(ctx, File{
		ModuleID:    moduleID,
		Name:        name,
		ContentType: strings.TrimSpace(in.ContentType),
		SizeBytes:   in.SizeBytes,
	})
}

// DeleteFile removes a file metadata row in scope.
func (s *Service) DeleteFile(ctx context.Context, p *principal.Principal, fileID int64) error {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceFile, fileID); err != nil {
		return err
	}
	return s.repo.DeleteFile(ctx, fileID)
}
