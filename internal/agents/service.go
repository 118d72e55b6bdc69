package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Service wraps agent business rules.
type Service struct {
	repo   *Repository
	scoper *authz.Scoper
}

// NewService constructs a new Service.
func NewService(repo *Repository, scoper *authz.Scoper) *Service {
	return &Service{repo: repo, scoper: scoper}
}

// List returns the agents the principal may see.
func (s *Service) List(ctx context.Context, p *principal.Principal) ([]Agent, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	cond, err := s.scoper.ScopeQuery(ctx, p, authz.ResourceAgent)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond)
}

// Get returns one agent within the principal's scope.
func (s *Service) Get(ctx context.Context, p *principal.Principal, id int64) (*Agent, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceAgent, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// CreateInput carries agent creation fields.
type CreateInput struct {
	CourseID     int64
	Name         string
	Model        string
	Instructions string
	Enabled      bool
}

// Create adds an agent to a course in scope.
func (s *Service) Create(ctx context.Context, p *principal.Principal, in CreateInput) (*Agent, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceCourse, in.CourseID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: agents: name required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Agent{
		CourseID:     in.CourseID,
		Name:         name,
		Model:        strings.TrimSpace(in.Model),
		Instructions: strings.TrimSpace(in.Instructions),
		Enabled:      in.Enabled,
	})
}

// Update edits an agent in scope.
func (s *Service) Update(ctx context.Context, p *principal.Principal, id int64, in CreateInput) (*Agent, error) {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceAgent, id); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: agents: name required", shared.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(in.Model), strings.TrimSpace(in.Instructions), in.Enabled)
}

// Delete removes an agent in scope.
func (s *Service) Delete(ctx context.Context, p *principal.Principal, id int64) error {
	if err := authz.Authorize(p, authz.ProfessorOrAbove); err != nil {
		return err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceAgent, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
