package universities

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
)

// Service wraps university business rules.
type Service struct {
	repo   *Repository
	scoper *authz.Scoper
}

// NewService constructs a new Service.
func NewService(repo *Repository, scoper *authz.Scoper) *Service {
	return &Service{repo: repo, scoper: scoper}
}

// List returns the universities the principal may see.
func (s *Service) List(ctx context.Context, p *principal.Principal, page shared.Pagination) ([]University, shared.Pagination, error) {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return nil, page, err
	}
	cond, err := s.scoper.ScopeQuery(ctx, p, authz.ResourceUniversity)
	if err != nil {
		return nil, page, err
	}
	items, total, err := s.repo.List(ctx, cond, page)
	if err != nil {
		return nil, page, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get returns one university within the principal's scope.
func (s *Service) Get(ctx context.Context, p *principal.Principal, id int64) (*University, error) {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceUniversity, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new tenant. Super admins only.
func (s *Service) Create(ctx context.Context, p *principal.Principal, name, domain string) (*University, error) {
	if err := authz.Authorize(p, authz.SuperAdminOnly); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: universities: name required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, name, strings.TrimSpace(domain))
}

// Update edits a university within the principal's scope.
func (s *Service) Update(ctx context.Context, p *principal.Principal, id int64, name, domain string) (*University, error) {
	if err := authz.Authorize(p, authz.AdminOrAbove); err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeResource(ctx, p, authz.ResourceUniversity, id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: universities: name required", shared.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(domain))
}
