package usecase

import (
	"context"
	"errors"
	"strings"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/portfolio"
)

// ProjectService serves the project cards and the detail modal.
type ProjectService struct {
	site *SiteCache
}

type ProjectDetail struct {
	domain.Project
	Hash         string
	InquiryURL   string
	InquiryBlurb string
}

func NewProjectService(site *SiteCache) (*ProjectService, error) {
	if site == nil {
		return nil, errors.New("usecase: site cache must not be nil")
	}
	return &ProjectService{site: site}, nil
}

// Profile returns the site owner shown in the page header.
func (s *ProjectService) Profile(ctx context.Context) (domain.Profile, error) {
	site, err := s.load(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	return site.Owner, nil
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	site, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Project, len(site.Projects))
	copy(out, site.Projects)
	return out, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (ProjectDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ProjectDetail{}, newError(ErrorInvalidInput, "empty_project_id", nil)
	}
	site, err := s.load(ctx)
	if err != nil {
		return ProjectDetail{}, err
	}
	p, ok := portfolio.FindProject(site, id)
	if !ok {
		return ProjectDetail{}, newError(ErrorNotFound, "project_not_found", nil)
	}
	return ProjectDetail{
		Project:      p,
		Hash:         portfolio.ProjectHash(p.ID),
		InquiryURL:   portfolio.InquiryURL(site.Owner.Email, p.Title),
		InquiryBlurb: site.InquiryBlurb,
	}, nil
}

// OpenFromHash resolves a "#project-<id>" fragment to its detail. Any other
// fragment, or an unknown id, is NOT_FOUND so the caller closes the modal.
func (s *ProjectService) OpenFromHash(ctx context.Context, hash string) (ProjectDetail, error) {
	id, ok := portfolio.ProjectIDFromHash(strings.TrimSpace(hash))
	if !ok {
		return ProjectDetail{}, newError(ErrorNotFound, "not_project_hash", nil)
	}
	return s.GetProject(ctx, id)
}

func (s *ProjectService) load(ctx context.Context) (domain.Site, error) {
	site, err := s.site.Site(ctx)
	if err != nil {
		return domain.Site{}, newError(ErrorInternal, "site_load_error", err)
	}
	return site, nil
}
