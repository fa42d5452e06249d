package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/domain"
)

func newTestProjectService(t *testing.T) *ProjectService {
	t.Helper()
	svc, err := NewProjectService(newTestSiteCache(t))
	require.NoError(t, err)
	return svc
}

func TestListProjects(t *testing.T) {
	svc := newTestProjectService(t)

	projects, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, "engine", projects[0].ID)
	require.Equal(t, "notes", projects[1].ID)

	projects[0].Title = "changed"
	again, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Analytical Engine & Co", again[0].Title)
}

func TestGetProject(t *testing.T) {
	svc := newTestProjectService(t)

	detail, err := svc.GetProject(context.Background(), "engine")
	require.NoError(t, err)
	require.Equal(t, "Analytical Engine & Co", detail.Title)
	require.Equal(t, "#project-engine", detail.Hash)
	require.Equal(t, "mailto:ada@example.com?subject=Inquiry%3A%20Analytical%20Engine%20%26%20Co", detail.InquiryURL)
	require.Equal(t, "Ask Ada.", detail.InquiryBlurb)
	require.Empty(t, detail.URL)

	detail, err = svc.GetProject(context.Background(), "notes")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/g", detail.URL)
}

func TestGetProject_Errors(t *testing.T) {
	svc := newTestProjectService(t)

	var ucErr *Error
	_, err := svc.GetProject(context.Background(), "missing")
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorNotFound, ucErr.Code)

	_, err = svc.GetProject(context.Background(), " ")
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
}

func TestOpenFromHash(t *testing.T) {
	svc := newTestProjectService(t)

	detail, err := svc.OpenFromHash(context.Background(), "#project-notes")
	require.NoError(t, err)
	require.Equal(t, "notes", detail.ID)

	var ucErr *Error
	for _, hash := range []string{"", "#contact", "#project-", "#project-unknown"} {
		_, err := svc.OpenFromHash(context.Background(), hash)
		require.ErrorAs(t, err, &ucErr, "hash=%q", hash)
		require.Equal(t, ErrorNotFound, ucErr.Code, "hash=%q", hash)
	}
}

func TestProfile(t *testing.T) {
	svc := newTestProjectService(t)
	p, err := svc.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", p.Name)
}

func TestProjectService_SiteLoadError(t *testing.T) {
	cache, err := NewSiteCache(siteLoaderFunc(func(context.Context) (domain.Site, error) {
		return domain.Site{}, errors.New("boom")
	}))
	require.NoError(t, err)
	svc, err := NewProjectService(cache)
	require.NoError(t, err)

	var ucErr *Error
	_, err = svc.ListProjects(context.Background())
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInternal, ucErr.Code)

	_, err = NewProjectService(nil)
	require.Error(t, err)
}
