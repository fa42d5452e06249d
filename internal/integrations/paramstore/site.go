package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/portfolio"
)

// SiteSource loads a site document (YAML or JSON) from "<prefix>/site", so
// a deployment can serve a portfolio that is not built into the binary.
type SiteSource struct {
	getter Getter
	name   string
}

func NewSiteSource(getter Getter, paramPrefix string) (*SiteSource, error) {
	if getter == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	return &SiteSource{getter: getter, name: paramPrefix + "/site"}, nil
}

func (s *SiteSource) LoadSite(ctx context.Context) (domain.Site, error) {
	raw, err := s.getter.GetParameter(ctx, s.name)
	if err != nil {
		return domain.Site{}, err
	}
	site, err := portfolio.Parse([]byte(raw))
	if err != nil {
		return domain.Site{}, fmt.Errorf("paramstore: site document %q: %w", s.name, err)
	}
	return site, nil
}
