// Package portfolio holds the site variants served by the chat service and
// the helpers the page uses to open project detail.
package portfolio

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"portfolio-chat/internal/domain"
)

const (
	// DefaultSiteID is the variant served when none is configured.
	DefaultSiteID = "brendan-okeefe"

	hashPrefix = "#project-"
)

//go:embed sites/*.yaml
var sitesFS embed.FS

// SiteIDs lists the embedded site variants in lexical order.
func SiteIDs() []string {
	entries, err := sitesFS.ReadDir("sites")
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(ids)
	return ids
}

// Load returns the embedded site variant with the given id.
func Load(id string) (domain.Site, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Site{}, errors.New("portfolio: site id must not be empty")
	}
	raw, err := sitesFS.ReadFile("sites/" + id + ".yaml")
	if err != nil {
		return domain.Site{}, fmt.Errorf("portfolio: unknown site %q", id)
	}
	return Parse(raw)
}

// Embedded loads a built-in site variant by id.
type Embedded string

func (e Embedded) LoadSite(_ context.Context) (domain.Site, error) {
	return Load(string(e))
}

// Parse decodes a site document. JSON documents are accepted as well since
// they are valid YAML.
func Parse(raw []byte) (domain.Site, error) {
	var site domain.Site
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&site); err != nil {
		return domain.Site{}, fmt.Errorf("portfolio: decode site: %w", err)
	}
	if err := validate(site); err != nil {
		return domain.Site{}, err
	}
	return site, nil
}

func validate(site domain.Site) error {
	if strings.TrimSpace(site.ID) == "" {
		return errors.New("portfolio: site id is required")
	}
	if strings.TrimSpace(site.Owner.Name) == "" {
		return fmt.Errorf("portfolio: site %q: owner name is required", site.ID)
	}
	seen := make(map[string]struct{}, len(site.Projects))
	for i, p := range site.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("portfolio: site %q: project %d has no id", site.ID, i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("portfolio: site %q: duplicate project id %q", site.ID, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// FindProject looks up a project by id.
func FindProject(site domain.Site, id string) (domain.Project, bool) {
	for _, p := range site.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Project{}, false
}

// ProjectHash is the URL fragment a project card navigates to.
func ProjectHash(id string) string {
	return hashPrefix + id
}

// ProjectIDFromHash extracts the project id from a "#project-<id>" fragment.
// Any other fragment means the modal should close.
func ProjectIDFromHash(hash string) (string, bool) {
	if !strings.HasPrefix(hash, hashPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(hash, hashPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// uriComponentFixer undoes the escapes QueryEscape applies to characters a
// browser leaves alone in a URI component, and spells spaces as %20.
var uriComponentFixer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// InquiryURL builds the mailto link behind a project's "Inquire Now" button.
func InquiryURL(email, projectTitle string) string {
	subject := uriComponentFixer.Replace(url.QueryEscape("Inquiry: " + projectTitle))
	return "mailto:" + email + "?subject=" + subject
}
