// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const MaxSlugLength = 64

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s can be used as a landing page path.
func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

func New() *LandingRegistry {
	return &LandingRegistry{
		Version:     "1.0.0",
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Pages:       []Page{},
	}
}

func LoadRegistry(path string) (*LandingRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg LandingRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes reg as indented JSON, creating the directory if needed.
func SaveRegistry(reg *LandingRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the page with slug, active or not.
func (r *LandingRegistry) Find(slug string) (Page, bool) {
	for _, p := range r.Pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}

// Upsert replaces the page with the same slug or appends it. It reports
// whether the page was new.
func (r *LandingRegistry) Upsert(page Page) bool {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	for i := range r.Pages {
		if r.Pages[i].Slug == page.Slug {
			r.Pages[i] = page
			return false
		}
	}
	r.Pages = append(r.Pages, page)
	return true
}

func (r *LandingRegistry) Validate() error {
	if len(r.Pages) == 0 {
		return fmt.Errorf("registry contains no pages")
	}

	slugs := make(map[string]bool, len(r.Pages))
	for _, p := range r.Pages {
		if p.Slug == "" {
			return fmt.Errorf("page missing required field: slug")
		}
		if !ValidSlug(p.Slug) {
			return fmt.Errorf("page %s has an invalid slug", p.Slug)
		}
		if slugs[p.Slug] {
			return fmt.Errorf("duplicate page slug: %s", p.Slug)
		}
		slugs[p.Slug] = true

		if p.Headline == "" {
			return fmt.Errorf("page %s missing required field: headline", p.Slug)
		}
	}
	return nil
}
