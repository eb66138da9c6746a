// pkg/registry/schema.go
package registry

// LandingRegistry is the on-disk catalogue of per-company landing pages.
type LandingRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Pages       []Page `json:"pages"`
}

type Page struct {
	Slug        string `json:"slug"`
	CompanyName string `json:"companyName"`
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CTALabel    string `json:"ctaLabel,omitempty"`
	CTATarget   string `json:"ctaTarget,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	Active      bool   `json:"active"`
}
