package models

// LandingPage is the content behind a per-company /:slug page.
type LandingPage struct {
	Slug        string `json:"slug" db:"slug"`
	CompanyName string `json:"companyName" db:"company_name"`
	Headline    string `json:"headline" db:"headline"`
	Subheadline string `json:"subheadline,omitempty" db:"subheadline"`
	Industry    string `json:"industry,omitempty" db:"industry"`
	CTALabel    string `json:"ctaLabel,omitempty" db:"cta_label"`
	CTATarget   string `json:"ctaTarget,omitempty" db:"cta_target"`
	LogoURL     string `json:"logoUrl,omitempty" db:"logo_url"`
}
