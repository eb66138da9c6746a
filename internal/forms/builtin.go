package forms

import (
	"sort"
	"time"
)

const (
	Contact      = "contact"
	Demo         = "demo"
	Consultation = "consultation"
	CustomDemo   = "custom-demo"
)

var (
	companySizes = []string{"1-10", "11-50", "51-200", "201-1000", "1000+"}
	timelines    = []string{"asap", "1-3-months", "3-6-months", "exploring"}
)

func nameField() Field {
	return Field{Name: "name", Label: "Full name", Kind: KindText, Required: true, MinLength: 2}
}

func emailField() Field {
	return Field{Name: "email", Label: "Work email", Kind: KindEmail, Required: true}
}

func phoneField(required bool) Field {
	return Field{Name: "phone", Label: "Phone number", Kind: KindPhone, Required: required, Placeholder: "(555) 123-4567"}
}

func companyField(required bool) Field {
	return Field{Name: "company", Label: "Company", Kind: KindText, Required: required, MinLength: 2}
}

var builtins = map[string]func() Definition{
	Contact: func() Definition {
		return Definition{
			Name:     Contact,
			Title:    "Get in touch",
			Encoding: EncodingJSON,
			Steps: []StepDef{
				{ID: 0, Name: "details", Title: "Your details", Fields: []Field{
					nameField(), emailField(), phoneField(false), companyField(false),
				}},
				{ID: 1, Name: "message", Title: "How can we help?", Fields: []Field{
					{Name: "topic", Label: "Topic", Kind: KindSelect, Required: true,
						Options: []string{"general", "automation", "voice-agents", "partnership"}},
					{Name: "message", Label: "Message", Kind: KindTextarea, Required: true, MinLength: 10},
				}},
			},
			SoftSuccess:    true,
			SuccessMessage: "Thanks for reaching out. We'll get back to you within one business day.",
		}
	},
	Demo: func() Definition {
		return Definition{
			Name:     Demo,
			Title:    "Book a demo",
			Encoding: EncodingJSON,
			Steps: []StepDef{
				{ID: 0, Name: "contact", Title: "Contact information", Fields: []Field{
					nameField(), emailField(), phoneField(true),
				}},
				{ID: 1, Name: "company", Title: "About your company", Fields: []Field{
					companyField(true),
					{Name: "companySize", Label: "Company size", Kind: KindSelect, Required: true, Options: companySizes},
					{Name: "industry", Label: "Industry", Kind: KindText},
					{Name: "website", Label: "Website", Kind: KindURL},
				}},
				{ID: 2, Name: "needs", Title: "What would you like to see?", Fields: []Field{
					{Name: "interests", Label: "Areas of interest", Kind: KindMultiSelect, Required: true, MinSelections: 1,
						Options: []string{"lead-capture", "voice-agents", "crm-automation", "scheduling", "reporting"}},
					{Name: "timeline", Label: "Timeline", Kind: KindSelect, Required: true, Options: timelines},
					{Name: "notes", Label: "Anything else?", Kind: KindTextarea},
				}},
			},
			SoftSuccess:    true,
			SuccessMessage: "Your demo request is in. Taking you back to the home page shortly.",
			Redirect:       &Redirect{URL: "/", After: 10 * time.Second},
		}
	},
	Consultation: func() Definition {
		return Definition{
			Name:     Consultation,
			Title:    "Free automation consultation",
			Encoding: EncodingJSON,
			Steps: []StepDef{
				{ID: 0, Name: "contact", Title: "Contact information", Fields: []Field{
					nameField(), emailField(), phoneField(true),
				}},
				{ID: 1, Name: "business", Title: "Your business", Fields: []Field{
					companyField(true),
					{Name: "role", Label: "Your role", Kind: KindText},
					{Name: "companySize", Label: "Company size", Kind: KindSelect, Required: true, Options: companySizes},
					{Name: "annualRevenue", Label: "Annual revenue", Kind: KindSelect,
						Options: []string{"under-1m", "1m-5m", "5m-20m", "20m-plus"}},
				}},
				{ID: 2, Name: "challenges", Title: "Current challenges", Fields: []Field{
					{Name: "challenges", Label: "Where do you lose the most time?", Kind: KindMultiSelect, Required: true, MinSelections: 1,
						Options: []string{"manual-data-entry", "lead-follow-up", "customer-support", "scheduling", "reporting", "integrations"}},
					{Name: "currentTools", Label: "Tools you use today", Kind: KindTextarea},
				}},
				{ID: 3, Name: "goals", Title: "Goals and budget", Fields: []Field{
					{Name: "goals", Label: "What does success look like?", Kind: KindTextarea, Required: true, MinLength: 10},
					{Name: "budget", Label: "Budget", Kind: KindSelect, Required: true,
						Options: []string{"under-5k", "5k-15k", "15k-50k", "50k-plus"}},
					{Name: "preferredContact", Label: "Preferred contact method", Kind: KindSelect, Required: true,
						Options: []string{"email", "phone"}},
				}},
			},
			SoftSuccess:    true,
			SuccessMessage: "Thanks! A consultant will contact you to schedule your session.",
		}
	},
	CustomDemo: func() Definition {
		return Definition{
			Name:     CustomDemo,
			Title:    "Request a custom demo",
			Encoding: EncodingMultipart,
			Steps: []StepDef{
				{ID: 0, Name: "contact", Title: "Contact information", Fields: []Field{
					nameField(), emailField(), phoneField(true), companyField(true),
				}},
				{ID: 1, Name: "use-case", Title: "Your use case", Fields: []Field{
					{Name: "useCase", Label: "Describe the workflow to automate", Kind: KindTextarea, Required: true, MinLength: 20},
					{Name: "channels", Label: "Channels", Kind: KindMultiSelect, Required: true, MinSelections: 1,
						Options: []string{"phone", "sms", "email", "web-chat"}},
				}},
				{ID: 2, Name: "materials", Title: "Supporting material", Fields: []Field{
					{Name: "brief", Label: "Project brief", Kind: KindFile},
					{Name: "website", Label: "Website", Kind: KindURL},
					{Name: "additionalInfo", Label: "Additional information", Kind: KindTextarea},
				}},
			},
			SoftSuccess:    false,
			SuccessMessage: "We received your request and will build a demo around your workflow.",
			Redirect:       &Redirect{URL: "/", After: 8 * time.Second},
		}
	},
}

// Lookup returns a fresh copy of the named built-in definition.
func Lookup(name string) (Definition, bool) {
	build, ok := builtins[name]
	if !ok {
		return Definition{}, false
	}
	return build(), true
}

// Names lists the built-in form names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
