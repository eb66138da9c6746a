package leads

import (
	"strings"

	"leadcapture/internal/forms"
	"leadcapture/internal/phone"
)

// Contact is the person behind a submission.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string // E.164 when the submitted number normalises
	Company   string
	Message   string
}

// FullName joins first and last name.
func (c Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ContactFrom extracts the contact fields every built-in form shares.
func ContactFrom(sub *forms.Submission) Contact {
	v := sub.Values
	c := Contact{
		FirstName: v["firstName"],
		LastName:  v["lastName"],
		Email:     strings.ToLower(strings.TrimSpace(v["email"])),
		Company:   v["company"],
		Message:   firstNonEmpty(v["message"], v["goals"], v["useCase"], v["notes"]),
	}
	if c.FirstName == "" && c.LastName == "" {
		c.FirstName, c.LastName = splitName(v["name"])
	}
	if raw := v["phone"]; raw != "" {
		if e164, err := phone.Normalize(raw); err == nil {
			c.Phone = e164
		} else {
			c.Phone = raw
		}
	}
	return c
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
