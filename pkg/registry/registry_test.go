package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"acme", true},
		{"acme-dental-2", true},
		{"Acme", false},
		{"acme--dental", false},
		{"-acme", false},
		{"acme_dental", false},
		{"", false},
		{"a123456789-123456789-123456789-123456789-123456789-123456789-1234", false},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSlug(tt.slug))
		})
	}
}

func TestSaveAndLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "landing-pages.json")

	reg := New()
	assert.True(t, reg.Upsert(Page{Slug: "acme", CompanyName: "Acme", Headline: "Hi Acme", Active: true}))
	require.NoError(t, SaveRegistry(reg, path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	page, ok := loaded.Find("acme")
	require.True(t, ok)
	assert.Equal(t, "Hi Acme", page.Headline)
	assert.True(t, page.Active)

	_, ok = loaded.Find("globex")
	assert.False(t, ok)
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	reg := New()
	reg.Upsert(Page{Slug: "acme", Headline: "old"})
	assert.False(t, reg.Upsert(Page{Slug: "acme", Headline: "new"}))
	require.Len(t, reg.Pages, 1)
	assert.Equal(t, "new", reg.Pages[0].Headline)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		pages   []Page
		wantErr string
	}{
		{"empty", nil, "no pages"},
		{"bad slug", []Page{{Slug: "Acme", Headline: "x"}}, "invalid slug"},
		{"duplicate", []Page{{Slug: "acme", Headline: "x"}, {Slug: "acme", Headline: "y"}}, "duplicate"},
		{"missing headline", []Page{{Slug: "acme"}}, "headline"},
		{"ok", []Page{{Slug: "acme", Headline: "x"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&LandingRegistry{Pages: tt.pages}).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
