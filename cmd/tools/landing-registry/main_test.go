package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadcapture/pkg/registry"
)

func acme() registry.Page {
	return registry.Page{
		Slug:        "acme-dental",
		CompanyName: "Acme Dental",
		Headline:    "Never miss a new-patient call",
		Active:      true,
	}
}

// ==========================
// add / update
// ==========================

func TestAddPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "landing-pages.json")

	require.NoError(t, addPage(path, acme()))

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Pages, 1)
	assert.Equal(t, "Acme Dental", reg.Pages[0].CompanyName)

	err = addPage(path, acme())
	assert.ErrorContains(t, err, "already exists")

	bad := acme()
	bad.Slug = "Acme Dental"
	assert.ErrorContains(t, addPage(path, bad), "invalid slug")
}

func TestUpdatePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landing-pages.json")
	require.NoError(t, addPage(path, acme()))

	tests := []struct {
		name    string
		slug    string
		field   string
		value   string
		wantErr string
	}{
		{name: "headline", slug: "acme-dental", field: "headline", value: "Answer every call"},
		{name: "deactivate", slug: "acme-dental", field: "active", value: "false"},
		{name: "bad bool", slug: "acme-dental", field: "active", value: "maybe", wantErr: "invalid active value"},
		{name: "unknown field", slug: "acme-dental", field: "color", value: "red", wantErr: "unknown field"},
		{name: "unknown slug", slug: "nobody", field: "headline", value: "x", wantErr: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := updatePage(path, tt.slug, tt.field, tt.value)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	page, ok := reg.Find("acme-dental")
	require.True(t, ok)
	assert.Equal(t, "Answer every call", page.Headline)
	assert.False(t, page.Active)
}

// ==========================
// output
// ==========================

func TestListPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landing-pages.json")
	require.NoError(t, addPage(path, acme()))

	var buf bytes.Buffer
	require.NoError(t, listPages(&buf, path))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SLUG"))
	assert.Contains(t, lines[1], "acme-dental")
	assert.Contains(t, lines[1], "true")
}

func TestHelp(t *testing.T) {
	var buf bytes.Buffer
	help(&buf)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Usage: landing-registry"))
	assert.True(t, strings.HasSuffix(out, "command.\n"), "help ends with exactly one newline")
	for _, cmd := range []string{"add", "update", "validate", "list", "sync"} {
		assert.Contains(t, out, "\n  "+cmd+" ")
	}
}
