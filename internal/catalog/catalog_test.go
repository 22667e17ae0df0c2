package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Funnels(t *testing.T) {
	c := Default()

	funnels := c.Funnels()
	require.Len(t, funnels, 2)
	assert.Equal(t, ColdProspects, funnels[0].ID)
	assert.Equal(t, ExistingClients, funnels[1].ID)
	assert.Len(t, funnels[0].Emails, 6)
	assert.Len(t, funnels[1].Emails, 4)
}

func TestDefault_ColdProspectsOrder(t *testing.T) {
	f := Default().MustFunnel(ColdProspects)

	ids := make([]string, 0, len(f.Emails))
	for _, e := range f.Emails {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"cold-1", "cold-1b", "cold-2", "cold-3", "cold-4", "cold-5"}, ids)
	assert.Equal(t, "01 - Pattern Interrupt", f.First().Name)
	assert.Equal(t, "05 - Closer", f.Emails[5].Name)
	assert.Equal(t, "Don't miss your launch offer (50% Off)", f.Emails[5].Subject)
}

func TestDefault_ExistingClientsBadge(t *testing.T) {
	f := Default().MustFunnel(ExistingClients)

	assert.Equal(t, "Existing Clients", f.Label)
	assert.Equal(t, "3 Mo Free", f.Badge)
	assert.Equal(t, "green", f.BadgeStyle)
	assert.Equal(t, "A quick upgrade for {{Garage Name}}...", f.Emails[1].Subject)
}

func TestResolvePath(t *testing.T) {
	c := Default()

	cold := c.MustFunnel(ColdProspects)
	existing := c.MustFunnel(ExistingClients)

	assert.Equal(t, "COLD PROSPECTS/01-pattern-interrupt.html", c.ResolvePath(ColdProspects, cold.First()))
	assert.Equal(t, "EXISTING CLIENTS/03-closer.html", c.ResolvePath(ExistingClients, existing.Emails[3]))
}

func TestResolvePath_UnknownFunnelPanics(t *testing.T) {
	c := Default()
	assert.Panics(t, func() {
		c.ResolvePath("newsletter", EmailRecord{File: "x.html"})
	})
}

func TestPreviewURL_EscapesFolder(t *testing.T) {
	c := Default()
	email := c.MustFunnel(ColdProspects).First()

	assert.Equal(t, "/emails/COLD%20PROSPECTS/01-pattern-interrupt.html", c.PreviewURL(ColdProspects, email))
}

func TestEmail_Lookup(t *testing.T) {
	c := Default()

	email, ok := c.Email(ExistingClients, "existing-2")
	require.True(t, ok)
	assert.Equal(t, "02 - Zero Friction", email.Name)

	_, ok = c.Email(ExistingClients, "cold-1")
	assert.False(t, ok)

	_, ok = c.Email("unknown", "cold-1")
	assert.False(t, ok)
}

func TestIndexOf(t *testing.T) {
	f := Default().MustFunnel(ColdProspects)

	assert.Equal(t, 0, f.IndexOf("cold-1"))
	assert.Equal(t, 2, f.IndexOf("cold-2"))
	assert.Equal(t, -1, f.IndexOf("existing-1"))
}

func TestFolders(t *testing.T) {
	assert.Equal(t, []string{"COLD PROSPECTS", "EXISTING CLIENTS"}, Default().Folders())
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "funnels: []"},
		{"missing folder", "funnels:\n  - id: a\n    emails:\n      - {id: x, file: x.html}"},
		{"no emails", "funnels:\n  - id: a\n    folder: A"},
		{"duplicate email", "funnels:\n  - id: a\n    folder: A\n    emails:\n      - {id: x, file: x.html}\n      - {id: x, file: y.html}"},
		{"duplicate funnel", "funnels:\n  - id: a\n    folder: A\n    emails:\n      - {id: x, file: x.html}\n  - id: a\n    folder: B\n    emails:\n      - {id: y, file: y.html}"},
		{"bad yaml", "funnels: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFunnels_ReturnsCopy(t *testing.T) {
	c := Default()
	funnels := c.Funnels()
	funnels[0].Label = "mutated"

	assert.Equal(t, "Cold Prospects", c.MustFunnel(ColdProspects).Label)
}

func TestLocate(t *testing.T) {
	c := Default()

	funnel, email, ok := c.Locate("existing-2")
	assert.True(t, ok)
	assert.Equal(t, ExistingClients, funnel)
	assert.Equal(t, "existing-2", email.ID)

	_, _, ok = c.Locate("nope")
	assert.False(t, ok)
}
