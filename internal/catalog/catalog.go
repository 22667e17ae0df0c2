// Package catalog holds the fixed list of campaign emails under review.
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FunnelID identifies a campaign funnel
type FunnelID string

const (
	ColdProspects   FunnelID = "coldProspects"
	ExistingClients FunnelID = "existingClients"
)

// DefaultFunnel is the funnel a new review session starts on
const DefaultFunnel = ColdProspects

// PreviewPrefix is the URL prefix email assets are served under
const PreviewPrefix = "/emails/"

// EmailRecord describes one email template in a funnel
type EmailRecord struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	File    string `yaml:"file" json:"file"`
	Subject string `yaml:"subject" json:"subject"`
}

// Funnel is a named, ordered sequence of emails
type Funnel struct {
	ID         FunnelID      `yaml:"id" json:"id"`
	Label      string        `yaml:"label" json:"label"`
	Badge      string        `yaml:"badge" json:"badge"`
	BadgeStyle string        `yaml:"badge_style" json:"badge_style,omitempty"`
	Folder     string        `yaml:"folder" json:"folder"`
	Emails     []EmailRecord `yaml:"emails" json:"emails"`
}

// First returns the first email of the funnel
func (f Funnel) First() EmailRecord {
	return f.Emails[0]
}

// IndexOf returns the position of the email with the given ID, or -1
func (f Funnel) IndexOf(emailID string) int {
	for i, e := range f.Emails {
		if e.ID == emailID {
			return i
		}
	}
	return -1
}

// Catalog is the immutable set of funnels
type Catalog struct {
	funnels []Funnel
	byID    map[FunnelID]int
}

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded definition is invalid.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("catalog: invalid embedded catalog: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Parse builds a catalog from its YAML definition
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Funnels []Funnel `yaml:"funnels"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(doc.Funnels) == 0 {
		return nil, fmt.Errorf("catalog has no funnels")
	}

	c := &Catalog{
		funnels: doc.Funnels,
		byID:    make(map[FunnelID]int, len(doc.Funnels)),
	}
	for i, f := range doc.Funnels {
		if f.ID == "" || f.Folder == "" {
			return nil, fmt.Errorf("funnel %d: id and folder are required", i)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate funnel %q", f.ID)
		}
		if len(f.Emails) == 0 {
			return nil, fmt.Errorf("funnel %q has no emails", f.ID)
		}
		seen := make(map[string]bool, len(f.Emails))
		for _, e := range f.Emails {
			if e.ID == "" || e.File == "" {
				return nil, fmt.Errorf("funnel %q: email id and file are required", f.ID)
			}
			if seen[e.ID] {
				return nil, fmt.Errorf("funnel %q: duplicate email %q", f.ID, e.ID)
			}
			seen[e.ID] = true
		}
		c.byID[f.ID] = i
	}
	return c, nil
}

// Funnels returns all funnels in display order
func (c *Catalog) Funnels() []Funnel {
	out := make([]Funnel, len(c.funnels))
	copy(out, c.funnels)
	return out
}

// Funnel looks up a funnel by ID
func (c *Catalog) Funnel(id FunnelID) (Funnel, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Funnel{}, false
	}
	return c.funnels[i], true
}

// MustFunnel looks up a funnel that is known to exist
func (c *Catalog) MustFunnel(id FunnelID) Funnel {
	f, ok := c.Funnel(id)
	if !ok {
		panic(fmt.Sprintf("catalog: unknown funnel %q", id))
	}
	return f
}

// Email finds an email inside a funnel
func (c *Catalog) Email(funnel FunnelID, emailID string) (EmailRecord, bool) {
	f, ok := c.Funnel(funnel)
	if !ok {
		return EmailRecord{}, false
	}
	i := f.IndexOf(emailID)
	if i < 0 {
		return EmailRecord{}, false
	}
	return f.Emails[i], true
}

// Locate finds an email by ID in any funnel
func (c *Catalog) Locate(emailID string) (FunnelID, EmailRecord, bool) {
	for _, f := range c.funnels {
		if i := f.IndexOf(emailID); i >= 0 {
			return f.ID, f.Emails[i], true
		}
	}
	return "", EmailRecord{}, false
}

// ResolvePath returns the asset path of an email relative to the public directory
func (c *Catalog) ResolvePath(funnel FunnelID, email EmailRecord) string {
	return c.MustFunnel(funnel).Folder + "/" + email.File
}

// PreviewURL returns the URL the preview frame loads for an email
func (c *Catalog) PreviewURL(funnel FunnelID, email EmailRecord) string {
	parts := strings.Split(c.ResolvePath(funnel, email), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return PreviewPrefix + strings.Join(parts, "/")
}

// Folders returns the asset folder of every funnel
func (c *Catalog) Folders() []string {
	out := make([]string, 0, len(c.funnels))
	for _, f := range c.funnels {
		out = append(out, f.Folder)
	}
	return out
}
