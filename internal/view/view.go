// Package view turns review session state into HTML regions.
package view

import (
	"fmt"
	"time"

	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"github.com/welldanyogia/rampup-email-reviewer/internal/review"
)

// Title is the application header
const Title = "RampUp Email Campaign"

// EmptyHint is shown when an email has no active comments and the composer is closed
const EmptyHint = "No comments yet for this email."

// TimeLayout formats comment timestamps until the browser relocalizes them
const TimeLayout = "1/2/2006, 3:04:05 PM"

// FunnelTab is one funnel button of the sidebar
type FunnelTab struct {
	ID         string
	Label      string
	Badge      string
	BadgeStyle string
	Active     bool
}

// EmailItem is one numbered entry of the email list
type EmailItem struct {
	ID      string
	Number  int
	Name    string
	Subject string
	Active  bool
}

// CommentCard is one rendered comment
type CommentCard struct {
	ID         string
	Author     string
	Text       string
	Time       string
	Epoch      int64 // milliseconds, read by the browser to show its local time
	Resolved   bool
	ResolvedBy string
}

// Page is everything the templates need to draw one session
type Page struct {
	Title        string
	Blocked      bool
	ReviewerName string
	ViewMode     string

	Tabs   []FunnelTab
	Emails []EmailItem

	Email       catalog.EmailRecord
	PreviewURL  string
	PreviewKey  string
	Counter     string
	HasPrevious bool
	HasNext     bool

	ComposerOpen bool
	Draft        string

	ActiveCount    int
	Active         []CommentCard
	ShowEmptyHint  bool
	EmptyHint      string
	DeletePrompt   string
	Resolved       []CommentCard
	ShowResolved   bool
	ResolvedToggle string
}

// Build derives the page from a session state. A nil loc formats
// timestamps in UTC.
func Build(st review.State, cat *catalog.Catalog, loc *time.Location) Page {
	if loc == nil {
		loc = time.UTC
	}

	page := Page{
		Title:        Title,
		Blocked:      st.Blocked(),
		ReviewerName: st.ReviewerName,
		ViewMode:     string(st.ViewMode),
		Email:        st.Email,
		PreviewURL:   cat.PreviewURL(st.Funnel, st.Email),
		PreviewKey:   st.Email.ID + string(st.ViewMode),
		Counter:      fmt.Sprintf("%d of %d", st.Index+1, st.Count),
		HasPrevious:  st.HasPrevious(),
		HasNext:      st.HasNext(),
		ComposerOpen: st.ComposerOpen,
		Draft:        st.Draft,
		ShowResolved: st.ShowResolved,
		EmptyHint:    EmptyHint,
		DeletePrompt: review.DeletePrompt,
	}

	for _, f := range cat.Funnels() {
		page.Tabs = append(page.Tabs, FunnelTab{
			ID:         string(f.ID),
			Label:      f.Label,
			Badge:      f.Badge,
			BadgeStyle: f.BadgeStyle,
			Active:     f.ID == st.Funnel,
		})
	}

	funnel := cat.MustFunnel(st.Funnel)
	for i, e := range funnel.Emails {
		page.Emails = append(page.Emails, EmailItem{
			ID:      e.ID,
			Number:  i + 1,
			Name:    e.Name,
			Subject: e.Subject,
			Active:  e.ID == st.Email.ID,
		})
	}

	active := st.ActiveComments()
	resolved := st.ResolvedComments()
	page.ActiveCount = len(active)
	page.ShowEmptyHint = len(active) == 0 && !st.ComposerOpen
	page.Active = cards(active, loc)
	page.Resolved = cards(resolved, loc)

	arrow := "▶"
	if st.ShowResolved {
		arrow = "▼"
	}
	page.ResolvedToggle = fmt.Sprintf("%s Resolved (%d)", arrow, len(resolved))

	return page
}

func cards(comments []models.Comment, loc *time.Location) []CommentCard {
	out := make([]CommentCard, 0, len(comments))
	for _, c := range comments {
		card := CommentCard{
			ID:       c.ID,
			Author:   c.Author,
			Text:     c.Text,
			Time:     time.UnixMilli(c.Timestamp).In(loc).Format(TimeLayout),
			Epoch:    c.Timestamp,
			Resolved: c.Resolved,
		}
		if c.ResolvedBy != nil {
			card.ResolvedBy = *c.ResolvedBy
		}
		out = append(out, card)
	}
	return out
}
