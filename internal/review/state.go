package review

import (
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
)

// ViewMode selects the preview width
type ViewMode string

const (
	ViewDesktop ViewMode = "desktop"
	ViewMobile  ViewMode = "mobile"
)

// Valid reports whether m is a known view mode
func (m ViewMode) Valid() bool {
	return m == ViewDesktop || m == ViewMobile
}

// State is a point-in-time copy of a session
type State struct {
	Funnel       catalog.FunnelID
	Email        catalog.EmailRecord
	Index        int
	Count        int
	ViewMode     ViewMode
	ReviewerName string
	Comments     []models.Comment
	Draft        string
	// DraftRev counts draft rewrites made by the session itself. Typing
	// through SetDraft leaves it unchanged.
	DraftRev     uint64
	ComposerOpen bool
	ShowResolved bool
	Notice       string
}

// Blocked reports whether the reviewer still has to enter a name
func (s State) Blocked() bool {
	return s.ReviewerName == ""
}

// HasPrevious reports whether Retreat would move
func (s State) HasPrevious() bool {
	return s.Index > 0
}

// HasNext reports whether Advance would move
func (s State) HasNext() bool {
	return s.Index >= 0 && s.Index < s.Count-1
}

// ActiveComments returns the unresolved comments, newest first
func (s State) ActiveComments() []models.Comment {
	return filterComments(s.Comments, false)
}

// ResolvedComments returns the resolved comments, newest first
func (s State) ResolvedComments() []models.Comment {
	return filterComments(s.Comments, true)
}

func filterComments(comments []models.Comment, resolved bool) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		if c.Resolved == resolved {
			out = append(out, c)
		}
	}
	return out
}
