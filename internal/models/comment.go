package models

// Comment is a review note attached to one campaign email.
// Timestamps are milliseconds since the Unix epoch, supplied by the client.
type Comment struct {
	ID         string  `gorm:"primaryKey;size:36" json:"id"`
	EmailID    string  `gorm:"not null;size:64;index:idx_comments_email_timestamp,priority:1" json:"emailId"`
	Text       string  `gorm:"not null" json:"text"`
	Author     string  `gorm:"not null;size:255" json:"author"`
	Timestamp  int64   `gorm:"not null;index:idx_comments_email_timestamp,priority:2,sort:desc" json:"timestamp"`
	Resolved   bool    `gorm:"not null;default:false" json:"resolved"`
	ResolvedBy *string `gorm:"size:255" json:"resolvedBy"`
	ResolvedAt *int64  `json:"resolvedAt"`
	EmailName  string  `gorm:"size:255" json:"emailName"`
}

// TableName returns the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// IsResolutionConsistent reports whether the resolver fields agree with the resolved flag
func (c *Comment) IsResolutionConsistent() bool {
	if c.Resolved {
		return c.ResolvedBy != nil && c.ResolvedAt != nil
	}
	return c.ResolvedBy == nil && c.ResolvedAt == nil
}
