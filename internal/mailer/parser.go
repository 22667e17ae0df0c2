package mailer

import (
	"io"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

// ParsedMessage is a received message reduced to what a reviewer needs
type ParsedMessage struct {
	SenderEmail string `json:"sender_email"`
	SenderName  string `json:"sender_name,omitempty"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Snippet     string `json:"snippet"`
	HTML        string `json:"html,omitempty"`
}

var (
	fromHeaderRegex  = regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	scriptStyleRegex = regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</(script|style)>`)
	tagRegex         = regexp.MustCompile(`<[^>]*>`)
)

// ParseMessage parses a MIME message
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedMessage{
		To:      env.GetHeader("To"),
		Subject: env.GetHeader("Subject"),
		HTML:    env.HTML,
	}
	parsed.SenderName, parsed.SenderEmail = parseFromHeader(env.GetHeader("From"))
	parsed.Snippet = generateSnippet(env.Text, env.HTML)

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	// Pattern: "Name" <email@example.com> or Name <email@example.com>
	matches := fromHeaderRegex.FindStringSubmatch(from)
	if len(matches) >= 3 {
		name = strings.Trim(strings.TrimSpace(matches[1]), `"`)
		email = strings.TrimSpace(matches[2])
	} else {
		email = from
	}

	return name, email
}

// generateSnippet creates a preview snippet from the message body
func generateSnippet(bodyText, bodyHTML string) string {
	text := bodyText
	if text == "" && bodyHTML != "" {
		text = stripHTMLTags(bodyHTML)
	}

	text = strings.Join(strings.Fields(text), " ")

	// Truncate to 255 characters
	if runes := []rune(text); len(runes) > 255 {
		text = string(runes[:252]) + "..."
	}

	return text
}

// stripHTMLTags removes HTML tags from a string
func stripHTMLTags(html string) string {
	html = scriptStyleRegex.ReplaceAllString(html, "")
	html = tagRegex.ReplaceAllString(html, " ")

	// Decode common HTML entities
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return replacer.Replace(html)
}
