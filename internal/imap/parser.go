package imap

import (
	"fmt"
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

const (
	// SnippetLength bounds the preview text, ellipsis included.
	SnippetLength = 160

	defaultFileName    = "attachment"
	defaultContentType = "application/octet-stream"
	noSubject          = "(No subject)"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
)

// ParsedMessage is the decoded content of a full RFC 822 message.
type ParsedMessage struct {
	FromName    string
	FromEmail   string
	Subject     string
	TextBody    string
	HTMLBody    string
	Snippet     string
	Attachments []ParsedAttachment
}

// ParsedAttachment is one decoded attachment.
type ParsedAttachment struct {
	PartID      string
	FileName    string
	ContentType string
	Content     []byte
}

// ParseMessage decodes a raw message with enmime. Attachments and named
// inline parts are both returned.
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parsed := &ParsedMessage{
		Subject:  env.GetHeader("Subject"),
		TextBody: env.Text,
		HTMLBody: env.HTML,
	}
	if parsed.Subject == "" {
		parsed.Subject = noSubject
	}

	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		parsed.FromName = from[0].Name
		parsed.FromEmail = from[0].Address
	}

	parsed.Snippet = GenerateSnippet(parsed.TextBody, parsed.HTMLBody)

	for _, part := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, toParsedAttachment(part))
	}
	for _, part := range env.Inlines {
		if part.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, toParsedAttachment(part))
		}
	}

	return parsed, nil
}

func toParsedAttachment(part *enmime.Part) ParsedAttachment {
	name := part.FileName
	if name == "" {
		name = defaultFileName
	}
	contentType := part.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return ParsedAttachment{
		PartID:      part.PartID,
		FileName:    decodeFileName(name),
		ContentType: contentType,
		Content:     part.Content,
	}
}

// decodeFileName decodes RFC 2047 encoded words left in a file name.
func decodeFileName(name string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(name)
	if err != nil {
		return name
	}
	return decoded
}

// GenerateSnippet builds a single-line preview from the text body, falling
// back to the HTML body with tags stripped.
func GenerateSnippet(textBody, htmlBody string) string {
	text := textBody
	if strings.TrimSpace(text) == "" {
		text = StripHTMLTags(htmlBody)
	}

	// Collapse newlines and runs of whitespace
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > SnippetLength {
		return string(runes[:SnippetLength-3]) + "..."
	}
	return text
}

// StripHTMLTags removes HTML tags from a string
func StripHTMLTags(html string) string {
	// Remove script and style elements
	html = scriptStyleRe.ReplaceAllString(html, "")

	// Remove HTML tags
	html = tagRe.ReplaceAllString(html, " ")

	// Decode common HTML entities
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")
	html = strings.ReplaceAll(html, "&amp;", "&")

	return html
}
