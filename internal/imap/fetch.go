package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/models"
)

// gmailLabelsItem is the Gmail extension fetch item carrying a message's labels.
const gmailLabelsItem imap.FetchItem = "X-GM-LABELS"

// AttachmentContent is a fully decoded attachment.
type AttachmentContent struct {
	FileName    string
	ContentType string
	Data        []byte
}

// FetchRecent returns summaries for the most recent limit messages by uid,
// skipping messages flagged as deleted. When label is non-empty only messages
// carrying that label (case-insensitive) are returned. Bodies are not fetched.
func (c *Client) FetchRecent(ctx context.Context, limit int, label string) ([]models.Message, error) {
	var result []models.Message

	err := c.withSession(ctx, "fetch_recent", func(cl *client.Client) error {
		criteria := imap.NewSearchCriteria()
		criteria.WithoutFlags = []string{imap.DeletedFlag}

		uids, err := cl.UidSearch(criteria)
		if err != nil {
			return fmt.Errorf("%w: search: %v", apperrors.ErrMailboxUnavailable, err)
		}
		uids = mostRecent(uids, limit)
		if len(uids) == 0 {
			return nil
		}

		items := []imap.FetchItem{
			imap.FetchUid,
			imap.FetchEnvelope,
			imap.FetchFlags,
			imap.FetchInternalDate,
			imap.FetchBodyStructure,
		}
		if c.cfg.GmailLabels {
			items = append(items, gmailLabelsItem)
		}

		msgs, err := fetchMessages(cl, uids, items)
		if err != nil {
			return err
		}

		for _, msg := range msgs {
			summary := c.toSummary(msg)
			if label != "" && !hasLabel(summary.Labels, label) {
				continue
			}
			result = append(result, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched recent messages",
		slog.Int("count", len(result)),
		slog.Int("limit", limit),
		slog.String("label", label))
	return result, nil
}

// FetchDetail fetches the full body of one message. The message is read with
// BODY.PEEK so its \Seen flag on the server is left untouched.
func (c *Client) FetchDetail(ctx context.Context, id string) (*models.Message, error) {
	uid, _, err := models.ParseMessageID(id)
	if err != nil {
		return nil, err
	}

	var message *models.Message
	err = c.withSession(ctx, "fetch_detail", func(cl *client.Client) error {
		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{
			imap.FetchUid,
			imap.FetchEnvelope,
			imap.FetchFlags,
			imap.FetchInternalDate,
			section.FetchItem(),
		}
		if c.cfg.GmailLabels {
			items = append(items, gmailLabelsItem)
		}

		msg, err := fetchOne(cl, uid, items)
		if err != nil {
			return err
		}

		body := msg.GetBody(section)
		if body == nil {
			return fmt.Errorf("%w: server returned no body for %s", apperrors.ErrMailboxUnavailable, id)
		}
		parsed, err := ParseMessage(body)
		if err != nil {
			return err
		}

		summary := c.toSummary(msg)
		summary.TextBody = parsed.TextBody
		summary.HTMLBody = parsed.HTMLBody
		summary.Snippet = parsed.Snippet
		summary.BodyFetched = true
		if summary.FromEmail == "" {
			summary.FromName = parsed.FromName
			summary.FromEmail = parsed.FromEmail
		}

		summary.Attachments = make([]models.Attachment, 0, len(parsed.Attachments))
		for _, a := range parsed.Attachments {
			summary.Attachments = append(summary.Attachments, models.Attachment{
				MessageID:   summary.ID,
				PartID:      a.PartID,
				FileName:    a.FileName,
				SizeBytes:   int64(len(a.Content)),
				ContentType: a.ContentType,
			})
		}
		summary.HasAttachments = len(summary.Attachments) > 0

		message = &summary
		return nil
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// FetchAttachment downloads and decodes the first attachment whose file name
// matches fileName case-insensitively.
func (c *Client) FetchAttachment(ctx context.Context, id, fileName string) (*AttachmentContent, error) {
	uid, _, err := models.ParseMessageID(id)
	if err != nil {
		return nil, err
	}

	var content *AttachmentContent
	err = c.withSession(ctx, "fetch_attachment", func(cl *client.Client) error {
		section := &imap.BodySectionName{Peek: true}
		msg, err := fetchOne(cl, uid, []imap.FetchItem{imap.FetchUid, section.FetchItem()})
		if err != nil {
			return err
		}

		body := msg.GetBody(section)
		if body == nil {
			return fmt.Errorf("%w: server returned no body for %s", apperrors.ErrMailboxUnavailable, id)
		}
		parsed, err := ParseMessage(body)
		if err != nil {
			return err
		}

		for _, a := range parsed.Attachments {
			if strings.EqualFold(a.FileName, fileName) {
				content = &AttachmentContent{
					FileName:    a.FileName,
					ContentType: a.ContentType,
					Data:        a.Content,
				}
				return nil
			}
		}
		return fmt.Errorf("%w: %q in %s", apperrors.ErrAttachmentNotFound, fileName, id)
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// toSummary maps fetched metadata onto a message without body content.
func (c *Client) toSummary(msg *imap.Message) models.Message {
	received := msg.InternalDate
	if received.IsZero() {
		received = time.Now()
	}
	received = received.UTC()

	m := models.Message{
		ID:            models.MessageID(msg.Uid, models.Folder),
		UID:           msg.Uid,
		Folder:        models.Folder,
		Subject:       noSubject,
		ReceivedUTC:   received,
		ReceivedLocal: models.FormatLocal(received, c.cfg.Location),
		Unread:        !hasFlag(msg.Flags, imap.SeenFlag),
	}

	if env := msg.Envelope; env != nil {
		if env.Subject != "" {
			m.Subject = env.Subject
		}
		if len(env.From) > 0 && env.From[0] != nil {
			m.FromName = env.From[0].PersonalName
			m.FromEmail = env.From[0].Address()
		}
	}

	if c.cfg.GmailLabels {
		m.Labels = gmailLabels(msg.Items[gmailLabelsItem])
	} else {
		m.Labels = keywordLabels(msg.Flags)
	}

	if msg.BodyStructure != nil {
		m.Attachments = attachmentsFromStructure(m.ID, msg.BodyStructure)
		m.HasAttachments = len(m.Attachments) > 0
	}
	return m
}

// attachmentsFromStructure lists attachment parts. Sizes are the encoded
// part sizes reported by the server.
func attachmentsFromStructure(messageID string, bs *imap.BodyStructure) []models.Attachment {
	var out []models.Attachment
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if strings.EqualFold(part.MIMEType, "multipart") {
			return true
		}
		name, _ := part.Filename()
		isAttachment := strings.EqualFold(part.Disposition, "attachment")
		if !isAttachment && name == "" {
			return true
		}
		if name == "" {
			name = defaultFileName
		}

		contentType := defaultContentType
		if part.MIMEType != "" && part.MIMESubType != "" {
			contentType = strings.ToLower(part.MIMEType + "/" + part.MIMESubType)
		}

		out = append(out, models.Attachment{
			MessageID:   messageID,
			PartID:      partID(path),
			FileName:    name,
			SizeBytes:   int64(part.Size),
			ContentType: contentType,
		})
		return true
	})
	return out
}

func partID(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// mostRecent returns at most limit uids, highest first.
func mostRecent(uids []uint32, limit int) []uint32 {
	sorted := append([]uint32(nil), uids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func fetchMessages(cl *client.Client, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- cl.UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", apperrors.ErrMailboxUnavailable, err)
	}
	return result, nil
}

func fetchOne(cl *client.Client, uid uint32, items []imap.FetchItem) (*imap.Message, error) {
	msgs, err := fetchMessages(cl, []uint32{uid}, items)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg.Uid == uid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrMessageNotFound, models.MessageID(uid, models.Folder))
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}

// keywordLabels keeps user keywords and drops system flags such as \Seen.
func keywordLabels(flags []string) []string {
	labels := []string{}
	for _, f := range flags {
		if f == "" || strings.HasPrefix(f, `\`) {
			continue
		}
		labels = append(labels, f)
	}
	return labels
}

// gmailLabels decodes an X-GM-LABELS list. Entries arrive as atoms, quoted
// strings or literals depending on their content.
func gmailLabels(raw interface{}) []string {
	labels := []string{}
	fields, ok := raw.([]interface{})
	if !ok {
		return labels
	}
	for _, f := range fields {
		var s string
		switch v := f.(type) {
		case string:
			s = v
		case imap.RawString:
			s = string(v)
		case imap.Literal:
			b, err := io.ReadAll(v)
			if err != nil {
				continue
			}
			s = string(b)
		case []byte:
			s = string(bytes.TrimSpace(v))
		default:
			continue
		}
		if s != "" {
			labels = append(labels, s)
		}
	}
	return labels
}
