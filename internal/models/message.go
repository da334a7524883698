package models

import (
	"time"
)

// Folder is the only mailbox folder synchronized by this system.
const Folder = "INBOX"

// Message is a stored email, either synchronized from the mailbox or
// written by the contact form.
type Message struct {
	ID             string    `gorm:"primaryKey;size:100" json:"id"`
	UID            uint32    `gorm:"index" json:"uid,omitempty"`
	Folder         string    `gorm:"size:100" json:"folder,omitempty"`
	FromName       string    `gorm:"size:255" json:"fromName"`
	FromEmail      string    `gorm:"size:255" json:"fromEmail"`
	Subject        string    `json:"subject"`
	Snippet        string    `gorm:"size:255" json:"snippet,omitempty"`
	TextBody       string    `json:"textBody,omitempty"`
	HTMLBody       string    `json:"htmlBody,omitempty"`
	ReceivedUTC    time.Time `gorm:"not null;index" json:"receivedUtc"`
	ReceivedLocal  string    `gorm:"size:32" json:"receivedLocal"`
	Unread         bool      `gorm:"not null" json:"unread"`
	HasAttachments bool      `gorm:"not null" json:"hasAttachments"`
	Labels         []string  `gorm:"serializer:json" json:"labels"`
	BodyFetched    bool      `gorm:"not null" json:"-"`

	IsContactForm  bool    `gorm:"not null;index" json:"isContactForm"`
	Company        *string `gorm:"size:100" json:"company,omitempty"`
	Phone          *string `gorm:"size:20" json:"phone,omitempty"`
	TaxID          *string `gorm:"size:20" json:"taxId,omitempty"`
	ContactMessage *string `gorm:"size:1000" json:"contactMessage,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`

	// Relationships
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// Summary returns the lightweight view used for listings and push events.
func (m *Message) Summary() EmailSummary {
	return EmailSummary{
		ID:             m.ID,
		Subject:        m.Subject,
		FromName:       m.FromName,
		FromEmail:      m.FromEmail,
		ReceivedLocal:  m.ReceivedLocal,
		Snippet:        m.Snippet,
		Unread:         m.Unread,
		HasAttachments: m.HasAttachments,
		IsContactForm:  m.IsContactForm,
	}
}

// Detail returns the full view served by the detail endpoint.
func (m *Message) Detail() EmailDetail {
	d := EmailDetail{
		EmailSummary:   m.Summary(),
		TextBody:       m.TextBody,
		HTMLBody:       m.HTMLBody,
		ReceivedUTC:    m.ReceivedUTC,
		Labels:         m.Labels,
		Company:        m.Company,
		Phone:          m.Phone,
		TaxID:          m.TaxID,
		ContactMessage: m.ContactMessage,
		Attachments:    make([]AttachmentInfo, 0, len(m.Attachments)),
	}
	if d.Labels == nil {
		d.Labels = []string{}
	}
	for _, a := range m.Attachments {
		d.Attachments = append(d.Attachments, AttachmentInfo{
			FileName:    a.FileName,
			SizeBytes:   a.SizeBytes,
			ContentType: a.ContentType,
		})
	}
	return d
}

// EmailSummary is the wire shape for list rows and the NewEmails event.
type EmailSummary struct {
	ID             string `json:"id"`
	Subject        string `json:"subject"`
	FromName       string `json:"fromName"`
	FromEmail      string `json:"fromEmail"`
	ReceivedLocal  string `json:"receivedLocal"`
	Snippet        string `json:"snippet,omitempty"`
	Unread         bool   `json:"unread"`
	HasAttachments bool   `json:"hasAttachments"`
	IsContactForm  bool   `json:"isContactForm"`
}

// EmailDetail is the wire shape for a single message.
type EmailDetail struct {
	EmailSummary
	TextBody       string           `json:"textBody"`
	HTMLBody       string           `json:"htmlBody"`
	ReceivedUTC    time.Time        `json:"receivedUtc"`
	Labels         []string         `json:"labels"`
	Attachments    []AttachmentInfo `json:"attachments"`
	Company        *string          `json:"company,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	TaxID          *string          `json:"taxId,omitempty"`
	ContactMessage *string          `json:"contactMessage,omitempty"`
}

// SourceCounts holds counters for one message origin.
type SourceCounts struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Today  int64 `json:"today"`
}

// EmailStats aggregates counts for the dashboard.
type EmailStats struct {
	Total        int64        `json:"total"`
	Unread       int64        `json:"unread"`
	Today        int64        `json:"today"`
	ThisWeek     int64        `json:"thisWeek"`
	ContactForms SourceCounts `json:"contactForms"`
	Mailbox      SourceCounts `json:"mailbox"`
}
