package models

// Attachment represents a file attached to an email message
type Attachment struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	MessageID   string `gorm:"not null;index;size:100" json:"-"`
	PartID      string `gorm:"size:50" json:"partId,omitempty"`
	FileName    string `gorm:"size:255" json:"fileName"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `gorm:"size:100" json:"contentType"`
	CachedPath  string `gorm:"size:500" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}

// AttachmentInfo is the public view of an attachment.
type AttachmentInfo struct {
	FileName    string `json:"fileName"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType"`
}
