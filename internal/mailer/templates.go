package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Contact is the submitter data rendered into contact form mails.
type Contact struct {
	ReferenceID string
	FullName    string
	Email       string
	Phone       string
	Company     string
	GSTNumber   string
	Subject     string
	Message     string
	ReceivedAt  time.Time
}

var subjectDisplay = map[string]string{
	"product-inquiry":   "Product Inquiry",
	"bulk-order":        "Bulk Order",
	"technical-support": "Technical Support",
	"partnership":       "Partnership Opportunity",
	"warranty":          "Warranty Claim",
	"other":             "Other",
}

// SubjectDisplay maps the contact form's subject options to readable titles.
// Free-text subjects are returned unchanged.
func SubjectDisplay(subject string) string {
	if display, ok := subjectDisplay[strings.ToLower(strings.TrimSpace(subject))]; ok {
		return display
	}
	return subject
}

const receivedLayout = "Monday, January 02, 2006 at 03:04 PM"

var funcs = template.FuncMap{
	"subject": SubjectDisplay,
	"lines": func(s string) []string {
		return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	},
	"received": func(t time.Time) string { return t.Format(receivedLayout) },
}

var adminTemplate = template.Must(template.New("admin").Funcs(funcs).Parse(`<html><body style="font-family: Arial, sans-serif;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
<h2>New Contact Form Submission</h2>
<table style="width: 100%; border-collapse: collapse;">
<tr><td><strong>Reference:</strong></td><td>{{.ReferenceID}}</td></tr>
<tr><td><strong>Name:</strong></td><td>{{.FullName}}</td></tr>
<tr><td><strong>Email:</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
<tr><td><strong>Phone:</strong></td><td><a href="tel:{{.Phone}}">{{.Phone}}</a></td></tr>
{{- if .Company}}
<tr><td><strong>Company:</strong></td><td>{{.Company}}</td></tr>
{{- end}}
{{- if .GSTNumber}}
<tr><td><strong>GST Number:</strong></td><td>{{.GSTNumber}}</td></tr>
{{- end}}
<tr><td><strong>Subject:</strong></td><td>{{subject .Subject}}</td></tr>
</table>
<h3>Message</h3>
<p>{{range $i, $line := lines .Message}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
<p style="font-size: 12px;">Received on: {{received .ReceivedAt}}</p>
</div>
</body></html>`))

var confirmationTemplate = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<html><body style="font-family: Arial, sans-serif;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
<h3>Dear {{.Contact.FullName}},</h3>
<p>Thank you for contacting {{.Business}}! We have received your inquiry and our team will get back to you within 24 hours.</p>
<h4>Your Inquiry Summary:</h4>
<p><strong>Reference:</strong> {{.Contact.ReferenceID}}</p>
<p><strong>Subject:</strong> {{subject .Contact.Subject}}</p>
<p><strong>Submitted on:</strong> {{received .Contact.ReceivedAt}}</p>
</div>
</body></html>`))

// AdminNotification builds the mail sent to the administrator for a new
// submission. Replies go to the submitter.
func AdminNotification(adminEmail string, c Contact) (Mail, error) {
	var buf bytes.Buffer
	if err := adminTemplate.Execute(&buf, c); err != nil {
		return Mail{}, fmt.Errorf("failed to render admin notification: %w", err)
	}

	text := fmt.Sprintf("New contact form submission %s\n\nName: %s\nEmail: %s\nPhone: %s\nCompany: %s\nGST Number: %s\nSubject: %s\n\n%s\n",
		c.ReferenceID, c.FullName, c.Email, c.Phone, c.Company, c.GSTNumber, SubjectDisplay(c.Subject), c.Message)

	return Mail{
		ToEmail:      adminEmail,
		ReplyToName:  c.FullName,
		ReplyToEmail: c.Email,
		Subject:      "New Contact Form Submission - " + c.Subject,
		Text:         text,
		HTML:         buf.String(),
	}, nil
}

// Confirmation builds the acknowledgement sent to the submitter.
func Confirmation(business string, c Contact) (Mail, error) {
	var buf bytes.Buffer
	data := struct {
		Business string
		Contact  Contact
	}{business, c}
	if err := confirmationTemplate.Execute(&buf, data); err != nil {
		return Mail{}, fmt.Errorf("failed to render confirmation: %w", err)
	}

	text := fmt.Sprintf("Dear %s,\n\nThank you for contacting %s. We have received your inquiry (%s) and will get back to you within 24 hours.\n",
		c.FullName, business, c.ReferenceID)

	return Mail{
		ToName:  c.FullName,
		ToEmail: c.Email,
		Subject: "Thank you for contacting " + business,
		Text:    text,
		HTML:    buf.String(),
	}, nil
}
