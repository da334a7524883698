package models

// DefaultContactSubject is used when a submission leaves the subject empty.
const DefaultContactSubject = "General Inquiry"

// ContactForm is a website contact form submission. It binds from both
// form-encoded and JSON bodies.
type ContactForm struct {
	FullName    string `json:"fullName" form:"FullName"`
	PhoneNumber string `json:"phoneNumber" form:"PhoneNumber"`
	Email       string `json:"email" form:"Email"`
	GSTNumber   string `json:"gstNumber" form:"GSTNumber"`
	Company     string `json:"company" form:"Company"`
	Subject     string `json:"subject" form:"Subject"`
	Message     string `json:"message" form:"Message"`
}
