package models

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/TridentTech8969/ASA/internal/errors"
)

// ErrInvalidMessageID is returned when an id does not carry a numeric mailbox uid.
var ErrInvalidMessageID = apperrors.ErrInvalidMessageID

const (
	contactFormPrefix = "CF-"
	// LocalTimeLayout is the display format for ReceivedLocal.
	LocalTimeLayout = "02-01-2006 15:04"
)

// MessageID builds the store identity of a mailbox message, e.g. "1032@INBOX".
func MessageID(uid uint32, folder string) string {
	return fmt.Sprintf("%d@%s", uid, folder)
}

// ParseMessageID splits a mailbox identity into its uid and folder.
// Contact form references and malformed ids return ErrInvalidMessageID.
func ParseMessageID(id string) (uint32, string, error) {
	left, folder, ok := strings.Cut(id, "@")
	if !ok || left == "" || folder == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	uid, err := strconv.ParseUint(left, 10, 32)
	if err != nil || uid == 0 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidMessageID, id)
	}
	return uint32(uid), folder, nil
}

// IsMailboxID reports whether id refers to a message synchronized from the mailbox.
func IsMailboxID(id string) bool {
	_, _, err := ParseMessageID(id)
	return err == nil
}

// IsContactFormID reports whether id is a contact form reference.
func IsContactFormID(id string) bool {
	return strings.HasPrefix(id, contactFormPrefix)
}

// NewContactFormID generates a reference like "CF-20250101-120000-4821".
func NewContactFormID(now time.Time) string {
	return fmt.Sprintf("%s%s-%04d", contactFormPrefix, now.Format("20060102-150405"), 1000+rand.IntN(9000))
}

// FormatLocal renders t in loc using LocalTimeLayout.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(LocalTimeLayout)
}
