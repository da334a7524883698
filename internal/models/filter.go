package models

import (
	"fmt"
	"math"
	"strings"
)

// Source selects messages by origin.
type Source string

const (
	SourceAll         Source = "all"
	SourceContactForm Source = "contactform"
	SourceMailbox     Source = "gmail"
)

// ParseSource maps the query parameter to a Source. Empty means all.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceAll:
		return SourceAll, nil
	case SourceContactForm:
		return SourceContactForm, nil
	case SourceMailbox:
		return SourceMailbox, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// ListFilter describes one page of the message listing.
type ListFilter struct {
	Source   Source
	Page     int
	PageSize int
}

// Offset returns the row offset of the page (pages start at 1). Pages past
// the int range saturate at the last representable page.
func (f ListFilter) Offset() int {
	if f.Page < 1 || f.PageSize <= 0 {
		return 0
	}
	if maxPage := math.MaxInt / f.PageSize; f.Page > maxPage {
		return (maxPage - 1) * f.PageSize
	}
	return (f.Page - 1) * f.PageSize
}
