// Package feedback holds the feedback board's domain model: entries, input
// validation, the repository contract shared by every storage backend, and
// the error taxonomy those backends report.
package feedback

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// TableName is the relational table every backend reads and writes.
	TableName = "feedback"

	MinRating = 1
	MaxRating = 5

	MaxNameLength    = 100
	MaxMessageLength = 2000
)

// Entry is one persisted feedback submission. ID and CreatedAt are assigned
// by the data store.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is validated, trimmed input ready to be inserted.
type Draft struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Rating  int    `json:"rating"`
}

// NewDraft trims name and message and checks every field. Failures are
// reported as a KindValidation *Error so callers never reach the store.
func NewDraft(name, message string, rating int) (Draft, error) {
	d := Draft{
		Name:    strings.TrimSpace(name),
		Message: strings.TrimSpace(message),
		Rating:  rating,
	}

	switch {
	case d.Name == "":
		return Draft{}, Validation("name must not be blank")
	case d.Message == "":
		return Draft{}, Validation("message must not be blank")
	case !ValidRating(rating):
		return Draft{}, Validation("rating must be between 1 and 5")
	case utf8.RuneCountInString(d.Name) > MaxNameLength:
		return Draft{}, Validation("name is too long")
	case utf8.RuneCountInString(d.Message) > MaxMessageLength:
		return Draft{}, Validation("message is too long")
	}
	return d, nil
}

// ValidRating reports whether r is an accepted star rating.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// FormatDate renders a timestamp the way the board lists it,
// e.g. "Oct 16, 2026, 03:04 PM".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006, 03:04 PM")
}
