package board

import (
	"fmt"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

// State is the board's load state.
type State int

const (
	StateLoading State = iota
	StateReady
	// StateSetupMissing means the feedback table has not been provisioned.
	// Writes stay disabled until an operator runs the setup step.
	StateSetupMissing
	// StateUnavailable is a transient load failure.
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSetupMissing:
		return "setup_missing"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeValidation
	NoticeError
	NoticeSetup
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeValidation:
		return "validation"
	case NoticeError:
		return "error"
	case NoticeSetup:
		return "setup"
	default:
		return "none"
	}
}

func (k NoticeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Notice is a transient message shown next to the form.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// User-facing texts.
const (
	MsgIncomplete    = "Please fill in all fields and select a rating"
	MsgThanks        = "Thank you for your feedback!"
	MsgSubmitFailed  = "Failed to submit feedback. Please try again."
	MsgNotAvailable  = "The feedback system is not available right now. Please try again later."
	MsgSetupMissing  = "The feedback system is not yet set up. Please run the database setup script first."
	MsgUnavailable   = "Unable to connect to the feedback system. Please try again later."
	MsgSetupRequired = "Feedback system setup required. Please contact the administrator."

	LabelSubmitting  = "Submitting..."
	LabelUnavailable = "System Unavailable"
	LabelSubmit      = "Submit Feedback"
)

// Snapshot is an immutable view of a Controller.
type Snapshot struct {
	State      State            `json:"state"`
	Entries    []feedback.Entry `json:"entries"`
	Name       string           `json:"name"`
	Message    string           `json:"message"`
	Rating     int              `json:"rating"`
	Hover      int              `json:"hover"`
	Stars      Stars            `json:"stars"`
	Submitting bool             `json:"submitting"`
	// Live reports whether insert notifications are being received.
	Live    bool   `json:"live"`
	Notice  Notice `json:"notice"`
	Problem string `json:"problem,omitempty"`
}

// CanSubmit reports whether the submit control is enabled.
func (s Snapshot) CanSubmit() bool {
	return s.State == StateReady && !s.Submitting
}

func (s Snapshot) SubmitLabel() string {
	switch {
	case s.Submitting:
		return LabelSubmitting
	case s.State != StateReady:
		return LabelUnavailable
	default:
		return LabelSubmit
	}
}

// Empty is the "no feedback yet" state, which is not an error.
func (s Snapshot) Empty() bool {
	return s.State == StateReady && len(s.Entries) == 0
}

// RatingCaption reads "3/5" once a rating is chosen.
func (s Snapshot) RatingCaption() string {
	if s.Rating == 0 {
		return "Select a rating"
	}
	return fmt.Sprintf("%d/%d", s.Rating, feedback.MaxRating)
}
