package board

import (
	"strings"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/feedback"
)

// Stars is one rendered row of rating symbols; true means filled.
type Stars [feedback.MaxRating]bool

const (
	filledStar = "★"
	emptyStar  = "☆"
)

// RenderStars is the read-only display mode: exactly rating filled symbols
// out of five. Out-of-range ratings are clamped.
func RenderStars(rating int) Stars {
	var s Stars
	for i := 0; i < len(s) && i < rating; i++ {
		s[i] = true
	}
	return s
}

// Count returns the number of filled symbols.
func (s Stars) Count() int {
	n := 0
	for _, f := range s {
		if f {
			n++
		}
	}
	return n
}

func (s Stars) String() string {
	var b strings.Builder
	for _, f := range s {
		if f {
			b.WriteString(filledStar)
		} else {
			b.WriteString(emptyStar)
		}
	}
	return b.String()
}

// StarInput is the interactive mode. Hover previews a value without
// committing it; Click commits; Leave drops the preview.
type StarInput struct {
	Committed int
	Hover     int
}

func (in *StarInput) Enter(v int) {
	if feedback.ValidRating(v) {
		in.Hover = v
	}
}

func (in *StarInput) Click(v int) {
	if feedback.ValidRating(v) {
		in.Committed = v
	}
}

func (in *StarInput) Leave() {
	in.Hover = 0
}

func (in *StarInput) Reset() {
	*in = StarInput{}
}

// Filled is the value currently shown: the preview while hovering,
// otherwise the committed rating.
func (in StarInput) Filled() int {
	if in.Hover != 0 {
		return in.Hover
	}
	return in.Committed
}

func (in StarInput) Render() Stars {
	return RenderStars(in.Filled())
}
