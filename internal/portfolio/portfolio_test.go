package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFooterCopyright(t *testing.T) {
	f := Footer{Owner: "Nivedita"}
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "© 2026 Nivedita. All rights reserved.", f.Copyright(now))
}

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "Nivedita", s.Hero.Name)
	require.Len(t, s.About.Interests, 4)
	assert.Equal(t, Interest{Icon: "☕", Text: "Coffee"}, s.About.Interests[0])

	require.Len(t, s.Skills, 3)
	assert.Equal(t, "Frontend", s.Skills[0].Category)
	assert.Equal(t, 8, s.SkillCount())

	require.Len(t, s.Projects, 3)
	for _, p := range s.Projects {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Technologies)
	}

	var labels []string
	for _, l := range s.Social {
		labels = append(labels, l.Label)
	}
	assert.Equal(t, []string{"GitHub", "LinkedIn", "Twitter", "Email"}, labels)
	assert.Equal(t, "mailto:nivedita@example.com", s.Social[3].Href)
}

func TestWithProse(t *testing.T) {
	base := Default()
	s := base.WithProse(Prose{
		HeroIntro: "intro",
		About:     []string{"one", "two"},
		Contact:   Contact{Intro: "hello"},
	})

	assert.Equal(t, "intro", s.Hero.Intro)
	assert.Equal(t, []string{"one", "two"}, s.About.Paragraphs)
	assert.Equal(t, "hello", s.Contact.Intro)
	assert.Equal(t, "nivedita@example.com", s.Contact.Email, "empty fields keep the default")
	assert.Empty(t, base.About.Paragraphs, "the receiver is not modified")
}
