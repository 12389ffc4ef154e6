package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderStars(t *testing.T) {
	s := RenderStars(3)
	assert.Equal(t, Stars{true, true, true, false, false}, s)
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, "★★★☆☆", s.String())

	assert.Equal(t, 0, RenderStars(0).Count())
	assert.Equal(t, 5, RenderStars(5).Count())
	assert.Equal(t, 5, RenderStars(9).Count())
	assert.Equal(t, 0, RenderStars(-2).Count())
}

func TestStarInputHoverPreview(t *testing.T) {
	var in StarInput

	in.Enter(4)
	assert.Equal(t, 4, in.Render().Count(), "hover previews without committing")
	assert.Zero(t, in.Committed)

	in.Leave()
	assert.Zero(t, in.Render().Count())

	in.Click(2)
	in.Enter(5)
	assert.Equal(t, 5, in.Filled())
	in.Leave()
	assert.Equal(t, 2, in.Filled())

	in.Enter(0)
	in.Click(6)
	assert.Equal(t, StarInput{Committed: 2}, in, "out-of-range values are ignored")

	in.Reset()
	assert.Equal(t, StarInput{}, in)
}
