package content

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriviaBankIsWellFormed(t *testing.T) {
	require.Len(t, TriviaQuestions, 8)
	for _, q := range TriviaQuestions {
		assert.NotEmpty(t, q.Text)
		require.NotEmpty(t, q.Options)
		assert.GreaterOrEqual(t, q.CorrectIndex, 0, q.ID)
		assert.Less(t, q.CorrectIndex, len(q.Options), q.ID)
	}
}

func TestShuffledPromptsKeepsEveryPrompt(t *testing.T) {
	got := ShuffledPrompts(rand.New(rand.NewSource(7)))
	assert.ElementsMatch(t, DrawingPrompts, got)
	assert.Equal(t, "pacifier", DrawingPrompts[0], "source list must not be shuffled in place")
}
