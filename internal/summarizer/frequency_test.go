package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/domain"
)

var _ domain.Summarizer = (*Frequency)(nil)

func TestSummarizeKeepsDocumentOrder(t *testing.T) {
	text := "Solar panels convert sunlight. Cats sleep a lot. Solar panels need sunlight to convert energy. Dogs bark."

	got, err := NewFrequency().Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Solar panels convert sunlight. Solar panels need sunlight to convert energy.", got)
}

func TestSummarizeShortTextReturnsAll(t *testing.T) {
	got, err := NewFrequency().Summarize("Only one sentence here.", 3)
	require.NoError(t, err)
	assert.Equal(t, "Only one sentence here.", got)
}

func TestSummarizeTrailingFragment(t *testing.T) {
	got, err := NewFrequency().Summarize("First point. trailing words without a stop", 5)
	require.NoError(t, err)
	assert.Equal(t, "First point. trailing words without a stop", got)
}

func TestSummarizeDefaultsAndEmpty(t *testing.T) {
	text := "One. Two. Three. Four. Five."
	got, err := NewFrequency().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, "One. Two. Three.", got)

	got, err = NewFrequency().Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
