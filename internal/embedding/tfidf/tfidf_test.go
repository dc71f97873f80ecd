package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/domain"
)

var _ domain.CorpusEmbedder = (*Embedder)(nil)

func TestEmbedBeforeFit(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestFitErrors(t *testing.T) {
	_, err := NewEmbedder().Fit(nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = NewEmbedder().Fit([]string{"the and of", "  "})
	assert.ErrorIs(t, err, ErrNoTokens)
}

func TestFitLeavesReceiverUnfitted(t *testing.T) {
	base := NewEmbedder()
	fitted, err := base.Fit([]string{"apples and pears"})
	require.NoError(t, err)

	assert.Equal(t, 0, base.Dimension())
	assert.Equal(t, 2, fitted.(*Embedder).Dimension())
}

func TestEmbedIsNormalisedAndDeterministic(t *testing.T) {
	fitted, err := NewEmbedder().Fit([]string{
		"Paragraph one about apples.",
		"Paragraph two about pears.",
		"Paragraph three about plums.",
	})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := fitted.Embed(ctx, "pears and plums")
	require.NoError(t, err)
	b, err := fitted.Embed(ctx, "pears and plums")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	norm := 0.0
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestEmbedUnknownTermsIsZero(t *testing.T) {
	fitted, err := NewEmbedder().Fit([]string{"apples"})
	require.NoError(t, err)

	vec, err := fitted.Embed(context.Background(), "zebra")
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, vec)
}

func TestRareTermsWeighMore(t *testing.T) {
	fitted, err := NewEmbedder().Fit([]string{
		"common rare",
		"common",
		"common",
	})
	require.NoError(t, err)

	vec, err := fitted.Embed(context.Background(), "common rare")
	require.NoError(t, err)
	e := fitted.(*Embedder)
	assert.Greater(t, vec[e.vocabulary["rare"]], vec[e.vocabulary["common"]])
}
