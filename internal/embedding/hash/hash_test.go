package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Deterministic(t *testing.T) {
	e := New(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "knee surgery coverage")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "knee surgery coverage")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbed_FixedDimension(t *testing.T) {
	e := New(0)
	assert.Equal(t, DefaultDimension, e.Dimension())

	v, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Len(t, v, DefaultDimension)
}

func TestEmbed_Normalized(t *testing.T) {
	e := New(128)
	v, err := e.Embed(context.Background(), "the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestEmbed_SimilarTextsScoreHigher(t *testing.T) {
	e := New(256)
	ctx := context.Background()
	query, _ := e.Embed(ctx, "knee surgery coverage policy")
	related, _ := e.Embed(ctx, "the policy covers knee surgery in full")
	unrelated, _ := e.Embed(ctx, "lunch menus vary by season and region")

	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestEmbed_EmptyText(t *testing.T) {
	e := New(32)
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, v, 32)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
