package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("user likes dark mode", "user likes dark mode"))
}

func TestTextSimilarity_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, textSimilarity("alpha beta", "gamma delta"))
}

func TestTextSimilarity_BothEmpty(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("", ""))
}

func TestTextSimilarity_OneEmpty(t *testing.T) {
	assert.Equal(t, 0.0, textSimilarity("something", ""))
}

func TestTextSimilarity_PartialOverlap(t *testing.T) {
	v := textSimilarity("user prefers dark mode", "user prefers light mode")
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 1.0)
}
