package probes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannonEntropy_Empty(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy(""))
}

func TestShannonEntropy_SingleCharacterRepeated(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy("aaaaaa"))
}

func TestShannonEntropy_HighForRandomLooking(t *testing.T) {
	low := ShannonEntropy("aaaaaaaa")
	high := ShannonEntropy("xk9p2qz7")
	assert.Greater(t, high, low)
}

func TestIsHighEntropy(t *testing.T) {
	assert.True(t, IsHighEntropy(5.0, 4.5))
	assert.False(t, IsHighEntropy(4.0, 4.5))
}
