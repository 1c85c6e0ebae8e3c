package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalguard/internal/models"
)

func TestParse_AliasStrippedOnCapableDomain(t *testing.T) {
	p, err := Parse("User+tag@Gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", p.Normalized)
	assert.True(t, p.IsAlias)
	assert.Equal(t, "gmail.com", p.Domain)
}

func TestParse_AliasNotStrippedOnNonCapableDomain(t *testing.T) {
	p, err := Parse("user+tag@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user+tag@example.com", p.Normalized)
	assert.True(t, p.IsAlias)
}

func TestParse_Idempotent(t *testing.T) {
	p1, err := Parse("User+tag@Gmail.com")
	require.NoError(t, err)
	p2, err := Parse(p1.Normalized)
	require.NoError(t, err)
	assert.Equal(t, p1.Normalized, p2.Normalized)
}

func TestParse_RejectsMultipleAt(t *testing.T) {
	_, err := Parse("a@b@example.com")
	require.Error(t, err)
	var hr *models.HardReject
	require.ErrorAs(t, err, &hr)
}

func TestParse_RejectsMissingDot(t *testing.T) {
	_, err := Parse("user@localhost")
	require.Error(t, err)
}

func TestParse_RejectsLongLocalPart(t *testing.T) {
	long := ""
	for i := 0; i < 65; i++ {
		long += "a"
	}
	_, err := Parse(long + "@example.com")
	require.Error(t, err)
}

func TestParse_RejectsLeadingHyphenLabel(t *testing.T) {
	_, err := Parse("user@-bad.com")
	require.Error(t, err)
}
