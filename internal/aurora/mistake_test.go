package aurora

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// These vectors are hand-derived from Hypergeometric(10,5,3), whose PMF is
// exact in small integer fractions: PMF(0)=10/120, PMF(1)=PMF(2)=50/120,
// PMF(3)=10/120, median=1, pGood=CDF(1)=0.5, pBad=PMF(2)+PMF(3)=0.5.
func TestMistake_KnownVectors(t *testing.T) {
	m, err := Mistake(10, 5, 3, 0)
	assert.NoError(t, err)
	assert.InDelta(t, 0.0, m, 1e-9)

	m, err = Mistake(10, 5, 3, 2)
	assert.NoError(t, err)
	assert.InDelta(t, 50.0/120/0.5, m, 1e-9)

	m, err = Mistake(10, 5, 3, 3)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, m, 1e-9)
}

func TestMistake_MonotonicInObservedOverlap(t *testing.T) {
	m0, err := Mistake(100, 49, 16, 0)
	assert.NoError(t, err)
	m1, err := Mistake(100, 49, 16, 8)
	assert.NoError(t, err)
	m2, err := Mistake(100, 49, 16, 16)
	assert.NoError(t, err)

	assert.LessOrEqual(t, m0, m1)
	assert.LessOrEqual(t, m1, m2)
}

func TestMistake_ZeroObservedOverlapNeverPenalizes(t *testing.T) {
	m, err := Mistake(100, 1, 5, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, m)
}

func TestMistake_RejectsInvalidDomain(t *testing.T) {
	_, err := Mistake(10, 20, 3, 0)
	assert.Error(t, err)
}
