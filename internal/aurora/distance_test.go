package aurora

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssumedMalicious(t *testing.T) {
	assert.Equal(t, 999, AssumedMalicious(2000))
	assert.Equal(t, 49, AssumedMalicious(100))
	assert.Equal(t, 10, AssumedMalicious(21))
	assert.Equal(t, 2, AssumedMalicious(5))
}

func TestEstimateDistance_NoMaliciousNodesIsOneHop(t *testing.T) {
	d, err := EstimateDistance(2000, 0, 16)
	assert.NoError(t, err)
	assert.Equal(t, minWalkDistance, d)
}

func TestEstimateDistance_SingleMaliciousState(t *testing.T) {
	// N=10, m=1, r=3: transition P(stay in malicious state) = PMF(0) for
	// Hypergeometric(10,1,3) = C(1,0)*C(9,3)/C(10,3) = 84/120 = 0.7, so the
	// fundamental matrix is the scalar 1/(1-0.7) = 10/3.
	d, err := EstimateDistance(10, 1, 3)
	assert.NoError(t, err)
	assert.InDelta(t, 10.0/3.0, d, 1e-9)
}

func TestEstimateDistance_RejectsInvalidDomain(t *testing.T) {
	_, err := EstimateDistance(0, 0, 1)
	assert.Error(t, err)

	_, err = EstimateDistance(10, 10, 1)
	assert.Error(t, err)

	_, err = EstimateDistance(10, -1, 1)
	assert.Error(t, err)
}

func TestEstimateDistance_ClampsResponseSizeToNetworkSize(t *testing.T) {
	withClamp, err := EstimateDistance(10, 1, 50)
	assert.NoError(t, err)
	withoutClamp, err := EstimateDistance(10, 1, 10)
	assert.NoError(t, err)
	assert.InDelta(t, withoutClamp, withClamp, 1e-9)
}
