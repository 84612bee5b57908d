package meshnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
)

func TestReputationManager_InitialScoreIsNeutral(t *testing.T) {
	rm := NewReputationManager(24*time.Hour, nil)
	value, confidence := rm.TrustScore("peer-a")
	assert.Equal(t, 0.5, value)
	assert.Equal(t, 0.0, confidence)
}

func TestReputationManager_SuccessesRaiseScoreAndConfidence(t *testing.T) {
	rm := NewReputationManager(24*time.Hour, nil)
	peer := aurora.PeerID("peer-a")

	for i := 0; i < 5; i++ {
		rm.Report(peer, true)
	}

	value, confidence := rm.TrustScore(peer)
	assert.Greater(t, value, 0.5)
	assert.Greater(t, confidence, 0.0)
}

func TestReputationManager_FailuresLowerScore(t *testing.T) {
	rm := NewReputationManager(24*time.Hour, nil)
	peer := aurora.PeerID("peer-a")

	rm.Report(peer, false)
	value, _ := rm.TrustScore(peer)
	assert.Less(t, value, 0.5)
}

func TestReputationManager_MaliciousPenaltyZeroesScore(t *testing.T) {
	rm := NewReputationManager(24*time.Hour, nil)
	peer := aurora.PeerID("peer-a")

	rm.ReportPenalty(peer, PenaltyMaliciousBehavior)
	value, _ := rm.TrustScore(peer)
	assert.InDelta(t, 0.0, value, 1e-6)
	assert.False(t, rm.IsTrusted(peer))
}

func TestReputationManager_IsTrustedRequiresConfidence(t *testing.T) {
	rm := NewReputationManager(24*time.Hour, nil)
	peer := aurora.PeerID("peer-a")

	rm.Report(peer, true)
	// A single interaction raises the score above 0.4 but confidence
	// stays too low (total=1, integer total/2 = 0, so 1-1/(0+1) = 0) to be
	// trusted yet.
	assert.False(t, rm.IsTrusted(peer))
}
