package meshnet

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
)

// PenaltyReason classifies why a peer's trust score is being docked,
// adapted from the teacher's reputation manager
// (kernel/core/mesh/routing/reputation.go).
type PenaltyReason int

const (
	PenaltyTimeout PenaltyReason = iota
	PenaltyInvalidData
	PenaltyCliqueMember
	PenaltyMaliciousBehavior
)

// score is the EMA trust state kept per peer.
type score struct {
	value       float64
	confidence  float64
	successes   uint64
	failures    uint64
	lastUpdated time.Time
}

// ReputationManager is a post-hoc feedback hook, separate from Aurora's
// hypergeometric decision core (aurora.Mistake/Walk/Tally never read
// trust scores back — spec.md's core model stays purely statistical).
// cmd wiring feeds it walk outcomes so operators can inspect which
// peers were penalized after a clique was flagged.
type ReputationManager struct {
	mu            sync.RWMutex
	scores        map[aurora.PeerID]score
	decayHalfLife time.Duration
	defaultScore  float64
	alpha         float64
	logger        *slog.Logger
}

// NewReputationManager builds a manager with the teacher's smoothing
// defaults (alpha 0.15, neutral score 0.5).
func NewReputationManager(decayHalfLife time.Duration, logger *slog.Logger) *ReputationManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReputationManager{
		scores:        make(map[aurora.PeerID]score),
		decayHalfLife: decayHalfLife,
		defaultScore:  0.5,
		alpha:         0.15,
		logger:        logger.With("component", "meshnet.reputation"),
	}
}

// Report ingests a successful or failed interaction outcome.
func (r *ReputationManager) Report(peer aurora.PeerID, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(peer)
	r.applyDecay(&s)

	if success {
		s.successes++
		s.value = (1-r.alpha)*s.value + r.alpha*1.0
	} else {
		s.failures++
		s.value = math.Max(0, s.value-0.05)
	}
	r.updateConfidence(&s)
	s.lastUpdated = time.Now()
	r.scores[peer] = s
}

// ReportPenalty docks peer for reason, e.g. after it is identified as a
// clique member during an aborted walk.
func (r *ReputationManager) ReportPenalty(peer aurora.PeerID, reason PenaltyReason) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(peer)
	r.applyDecay(&s)

	var penalty float64
	switch reason {
	case PenaltyTimeout:
		penalty = 0.02
	case PenaltyInvalidData:
		penalty = 0.15
	case PenaltyCliqueMember:
		penalty = 0.5
	case PenaltyMaliciousBehavior:
		penalty = 1.0
	default:
		penalty = 0.05
	}

	s.value = math.Max(0, s.value-penalty)
	s.failures++
	r.logger.Debug("applied reputation penalty", "peer", peer, "reason", reason, "penalty", penalty)
	r.updateConfidence(&s)
	s.lastUpdated = time.Now()
	r.scores[peer] = s
}

// ObserveClique satisfies aurora.CliqueObserver, docking peer the
// PenaltyCliqueMember amount when a tally aborts a walk entered from it.
func (r *ReputationManager) ObserveClique(peer aurora.PeerID) {
	r.ReportPenalty(peer, PenaltyCliqueMember)
}

// TrustScore returns peer's current score and confidence, decaying
// toward the neutral default as time since the last update grows.
func (r *ReputationManager) TrustScore(peer aurora.PeerID) (value, confidence float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scores[peer]
	if !ok {
		return r.defaultScore, 0
	}
	r.applyDecay(&s)
	return s.value, s.confidence
}

// IsTrusted reports whether peer has an acceptable score with enough
// confidence behind it to act on.
func (r *ReputationManager) IsTrusted(peer aurora.PeerID) bool {
	value, confidence := r.TrustScore(peer)
	return value > 0.4 && confidence > 0.2
}

func (r *ReputationManager) getOrCreate(peer aurora.PeerID) score {
	if s, ok := r.scores[peer]; ok {
		return s
	}
	return score{value: r.defaultScore, lastUpdated: time.Now()}
}

func (r *ReputationManager) applyDecay(s *score) {
	dt := time.Since(s.lastUpdated)
	if dt <= 0 || r.decayHalfLife <= 0 {
		return
	}
	decay := math.Pow(0.5, dt.Hours()/r.decayHalfLife.Hours())
	s.value = r.defaultScore + (s.value-r.defaultScore)*decay
	s.confidence *= decay
}

func (r *ReputationManager) updateConfidence(s *score) {
	total := s.successes + s.failures
	if total == 0 {
		s.confidence = 0
		return
	}
	s.confidence = 1.0 - (1.0 / float64(total/2+1))
}
