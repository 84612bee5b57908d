package aurora

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// walkState is the walk's terminal-state machine (spec.md §4.4).
type walkState int

const (
	stateWalking walkState = iota
	stateAborted
	stateExhausted
	stateSaturated
)

// headHashTimeoutSeconds is the default head-hash retrieval timeout
// (spec.md §5).
const headHashTimeoutSeconds = 60

// Walker runs bounded random walks against injected collaborators.
type Walker struct {
	Lookup  HeadHashOracleLookup
	Rand    *rand.Rand
	Logger  *slog.Logger
	Metrics *Metrics // optional; nil disables instrumentation
}

// WithMetrics attaches a Metrics collector so each hop's distance
// estimate and each walk's accumulated mistake get reported.
func (w *Walker) WithMetrics(m *Metrics) *Walker {
	w.Metrics = m
	return w
}

// HeadHashOracleLookup bundles the two collaborators a walk needs so a
// single struct can be passed around instead of two separate fields.
type HeadHashOracleLookup struct {
	Neighbors NeighborLookup
	Heads     HeadHashOracle
}

// NewWalker builds a Walker. rnd must be non-nil for reproducible walks
// (spec.md §8's round-trip testable property); logger defaults to the
// package default if nil.
func NewWalker(lookup NeighborLookup, heads HeadHashOracle, rnd *rand.Rand, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Walker{
		Lookup: HeadHashOracleLookup{Neighbors: lookup, Heads: heads},
		Rand:   rnd,
		Logger: logger.With("component", "aurora.walk"),
	}
}

// Walk executes one bounded random walk starting from entry. It returns
// ErrConnRefused / ErrRPCTimeout for a transient peer failure the tally
// should retry, and ErrWalkCanceled for an external cancellation that
// must propagate without retry.
func (w *Walker) Walk(ctx context.Context, entry PeerID, params NetworkParams, th Thresholds) (WalkOutcome, error) {
	malicious := AssumedMalicious(params.N)
	distance, err := EstimateDistance(params.N, malicious, params.R)
	if err != nil {
		return WalkOutcome{}, err
	}

	collected := make(map[PeerID]struct{})
	var accumulatedMistake float64
	iteration := 0
	current := entry
	state := stateWalking

	w.Logger.Debug("starting walk", "distance", distance, "mistake_threshold", th.T, "entry", entry)

	for float64(iteration) < distance && state == stateWalking {
		if err := ctx.Err(); err != nil {
			return WalkOutcome{}, wrapError(ErrCancelled, "walk cancelled", err)
		}

		candidates, err := w.Lookup.Neighbors.FindNode(ctx, current, w.randomTargetID())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrWalkCanceled) {
				return WalkOutcome{}, wrapError(ErrCancelled, "walk cancelled", err)
			}
			return WalkOutcome{}, wrapError(ErrConnectionRefused, "neighbor lookup failed", err)
		}

		n := len(candidates)
		kObs := countKnown(collected, candidates)
		for _, c := range candidates {
			collected[c] = struct{}{}
		}

		mistake, err := Mistake(params.N, malicious, n, kObs)
		if err != nil {
			return WalkOutcome{}, err
		}
		accumulatedMistake += mistake
		distance += (minFloat(mistake, 1) - 0.5) / 0.5
		if w.Metrics != nil {
			w.Metrics.DistanceEstimate.Set(distance)
		}

		next, err := pick(candidates, collected, w.Rand)
		if err != nil {
			return WalkOutcome{}, wrapError(ErrConnectionRefused, "no candidates to pick", err)
		}
		current = next

		w.Logger.Debug("hop complete",
			"iteration", iteration, "distance", distance,
			"known_peers", kObs, "response_size", n,
			"accumulated_mistake", accumulatedMistake, "delta", mistake)

		if len(collected) == params.N {
			state = stateSaturated
			break
		}
		iteration++

		if accumulatedMistake >= th.T {
			state = stateAborted
			w.Logger.Warn("aurora is assuming malicious activity: aborting walk",
				"accumulated_mistake", accumulatedMistake, "threshold", th.T)
			if w.Metrics != nil {
				w.Metrics.AccumulatedMistake.Observe(accumulatedMistake)
			}
			return WalkOutcome{CorrectnessIndicator: 0, HasCandidate: false, Collected: collected}, nil
		}
	}
	if state == stateWalking {
		state = stateExhausted
	}

	correctness := 1 - accumulatedMistake/th.T
	headHash, err := w.Lookup.Heads.HeadHash(ctx, current, headHashTimeoutSeconds)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WalkOutcome{}, wrapError(ErrCancelled, "walk cancelled", err)
		}
		return WalkOutcome{}, wrapError(ErrConnectionRefused, "head hash retrieval failed", err)
	}

	if w.Metrics != nil {
		w.Metrics.AccumulatedMistake.Observe(accumulatedMistake)
	}

	return WalkOutcome{
		CorrectnessIndicator: correctness,
		CandidateKey:         headHash,
		HasCandidate:         true,
		Collected:            collected,
	}, nil
}

func countKnown(collected map[PeerID]struct{}, candidates []PeerID) int {
	count := 0
	for _, c := range candidates {
		if _, ok := collected[c]; ok {
			count++
		}
	}
	return count
}

// pick returns a uniformly random element of candidates not already in
// excluded; falls back to a random element of excluded if every candidate
// is excluded, and fails with ErrNoCandidates if both are empty.
func pick(candidates []PeerID, excluded map[PeerID]struct{}, rnd *rand.Rand) (PeerID, error) {
	fresh := make([]PeerID, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := excluded[c]; !ok {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) > 0 {
		return fresh[randIntn(rnd, len(fresh))], nil
	}

	if len(excluded) > 0 {
		pool := make([]PeerID, 0, len(excluded))
		for p := range excluded {
			pool = append(pool, p)
		}
		return pool[randIntn(rnd, len(pool))], nil
	}

	return "", newError(ErrNoCandidates, "no candidates to pick")
}

func randIntn(rnd *rand.Rand, n int) int {
	return rnd.Intn(n)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// randomTargetID produces a random 160-bit Kademlia id string for the
// neighbor lookup, matching the id space FindNode targets.
func (w *Walker) randomTargetID() string {
	buf := make([]byte, 20)
	w.Rand.Read(buf)
	return string(buf)
}
