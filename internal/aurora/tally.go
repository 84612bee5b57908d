package aurora

import (
	"context"
	"errors"
	"log/slog"
)

// CorrectnessTable maps a candidate head-hash to its observed correctness
// scores across independent walks, plus the order keys were first
// inserted (maps have no iteration order, and Optimum's tie-break is
// "first-inserted").
type CorrectnessTable struct {
	scores map[CandidateKey][]float64
	order  []CandidateKey
}

// NewCorrectnessTable returns an empty table.
func NewCorrectnessTable() *CorrectnessTable {
	return &CorrectnessTable{scores: make(map[CandidateKey][]float64)}
}

// Put appends value to key's score list, tracking first-insertion order.
func (t *CorrectnessTable) Put(key CandidateKey, value float64) {
	if _, exists := t.scores[key]; !exists {
		t.order = append(t.order, key)
	}
	t.scores[key] = append(t.scores[key], value)
}

// Optimum returns the key with the maximum score = n * mean^3, skipping
// keys whose score sum is exactly 0; ties break by first-insertion order.
// Returns ok=false if every key was skipped (or the table is empty).
func (t *CorrectnessTable) Optimum() (key CandidateKey, score float64, ok bool) {
	for _, k := range t.order {
		list := t.scores[k]
		sum := 0.0
		for _, v := range list {
			sum += v
		}
		if sum == 0 {
			continue
		}
		mean := sum / float64(len(list))
		candidateScore := float64(len(list)) * mean * mean * mean
		if !ok || candidateScore > score {
			key, score, ok = k, candidateScore, true
		}
	}
	return key, score, ok
}

// CliqueObserver is notified of the peer a walk was entered from when that
// walk's accumulated mistake crosses the abort threshold. It is an
// optional feedback hook for external trust/reputation systems; the tally
// itself never consults it back.
type CliqueObserver interface {
	ObserveClique(peer PeerID)
}

// Tallier runs K independent walks, re-entering from peers harvested in
// earlier walks, and aggregates their outcomes into a best head-hash
// decision.
type Tallier struct {
	Walker   *Walker
	Logger   *slog.Logger
	Metrics  *Metrics // optional; nil disables instrumentation
	Observer CliqueObserver
}

// NewTallier builds a Tallier around an existing Walker. metrics may be
// nil to disable instrumentation.
func NewTallier(walker *Walker, metrics *Metrics, logger *slog.Logger) *Tallier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tallier{Walker: walker, Metrics: metrics, Logger: logger.With("component", "aurora.tally")}
}

// WithObserver attaches a CliqueObserver that gets notified with the entry
// peer of any walk whose accumulated mistake crosses the abort threshold.
func (t *Tallier) WithObserver(o CliqueObserver) *Tallier {
	t.Observer = o
	return t
}

// Tally runs thresholds.K walks starting from entry. It returns
// ErrClique (wrapped) the moment any walk reports
// correctness_indicator == 0; ok is false only when every surviving
// candidate's score summed to zero.
func (t *Tallier) Tally(ctx context.Context, entry PeerID, params NetworkParams, thresholds Thresholds) (CandidateKey, float64, bool, error) {
	table := NewCorrectnessTable()
	current := entry
	completed := 0

	for completed < thresholds.K {
		outcome, err := t.Walker.Walk(ctx, current, params, thresholds)
		if err != nil {
			var aerr *AuroraError
			if errors.As(err, &aerr) && aerr.Code == ErrCancelled {
				return CandidateKey{}, 0, false, err
			}
			if errors.Is(err, ErrConnRefused) || errors.Is(err, ErrRPCTimeout) {
				t.Logger.Warn("walk failed, retrying from the same entry", "error", err)
				continue
			}
			return CandidateKey{}, 0, false, err
		}

		if t.Metrics != nil {
			t.Metrics.WalksTotal.Inc()
		}

		if outcome.CorrectnessIndicator == 0 {
			if t.Metrics != nil {
				t.Metrics.WalksAborted.Inc()
				t.Metrics.CliqueDetectedTotal.Inc()
			}
			if t.Observer != nil {
				t.Observer.ObserveClique(current)
			}
			t.Logger.Warn("clique detected during tally", "entry_peer", current)
			return CandidateKey{}, 0, false, wrapError(ErrCliqueDetected, "accumulated mistake crossed threshold", nil)
		}

		table.Put(outcome.CandidateKey, outcome.CorrectnessIndicator)

		next, err := pick(collectedSlice(outcome.Collected), map[PeerID]struct{}{}, t.Walker.Rand)
		if err != nil {
			return CandidateKey{}, 0, false, wrapError(ErrConnectionRefused, "no candidates to pick for next walk", err)
		}
		current = next
		completed++
	}

	key, score, ok := table.Optimum()
	return key, score, ok, nil
}

func collectedSlice(collected map[PeerID]struct{}) []PeerID {
	out := make([]PeerID, 0, len(collected))
	for p := range collected {
		out = append(out, p)
	}
	return out
}
