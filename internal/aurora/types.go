package aurora

import "context"

// PeerID identifies a node in the overlay. Identity, cryptography and
// wire-level peer addressing are owned by the external discovery service;
// the core treats PeerID as an opaque, comparable token.
type PeerID string

// CandidateKey identifies a bootstrap candidate's reported chain state —
// in practice a 32-byte head hash, per spec.md's design note on
// parameterizing the correctness table over a hashable/equatable key.
type CandidateKey [32]byte

// NetworkParams are the immutable parameters of a single walk.
type NetworkParams struct {
	N int // total network size
	M int // assumed malicious count; descriptive only — Walker.Walk always
	// recomputes AssumedMalicious(N) itself rather than reading this field
	R int // neighbor-response size
}

// AssumedMaliciousParams builds NetworkParams with M defaulted to
// AssumedMalicious(N), clamping R to N.
func AssumedMaliciousParams(N, R int) NetworkParams {
	r := R
	if r > N {
		r = N
	}
	return NetworkParams{N: N, M: AssumedMalicious(N), R: r}
}

// Thresholds are the immutable parameters of a tally run.
type Thresholds struct {
	T float64 // mistake threshold
	K int     // number of walks
}

// WalkOutcome is returned from a single walk.
type WalkOutcome struct {
	CorrectnessIndicator float64
	CandidateKey         CandidateKey
	HasCandidate         bool
	Collected            map[PeerID]struct{}
}

// NeighborLookup is the external Kademlia discovery collaborator: it
// issues a FIND_NODE against peer for a random target id and returns at
// most r peers. Implementations fail with an error wrapping ErrRPCTimeout
// or ErrWalkCanceled.
type NeighborLookup interface {
	FindNode(ctx context.Context, peer PeerID, randomTargetID string) ([]PeerID, error)
}

// HeadHashOracle establishes or reuses a peer session and retrieves the
// current chain-head hash. Implementations fail with an error wrapping
// ErrRPCTimeout on expiry.
type HeadHashOracle interface {
	HeadHash(ctx context.Context, peer PeerID, timeout float64) (CandidateKey, error)
}

// ShutdownSink is a fire-and-forget request that the host process
// terminate, invoked exactly once when CliqueDetected is raised at the
// top level.
type ShutdownSink interface {
	BroadcastShutdown(reason string)
}

// RandomEntryProvider picks a random entry node from the (external)
// routing table, used by Core.LookupRandom.
type RandomEntryProvider interface {
	RandomPeer() (PeerID, bool)
}
