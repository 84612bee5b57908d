// Package meshnet implements the concrete collaborators the Aurora core
// consumes through its NeighborLookup, HeadHashOracle and ShutdownSink
// interfaces: a Kademlia-style bucket routing table, a libp2p stream
// transport, and a channel-based shutdown broadcaster.
package meshnet

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"math/big"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
)

// PeerInfo is a routing-table entry: an opaque Aurora peer id plus its
// dialable libp2p multiaddress.
type PeerInfo struct {
	ID          aurora.PeerID
	Multiaddr   string
	LastContact time.Time
}

// Pinger liveness-checks a bucket's oldest entry before evicting it for a
// newly-seen peer, mirroring the teacher's bucket-eviction policy.
type Pinger interface {
	Ping(ctx context.Context, peer PeerInfo) error
}

const numBuckets = 160

// Table is a Kademlia-style routing table: 160 XOR-distance buckets of up
// to k peers each, adapted from the teacher's DHT
// (kernel/core/mesh/routing/dht.go) trimmed to routing concerns only —
// the teacher's chunk storage/replication half has no role here.
type Table struct {
	mu      sync.RWMutex
	localID *big.Int
	buckets [numBuckets][]PeerInfo
	peers   map[aurora.PeerID]PeerInfo
	k       int
	pinger  Pinger
	logger  *slog.Logger
}

// NewTable builds a routing table for nodeID with bucket size k. pinger
// may be nil, in which case a full bucket keeps its entries and drops the
// newly-seen peer.
func NewTable(nodeID string, k int, pinger Pinger, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		localID: normalizeID(nodeID),
		peers:   make(map[aurora.PeerID]PeerInfo),
		k:       k,
		pinger:  pinger,
		logger:  logger.With("component", "meshnet.table"),
	}
}

func normalizeID(id string) *big.Int {
	sum := sha256.Sum256([]byte(id))
	return new(big.Int).SetBytes(sum[:])
}

func (t *Table) bucketIndex(id string) int {
	xor := new(big.Int).Xor(t.localID, normalizeID(id))
	bitLen := xor.BitLen()
	if bitLen == 0 {
		return numBuckets - 1
	}
	idx := numBuckets - bitLen
	if idx < 0 {
		idx = 0
	}
	if idx >= numBuckets {
		idx = numBuckets - 1
	}
	return idx
}

// AddPeer inserts or refreshes peer in its bucket. A full bucket pings
// its oldest entry and evicts it only if the ping fails; otherwise the
// new peer is dropped, matching the teacher's "alive nodes stay" policy.
func (t *Table) AddPeer(ctx context.Context, p PeerInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.bucketIndex(string(p.ID))
	bucket := t.buckets[idx]

	for i, existing := range bucket {
		if existing.ID == p.ID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			bucket = append(bucket, p)
			t.buckets[idx] = bucket
			t.peers[p.ID] = p
			return
		}
	}

	if len(bucket) < t.k {
		t.buckets[idx] = append(bucket, p)
		t.peers[p.ID] = p
		return
	}

	oldest := bucket[0]
	if t.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := t.pinger.Ping(pingCtx, oldest)
		cancel()
		if err != nil {
			t.buckets[idx] = append(bucket[1:], p)
			delete(t.peers, oldest.ID)
			t.peers[p.ID] = p
			return
		}
	}
	t.logger.Debug("bucket full, dropping new peer", "bucket", idx, "peer", p.ID)
}

// RandomPeer implements aurora.RandomEntryProvider: it samples uniformly
// among known peers.
func (t *Table) RandomPeer() (aurora.PeerID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.peers) == 0 {
		return "", false
	}
	ids := make([]aurora.PeerID, 0, len(t.peers))
	for id := range t.peers {
		ids = append(ids, id)
	}
	return ids[rand.Intn(len(ids))], true
}

// Closest returns the up to k peers nearest targetID by XOR distance,
// for answering an incoming find-node request (teacher's DHT.FindNode).
func (t *Table) Closest(targetID string) []PeerInfo {
	t.mu.RLock()
	all := make([]PeerInfo, 0, len(t.peers))
	for _, p := range t.peers {
		all = append(all, p)
	}
	t.mu.RUnlock()

	target := normalizeID(targetID)
	sort.Slice(all, func(i, j int) bool {
		di := new(big.Int).Xor(normalizeID(string(all[i].ID)), target)
		dj := new(big.Int).Xor(normalizeID(string(all[j].ID)), target)
		return di.Cmp(dj) < 0
	})

	if len(all) > t.k {
		all = all[:t.k]
	}
	return all
}

// Resolve returns the dialable multiaddress for a known peer.
func (t *Table) Resolve(id aurora.PeerID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p.Multiaddr, ok
}

// Size returns the number of distinct peers currently known.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
