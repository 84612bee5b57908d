package meshnet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
)

type alwaysFailPinger struct{}

func (alwaysFailPinger) Ping(ctx context.Context, peer PeerInfo) error {
	return assert.AnError
}

type alwaysAlivePinger struct{}

func (alwaysAlivePinger) Ping(ctx context.Context, peer PeerInfo) error {
	return nil
}

func TestTable_AddPeerAndResolve(t *testing.T) {
	table := NewTable("local", 2, nil, nil)
	ctx := context.Background()

	table.AddPeer(ctx, PeerInfo{ID: "peer-a", Multiaddr: "/ip4/1.2.3.4/tcp/1"})
	addr, ok := table.Resolve("peer-a")
	assert.True(t, ok)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/1", addr)
	assert.Equal(t, 1, table.Size())
}

func TestTable_RefreshingAnExistingPeerDoesNotDuplicateIt(t *testing.T) {
	table := NewTable("local", 2, nil, nil)
	ctx := context.Background()

	table.AddPeer(ctx, PeerInfo{ID: "peer-a", Multiaddr: "/ip4/1.2.3.4/tcp/1"})
	table.AddPeer(ctx, PeerInfo{ID: "peer-a", Multiaddr: "/ip4/1.2.3.4/tcp/2"})

	addr, ok := table.Resolve("peer-a")
	assert.True(t, ok)
	assert.Equal(t, "/ip4/1.2.3.4/tcp/2", addr)
	assert.Equal(t, 1, table.Size())
}

func TestTable_FullBucketEvictsDeadOldestPeer(t *testing.T) {
	table := NewTable("local", 1, alwaysFailPinger{}, nil)
	ctx := context.Background()

	// Ids are sha256-normalized to 256 bits, so their XOR distance from
	// the local id is past the 160-bucket range and bucketIndex clamps
	// both "peer-a" and "peer-b" to bucket 0. With k=1 the second insert
	// overflows that bucket, and the failing pinger evicts "peer-a".
	table.AddPeer(ctx, PeerInfo{ID: "peer-a", Multiaddr: "/a"})
	idxA := table.bucketIndex("peer-a")
	bucketSizeBefore := len(table.buckets[idxA])
	assert.Equal(t, 1, bucketSizeBefore)

	table.AddPeer(ctx, PeerInfo{ID: "peer-b", Multiaddr: "/b"})
	assert.Equal(t, idxA, table.bucketIndex("peer-b"))
	assert.Equal(t, 1, table.Size())
	_, ok := table.Resolve("peer-a")
	assert.False(t, ok)
	_, ok = table.Resolve("peer-b")
	assert.True(t, ok)
}

func TestTable_RandomPeer_EmptyReturnsFalse(t *testing.T) {
	table := NewTable("local", 2, nil, nil)
	_, ok := table.RandomPeer()
	assert.False(t, ok)
}

func TestTable_RandomPeer_ReturnsKnownPeer(t *testing.T) {
	table := NewTable("local", 2, nil, nil)
	ctx := context.Background()
	table.AddPeer(ctx, PeerInfo{ID: "peer-a", Multiaddr: "/a"})

	p, ok := table.RandomPeer()
	assert.True(t, ok)
	assert.Equal(t, aurora.PeerID("peer-a"), p)
}

func TestTable_Closest_LimitsToK(t *testing.T) {
	table := NewTable("local", 16, nil, nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		table.AddPeer(ctx, PeerInfo{ID: aurora.PeerID(id), Multiaddr: "/" + id})
	}

	closest := table.Closest("a")
	assert.LessOrEqual(t, len(closest), 16)
	assert.Len(t, closest, 4)
}
