package aurora

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedEntryProvider struct {
	id PeerID
	ok bool
}

func (f fixedEntryProvider) RandomPeer() (PeerID, bool) { return f.id, f.ok }

type recordingShutdown struct {
	called bool
	reason string
}

func (r *recordingShutdown) BroadcastShutdown(reason string) {
	r.called = true
	r.reason = reason
}

func TestCore_LookupRandom_NoPeersIsAnError(t *testing.T) {
	core := NewCore(DefaultConfig(), fixedEntryProvider{ok: false}, &mockNeighborLookup{}, &mockHeadHashOracle{}, &recordingShutdown{}, nil, nil, nil)
	err := core.LookupRandom(context.Background())
	assert.Error(t, err)
}

func TestCore_LookupRandom_CliqueTriggersShutdownNotError(t *testing.T) {
	lookup := &mockNeighborLookup{responses: map[PeerID][]PeerID{
		"a": {"x", "y"},
		"x": {"x", "y"},
		"y": {"x", "y"},
	}}
	heads := &mockHeadHashOracle{hashes: honestHeads("a", "x", "y")}
	shutdown := &recordingShutdown{}

	cfg := Config{NetworkSize: 10, MistakeThreshold: 0.01, NumOfWalks: 1, NeighborsResponseSize: 2}
	core := NewCore(cfg, fixedEntryProvider{id: "a", ok: true}, lookup, heads, shutdown, nil, nil, nil)

	err := core.LookupRandom(context.Background())
	assert.NoError(t, err)
	assert.True(t, shutdown.called)
}

func TestCore_LookupRandom_HonestNetworkNeverShutsDown(t *testing.T) {
	lookup := &mockNeighborLookup{responses: map[PeerID][]PeerID{
		"a": {"b", "c"},
		"b": {"c", "d"},
		"c": {"d", "a"},
		"d": {"a", "b"},
	}}
	heads := &mockHeadHashOracle{hashes: honestHeads("a", "b", "c", "d")}
	shutdown := &recordingShutdown{}

	cfg := Config{NetworkSize: 4, MistakeThreshold: 50, NumOfWalks: 1, NeighborsResponseSize: 2}
	core := NewCore(cfg, fixedEntryProvider{id: "a", ok: true}, lookup, heads, shutdown, nil, nil, nil)

	err := core.LookupRandom(context.Background())
	assert.NoError(t, err)
	assert.False(t, shutdown.called)
}
