package meshnet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	libp2phost "github.com/libp2p/go-libp2p/core/host"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
)

// Protocol ids for the two RPCs Aurora needs over an established libp2p
// stream, following the teacher's single-stream request/response
// convention in internal/network/mesh.go.
const (
	findNodeProtocol protocol.ID = "/aurora/find-node/1.0.0"
	headHashProtocol protocol.ID = "/aurora/head-hash/1.0.0"
)

// AddressBook resolves an opaque Aurora peer id to a dialable
// multiaddress; *Table satisfies this.
type AddressBook interface {
	Resolve(id aurora.PeerID) (string, bool)
}

// Transport implements aurora.NeighborLookup and aurora.HeadHashOracle
// over libp2p streams, grounded on the teacher's
// internal/network/mesh.go SendPacket (Connect, NewStream, Write,
// ReadAll).
type Transport struct {
	host       libp2phost.Host
	addresses  AddressBook
	reputation *ReputationManager
	logger     *slog.Logger
}

// NewTransport builds a Transport bound to host, resolving peer
// addresses through addresses.
func NewTransport(host libp2phost.Host, addresses AddressBook, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{host: host, addresses: addresses, logger: logger.With("component", "meshnet.transport")}
}

// WithReputation attaches a ReputationManager that gets one Report call
// per RPC attempt, win or fail; it never feeds back into the RPC
// methods' own return values.
func (t *Transport) WithReputation(rm *ReputationManager) *Transport {
	t.reputation = rm
	return t
}

func (t *Transport) record(peer aurora.PeerID, err error) {
	if t.reputation != nil {
		t.reputation.Report(peer, err == nil)
	}
}

type findNodeRequest struct {
	Target string `json:"target"`
}

type findNodeResponse struct {
	Peers []string `json:"peers"`
}

// FindNode issues a FIND_NODE RPC against peer for randomTargetID and
// decodes the JSON-encoded peer list response.
func (t *Transport) FindNode(ctx context.Context, p aurora.PeerID, randomTargetID string) (peers []aurora.PeerID, err error) {
	defer func() { t.record(p, err) }()

	info, err := t.connect(ctx, p)
	if err != nil {
		return nil, err
	}

	stream, err := t.host.NewStream(ctx, info.ID, findNodeProtocol)
	if err != nil {
		return nil, fmt.Errorf("open find-node stream to %s: %w", p, err)
	}
	defer stream.Close()

	if err = json.NewEncoder(stream).Encode(findNodeRequest{Target: randomTargetID}); err != nil {
		return nil, fmt.Errorf("encode find-node request: %w", err)
	}

	var resp findNodeResponse
	if err = json.NewDecoder(stream).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode find-node response from %s: %w", p, err)
	}

	peers = make([]aurora.PeerID, len(resp.Peers))
	for i, id := range resp.Peers {
		peers[i] = aurora.PeerID(id)
	}
	return peers, nil
}

// HeadHash fetches the remote peer's current chain-head hash, bounded by
// timeout seconds.
func (t *Transport) HeadHash(ctx context.Context, p aurora.PeerID, timeout float64) (key aurora.CandidateKey, err error) {
	defer func() { t.record(p, err) }()

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
	defer cancel()

	info, err := t.connect(ctx, p)
	if err != nil {
		return aurora.CandidateKey{}, err
	}

	stream, err := t.host.NewStream(ctx, info.ID, headHashProtocol)
	if err != nil {
		return aurora.CandidateKey{}, fmt.Errorf("open head-hash stream to %s: %w", p, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(io.LimitReader(stream, 32))
	if err != nil {
		return aurora.CandidateKey{}, fmt.Errorf("read head hash from %s: %w", p, err)
	}

	copy(key[:], data)
	return key, nil
}

// RegisterHandlers installs the find-node and head-hash stream handlers
// on the host, answering incoming RPCs from other Aurora nodes. table
// supplies the closest-peer set; headHash returns this node's own
// current head hash.
func (t *Transport) RegisterHandlers(table *Table, headHash func() aurora.CandidateKey) {
	t.host.SetStreamHandler(findNodeProtocol, func(s network.Stream) {
		defer s.Close()
		var req findNodeRequest
		if err := json.NewDecoder(s).Decode(&req); err != nil {
			t.logger.Warn("malformed find-node request", "error", err)
			return
		}
		closest := table.Closest(req.Target)
		ids := make([]string, len(closest))
		for i, p := range closest {
			ids[i] = string(p.ID)
		}
		if err := json.NewEncoder(s).Encode(findNodeResponse{Peers: ids}); err != nil {
			t.logger.Warn("failed to write find-node response", "error", err)
		}
	})

	t.host.SetStreamHandler(headHashProtocol, func(s network.Stream) {
		defer s.Close()
		key := headHash()
		if _, err := s.Write(key[:]); err != nil {
			t.logger.Warn("failed to write head-hash response", "error", err)
		}
	})
}

func (t *Transport) connect(ctx context.Context, p aurora.PeerID) (peer.AddrInfo, error) {
	addr, ok := t.addresses.Resolve(p)
	if !ok {
		return peer.AddrInfo{}, fmt.Errorf("no known address for peer %s", p)
	}
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("parse multiaddr for %s: %w", p, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return peer.AddrInfo{}, fmt.Errorf("resolve addrinfo for %s: %w", p, err)
	}
	if err := t.host.Connect(ctx, *info); err != nil {
		return peer.AddrInfo{}, fmt.Errorf("connect to %s: %w", p, err)
	}
	return *info, nil
}
