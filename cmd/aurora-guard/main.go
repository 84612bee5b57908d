// Command aurora-guard runs the Aurora eclipse-attack detector as a
// standalone libp2p node: it joins the overlay, periodically samples a
// random entry peer and walks the network checking for a bootstrap
// clique, and requests process shutdown the moment one is found.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmxmxh/aurora-guard/internal/aurora"
	"github.com/nmxmxh/aurora-guard/internal/meshnet"
)

const identityFile = "aurora_identity.json"

// persistentIdentity mirrors the teacher's internal/network.PersistentIdentity
// for keeping a stable peer id across restarts.
type persistentIdentity struct {
	PrivKey []byte `json:"priv_key"`
	PeerID  string `json:"peer_id"`
}

func loadOrCreateIdentity() (crypto.PrivKey, error) {
	data, err := os.ReadFile(identityFile)
	if err == nil {
		var id persistentIdentity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, err
		}
		return crypto.UnmarshalPrivateKey(id.PrivKey)
	}

	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, err
	}
	privBytes, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	pid, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(persistentIdentity{PrivKey: privBytes, PeerID: pid.String()})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(identityFile, out, 0o600); err != nil {
		return nil, err
	}
	return priv, nil
}

func main() {
	var (
		networkSize   = flag.Int("network-size", 2000, "assumed total network size (spec default)")
		mistakeT      = flag.Float64("mistake-threshold", 50, "accumulated mistake threshold before aborting a walk")
		numWalks      = flag.Int("num-walks", 1, "number of independent walks per tally")
		neighborsResp = flag.Int("neighbors-response-size", 16, "expected FIND_NODE response size")
		bootstrapPeer = flag.String("bootstrap", "", "multiaddr of an existing peer to bootstrap from, e.g. /ip4/1.2.3.4/tcp/4001/p2p/Qm...")
		interval      = flag.Duration("interval", 5*time.Minute, "how often to run a lookup_random pass")
		metricsAddr   = flag.String("metrics-addr", ":9477", "address to serve Prometheus metrics on")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "cmd.aurora-guard")

	priv, err := loadOrCreateIdentity()
	if err != nil {
		logger.Error("failed to load or create identity", "error", err)
		os.Exit(1)
	}

	host, err := libp2p.New(libp2p.Identity(priv))
	if err != nil {
		logger.Error("failed to start libp2p host", "error", err)
		os.Exit(1)
	}
	logger.Info("node started", "peer_id", host.ID().String(), "addrs", host.Addrs())

	registry := prometheus.NewRegistry()
	metrics := aurora.NewMetrics(registry)

	table := meshnet.NewTable(host.ID().String(), *neighborsResp, nil, logger)
	reputation := meshnet.NewReputationManager(6*time.Hour, logger)
	transport := meshnet.NewTransport(host, table, logger).WithReputation(reputation)
	transport.RegisterHandlers(table, localHeadHash(host.ID().String()))
	shutdown := meshnet.NewShutdown(host, logger)

	if *bootstrapPeer != "" {
		if err := connectBootstrap(context.Background(), host, table, *bootstrapPeer); err != nil {
			logger.Warn("failed to connect to bootstrap peer", "error", err)
		}
	}

	cfg := aurora.Config{
		NetworkSize:           *networkSize,
		MistakeThreshold:      *mistakeT,
		NumOfWalks:            *numWalks,
		NeighborsResponseSize: *neighborsResp,
	}
	core := aurora.NewCore(cfg, table, transport, transport, shutdown, metrics, nil, logger).
		WithCliqueObserver(reputation)

	go serveMetrics(*metricsAddr, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runLookupLoop(ctx, core, *interval, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received termination signal, shutting down")
	case <-shutdown.Done():
		logger.Warn("shutting down: malicious network activity detected")
	}
	cancel()
	host.Close()
}

func runLookupLoop(ctx context.Context, core *aurora.Core, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := core.LookupRandom(ctx); err != nil {
				logger.Error("lookup_random failed", "error", err)
			}
		}
	}
}

func connectBootstrap(ctx context.Context, host interface {
	Connect(context.Context, peer.AddrInfo) error
}, table *meshnet.Table, addr string) error {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return err
	}
	if err := host.Connect(ctx, *info); err != nil {
		return err
	}
	table.AddPeer(ctx, meshnet.PeerInfo{
		ID:          aurora.PeerID(info.ID.String()),
		Multiaddr:   addr,
		LastContact: time.Now(),
	})
	return nil
}

// localHeadHash derives a stable placeholder head hash for this node
// from its peer id; a real deployment wires this to the host chain's
// actual tip, which is outside Aurora's discovery-defense scope.
func localHeadHash(nodeID string) func() aurora.CandidateKey {
	sum := sha256.Sum256([]byte(nodeID))
	return func() aurora.CandidateKey {
		return aurora.CandidateKey(sum)
	}
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
