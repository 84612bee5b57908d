package aurora

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"
)

// Core is the top-level Aurora component: it picks a random entry node
// from the external routing table and runs a tally, broadcasting a
// shutdown request if a clique is detected.
type Core struct {
	cfg      Config
	entries  RandomEntryProvider
	tallier  *Tallier
	shutdown ShutdownSink
	logger   *slog.Logger
}

// NewCore wires a Core from its collaborators. metrics may be nil.
func NewCore(cfg Config, entries RandomEntryProvider, lookup NeighborLookup, heads HeadHashOracle,
	shutdown ShutdownSink, metrics *Metrics, rnd *rand.Rand, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "aurora.core")
	walker := NewWalker(lookup, heads, rnd, logger).WithMetrics(metrics)
	return &Core{
		cfg:      cfg,
		entries:  entries,
		tallier:  NewTallier(walker, metrics, logger),
		shutdown: shutdown,
		logger:   logger,
	}
}

// WithCliqueObserver attaches a CliqueObserver that gets notified with the
// entry peer of any walk a tally aborts on, e.g. to feed an external
// reputation system. Optional; never consulted by the core's own
// decision logic.
func (c *Core) WithCliqueObserver(o CliqueObserver) *Core {
	c.tallier.WithObserver(o)
	return c
}

// LookupRandom picks a random entry node and runs a tally against it. On
// CliqueDetected it invokes BroadcastShutdown and returns nil — clique
// detection is a protocol-level signal, not a caller-visible failure.
func (c *Core) LookupRandom(ctx context.Context) error {
	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	logger.Info("aurora component lookup started")

	entry, ok := c.entries.RandomPeer()
	if !ok {
		return newError(ErrNoCandidates, "routing table has no peers to enter from")
	}

	_, _, _, err := c.tallier.Tally(ctx, entry, c.cfg.networkParams(), c.cfg.thresholds())
	if err != nil {
		if errors.Is(err, ErrClique) {
			logger.Warn("clique detected during p2p discovery, broadcasting shutdown")
			c.shutdown.BroadcastShutdown("Possible malicious network - exiting!")
			return nil
		}
		return err
	}
	return nil
}
