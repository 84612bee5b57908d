package meshnet

import (
	"context"
	"log/slog"
	"sync"

	libp2phost "github.com/libp2p/go-libp2p/core/host"
)

// Shutdown is a channel-based aurora.ShutdownSink, adapted from the
// teacher's gossip manager shutdown-channel idiom
// (kernel/core/mesh/routing/gossip.go): BroadcastShutdown closes a
// channel exactly once and, if a host was supplied, closes it too.
type Shutdown struct {
	once   sync.Once
	done   chan struct{}
	host   libp2phost.Host
	logger *slog.Logger
}

// NewShutdown builds a Shutdown sink. host may be nil if the caller
// manages host lifecycle itself.
func NewShutdown(host libp2phost.Host, logger *slog.Logger) *Shutdown {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shutdown{
		done:   make(chan struct{}),
		host:   host,
		logger: logger.With("component", "meshnet.shutdown"),
	}
}

// BroadcastShutdown implements aurora.ShutdownSink. Safe to call more
// than once; only the first call has effect.
func (s *Shutdown) BroadcastShutdown(reason string) {
	s.once.Do(func() {
		s.logger.Warn("shutdown requested", "reason", reason)
		close(s.done)
		if s.host != nil {
			if err := s.host.Close(); err != nil {
				s.logger.Error("error closing host during shutdown", "error", err)
			}
		}
	})
}

// Done returns a channel closed once BroadcastShutdown has fired, for
// callers (e.g. cmd/aurora-guard) that select on it to unwind their main
// loop.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until shutdown is broadcast or ctx is cancelled, whichever
// comes first.
func (s *Shutdown) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
