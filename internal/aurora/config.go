package aurora

// Config holds the enumerated Aurora options from spec.md §6. All fields
// have production defaults matching the reference implementation.
type Config struct {
	NetworkSize           int     // N, default 2000
	MistakeThreshold      float64 // T, default 50
	NumOfWalks            int     // K, default 1
	NeighborsResponseSize int     // r, default 16 (Kademlia bucket size)
}

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		NetworkSize:           2000,
		MistakeThreshold:      50,
		NumOfWalks:            1,
		NeighborsResponseSize: 16,
	}
}

func (c Config) networkParams() NetworkParams {
	return AssumedMaliciousParams(c.NetworkSize, c.NeighborsResponseSize)
}

func (c Config) thresholds() Thresholds {
	return Thresholds{T: c.MistakeThreshold, K: c.NumOfWalks}
}
