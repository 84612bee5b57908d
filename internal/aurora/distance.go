package aurora

import "math"

// minWalkDistance is the small positive constant returned when no malicious
// nodes are assumed present: a single hop suffices.
const minWalkDistance = 1.0

// AssumedMalicious is the default assumed-malicious-node count for a
// network of size N: ceil(N/2) - 1.
func AssumedMalicious(N int) int {
	return int(math.Ceil(float64(N)/2)) - 1
}

// EstimateDistance computes the expected number of hops before the walk
// encounters an honest node, from an absorbing Markov chain over states
// 0..m ("i malicious peers already revealed"). r is clamped to N.
func EstimateDistance(N, m, r int) (float64, error) {
	if N <= 0 {
		return 0, newError(ErrInvalidDomain, "network size must be positive").withContext("N", N)
	}
	if m < 0 || m >= N {
		return 0, newError(ErrInvalidDomain, "malicious count out of range").
			withContext("N", N).withContext("m", m)
	}
	if r > N {
		r = N
	}
	if m == 0 {
		return minWalkDistance, nil
	}

	d := m + 1
	transition := NewMatrix(d, d)
	for row := 0; row < d; row++ {
		for col := row; col < d; col++ {
			h, err := NewHypergeometric(N, m-row, r)
			if err != nil {
				return 0, err
			}
			transition.Set(row, col, h.PMF(col-row))
		}
	}

	q := NewMatrix(d-1, d-1)
	for r2 := 0; r2 < d-1; r2++ {
		for c2 := 0; c2 < d-1; c2++ {
			q.Set(r2, c2, transition.At(r2, c2))
		}
	}

	fundamental, err := Identity(d - 1).Sub(q).Inverse()
	if err != nil {
		return 0, err
	}
	return fundamental.RowSum(0), nil
}
