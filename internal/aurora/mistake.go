package aurora

// Mistake quantifies how suspicious an observed neighbor-response overlap
// is under the null hypothesis that the responder is honest. N is the
// network size, K the assumed-malicious count, n the response size, and
// kObs the number of peers in that response already present in our
// collected set.
func Mistake(N, K, n, kObs int) (float64, error) {
	h, err := NewHypergeometric(N, K, n)
	if err != nil {
		return 0, err
	}

	median := h.Median()

	pGood := h.CDF(median)

	pBad := 0.0
	for i := median + 1; i <= n; i++ {
		pBad += h.PMF(i)
	}

	pSeen := 0.0
	for i := median + 1; i <= kObs; i++ {
		pSeen += h.PMF(i)
	}

	if pBad == 0 {
		return 0, nil
	}
	ratio := pGood / pBad
	dampen := pSeen / pBad
	return ratio * dampen, nil
}
