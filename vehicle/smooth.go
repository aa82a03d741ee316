package vehicle

import "sync"

// Smoother applies a per-channel exponential moving average,
// y = alpha*x + (1-alpha)*y_prev, seeded with the first observation
// so there is no artificial startup transient. Channels without a
// configured alpha pass through untouched.
type Smoother struct {
	mu     sync.Mutex
	alphas map[string]float64
	prev   map[string]float64
	seen   map[string]bool
}

// NewSmoother builds a filter for the designated channels. Alphas
// outside (0,1] are ignored (pass-through).
func NewSmoother(alphas map[string]float64) *Smoother {
	s := &Smoother{
		alphas: make(map[string]float64, len(alphas)),
		prev:   make(map[string]float64),
		seen:   make(map[string]bool),
	}
	for channel, alpha := range alphas {
		if alpha > 0 && alpha <= 1 {
			s.alphas[channel] = alpha
		}
	}
	return s
}

// Designated reports whether channel has a configured alpha.
func (s *Smoother) Designated(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.alphas[channel]
	return ok
}

// Update feeds one raw sample and returns the filtered value.
func (s *Smoother) Update(channel string, x float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	alpha, ok := s.alphas[channel]
	if !ok {
		return x
	}
	if !s.seen[channel] {
		s.seen[channel] = true
		s.prev[channel] = x
		return x
	}

	y := alpha*x + (1-alpha)*s.prev[channel]
	s.prev[channel] = y
	return y
}

// Reset forgets a channel's history so the next sample reseeds it.
func (s *Smoother) Reset(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.seen, channel)
	delete(s.prev, channel)
}
