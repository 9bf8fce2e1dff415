package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
)

// Stability is the fraction of frames that needed no sanitizing and whose
// vertices all stayed within threshold of the origin.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample softbody.Sample) {
	s.samples++
	if sample.Stats.Sanitized > 0 {
		s.violations++
		return
	}
	for _, p := range sample.Positions {
		if math.Abs(p.X) > s.threshold || math.Abs(p.Y) > s.threshold || math.Abs(p.Z) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
