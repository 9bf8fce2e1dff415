package audio

import (
	"log/slog"
	"math"
	"math/cmplx"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	SampleRate = 44100
	BufferSize = 1024
)

// Levels are smoothed band energies of the synthesized signal, in [0, 1].
type Levels struct {
	Bass, Mid, High float64
}

// Sonifier turns solver frames into a stereo drone. Tip deflection bends
// the pitch and kinetic energy opens the filter. It is a softbody.Observer.
type Sonifier struct {
	stream *portaudio.Stream
	logger *slog.Logger

	mu         sync.Mutex
	deflection float64
	energy     float64
	levels     Levels

	// synthesis state, owned by the audio callback
	time         float64
	bendSmooth   float64
	energySmooth float64
	filter       [2]float64
	delay        [2][]float64
	head         int
	spectrum     []complex128
	maxLevel     float64

	active bool
}

func NewSonifier(logger *slog.Logger) *Sonifier {
	if logger == nil {
		logger = slog.Default()
	}
	delayLen := int(float64(SampleRate) * 0.6)
	return &Sonifier{
		logger:   logger,
		delay:    [2][]float64{make([]float64, delayLen), make([]float64, delayLen)},
		spectrum: make([]complex128, BufferSize),
		maxLevel: 0.1,
	}
}

// Start opens the default output device.
func (s *Sonifier) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, s.Synthesize)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	s.stream = stream
	s.active = true
	s.logger.Info("audio started", "sample_rate", SampleRate, "buffer", BufferSize)
	return nil
}

func (s *Sonifier) Stop() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
	if s.active {
		portaudio.Terminate()
	}
	s.active = false
}

func (s *Sonifier) Active() bool { return s.active }

func (s *Sonifier) OnFrame(sample softbody.Sample) {
	deflection := metrics.TipOffset(sample.Positions, sample.Topology)
	energy := metrics.KineticEnergy(sample.Velocities, sample.Topology.InvMass)
	s.mu.Lock()
	s.deflection = deflection
	s.energy = energy
	s.mu.Unlock()
}

func (s *Sonifier) Levels() Levels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels
}

func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// one pole low pass
func lpf(sample, cutoff, dt, state float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	return state + alpha*(sample-state)
}

// Synthesize fills one stereo block. It is the portaudio callback.
func (s *Sonifier) Synthesize(out [][]float32) {
	// Gm7 add9
	freqs := []float64{98.00, 116.54, 146.83, 174.61, 220.00}

	s.mu.Lock()
	targetBend := s.deflection
	targetEnergy := s.energy
	s.mu.Unlock()

	s.bendSmooth = s.bendSmooth*0.99 + math.Min(targetBend, 2)*0.01
	s.energySmooth = s.energySmooth*0.995 + targetEnergy*0.005

	// a full unit of deflection bends up a fifth
	bend := math.Pow(1.5, s.bendSmooth)
	cutoff := 300.0 + math.Min(s.energySmooth/5.0, 900.0)
	dt := 1.0 / float64(SampleRate)
	const vol = 0.25

	for i := range out[0] {
		var l, r float64
		for j, f := range freqs {
			g := 1.0 / float64(len(freqs))
			lfo := math.Sin(s.time*0.2 + float64(j))
			l += triangle(s.time*f*bend*0.999) * g * (0.7 + 0.3*lfo)
			r += triangle(s.time*f*bend*1.001) * g * (0.7 + 0.3*lfo)
		}
		s.filter[0] = lpf(l, cutoff, dt, s.filter[0])
		s.filter[1] = lpf(r, cutoff, dt, s.filter[1])

		dl := s.delay[0][s.head]
		dr := s.delay[1][s.head]
		mixL := s.filter[0] + dl*0.3 + dr*0.1
		mixR := s.filter[1] + dr*0.3 + dl*0.1
		s.delay[0][s.head] = mixL * 0.7
		s.delay[1][s.head] = mixR * 0.7
		s.head = (s.head + 1) % len(s.delay[0])

		out[0][i] = float32(mixL * vol)
		if len(out) > 1 {
			out[1][i] = float32(mixR * vol)
		}
		s.time += dt
	}
	s.analyze(out[0])
}

// analyze buckets the block spectrum into three bands for the level meter.
func (s *Sonifier) analyze(block []float32) {
	n := len(block)
	if n == 0 {
		return
	}
	if len(s.spectrum) != n {
		s.spectrum = make([]complex128, n)
	}
	for i, v := range block {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(max(n-1, 1))))
		s.spectrum[i] = complex(float64(v)*w, 0)
	}
	bins := fft.FFT(s.spectrum)

	// band edges in Hz
	binHz := float64(SampleRate) / float64(n)
	var bass, mid, high float64
	for i := 1; i < n/2; i++ {
		mag := cmplx.Abs(bins[i])
		switch f := float64(i) * binHz; {
		case f < 200:
			bass += mag
		case f < 2000:
			mid += mag
		default:
			high += mag
		}
	}

	peak := math.Max(bass, math.Max(mid, high))
	if peak > s.maxLevel {
		s.maxLevel = peak
	} else {
		s.maxLevel *= 0.999
	}
	gain := 1.0 / math.Max(s.maxLevel, 1e-3)

	s.mu.Lock()
	s.levels.Bass = s.levels.Bass*0.9 + math.Min(bass*gain, 1)*0.1
	s.levels.Mid = s.levels.Mid*0.9 + math.Min(mid*gain, 1)*0.1
	s.levels.High = s.levels.High*0.9 + math.Min(high*gain, 1)*0.1
	s.mu.Unlock()
}
