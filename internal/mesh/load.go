package mesh

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Model is a volume mesh together with its render surface.
type Model struct {
	Volume  *Volume
	Surface *Surface
}

// Load reads the volume and surface files concurrently and returns once
// both have been read and parsed. An empty surfacePath derives the surface
// from the volume boundary.
func Load(ctx context.Context, volumePath, surfacePath string, tol float64) (*Model, error) {
	g, ctx := errgroup.WithContext(ctx)

	var vol *Volume
	g.Go(func() error {
		data, err := readFile(ctx, volumePath)
		if err != nil {
			return err
		}
		vol, err = parseVolume(volumePath, bytes.NewReader(data))
		return err
	})

	var surfData []byte
	if surfacePath != "" {
		g.Go(func() error {
			var err error
			surfData, err = readFile(ctx, surfacePath)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if surfacePath == "" {
		return &Model{Volume: vol, Surface: BoundarySurface(vol)}, nil
	}
	surf, err := parseSurface(surfacePath, bytes.NewReader(surfData), vol.Vertices, tol)
	if err != nil {
		return nil, err
	}
	return &Model{Volume: vol, Surface: surf}, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading mesh: %w", err)
	}
	return data, nil
}

// Generated builds the default bar model in memory.
func Generated(o BarOptions) (*Model, error) {
	vol, err := GenerateBar(o)
	if err != nil {
		return nil, err
	}
	return &Model{Volume: vol, Surface: BoundarySurface(vol)}, nil
}

// Gate holds the result of a mesh load that may still be in flight.
type Gate struct {
	done  chan struct{}
	once  sync.Once
	model *Model
	err   error
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// ReadyGate returns a gate already resolved with m.
func ReadyGate(m *Model) *Gate {
	g := NewGate()
	g.Resolve(m, nil)
	return g
}

// LoadAsync starts Load in the background and returns its gate.
func LoadAsync(ctx context.Context, volumePath, surfacePath string, tol float64) *Gate {
	g := NewGate()
	go func() {
		g.Resolve(Load(ctx, volumePath, surfacePath, tol))
	}()
	return g
}

// Resolve records the load result. Only the first call has an effect.
func (g *Gate) Resolve(m *Model, err error) {
	g.once.Do(func() {
		g.model, g.err = m, err
		close(g.done)
	})
}

// Poll reports the result without blocking; ok is false while loading.
func (g *Gate) Poll() (m *Model, ok bool, err error) {
	select {
	case <-g.done:
		return g.model, true, g.err
	default:
		return nil, false, nil
	}
}

// Wait blocks until the gate resolves or ctx is done.
func (g *Gate) Wait(ctx context.Context) (*Model, error) {
	select {
	case <-g.done:
		return g.model, g.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
