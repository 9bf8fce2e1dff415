package mesh

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBar(t *testing.T, dir string) (string, string, *Model) {
	t.Helper()
	m, err := Generated(BarOptions{Radius: 1, Height: 3, Depth: 0.5, Segments: 6, Layers: 3})
	require.NoError(t, err)

	var vol, surf bytes.Buffer
	require.NoError(t, WriteVolume(&vol, m.Volume))
	require.NoError(t, WriteSurface(&surf, m.Volume.Vertices, m.Surface))

	volPath := filepath.Join(dir, "bar.msh")
	surfPath := filepath.Join(dir, "bar.obj")
	require.NoError(t, os.WriteFile(volPath, vol.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(surfPath, surf.Bytes(), 0o644))
	return volPath, surfPath, m
}

func TestLoad(t *testing.T) {
	volPath, surfPath, want := writeBar(t, t.TempDir())

	m, err := Load(context.Background(), volPath, surfPath, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, want.Volume.Vertices, m.Volume.Vertices)
	assert.Equal(t, want.Surface.Faces, m.Surface.Faces)

	derived, err := Load(context.Background(), volPath, "", DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, want.Surface.Faces, derived.Surface.Faces)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	volPath, _, _ := writeBar(t, dir)

	_, err := Load(context.Background(), volPath, filepath.Join(dir, "missing.obj"), DefaultTolerance)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.obj")
	require.NoError(t, os.WriteFile(bad, []byte("v 100 100 100\nf 1 1 1\n"), 0o644))
	_, err = Load(context.Background(), volPath, bad, DefaultTolerance)
	assert.ErrorIs(t, err, ErrUnmatchedVertex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Load(ctx, volPath, "", DefaultTolerance)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGate(t *testing.T) {
	g := NewGate()
	m, ok, err := g.Poll()
	assert.Nil(t, m)
	assert.False(t, ok)
	assert.NoError(t, err)

	want := &Model{}
	g.Resolve(want, nil)
	g.Resolve(nil, errors.New("ignored"))

	m, ok, err = g.Poll()
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Same(t, want, m)

	got, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestLoadAsync(t *testing.T) {
	volPath, surfPath, _ := writeBar(t, t.TempDir())
	g := LoadAsync(context.Background(), volPath, surfPath, DefaultTolerance)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m, err := g.Wait(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, m.Volume.Tetrahedra)

	_, ok, _ := g.Poll()
	assert.True(t, ok)
}

func TestGateWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGate().Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
