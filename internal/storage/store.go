package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/metrics"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Preset     string             `json:"preset"`
	Mesh       string             `json:"mesh"`
	Timestamp  time.Time          `json:"timestamp"`
	Vertices   int                `json:"vertices"`
	Tetrahedra int                `json:"tetrahedra"`
	Edges      int                `json:"edges"`
	K          float64            `json:"k"`
	Kd         float64            `json:"kd"`
	Kc         float64            `json:"kc"`
	FrameDt    float64            `json:"frame_dt"`
	Substeps   int                `json:"substeps"`
	Mode       string             `json:"mode"`
	Frames     int                `json:"frames"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Run is an open run directory that receives frames as they are produced.
type Run struct {
	id            string
	dir           string
	frames        *os.File
	headerWritten bool
	count         int
	err           error
}

// Create makes a new run directory named after name and the current time
// and stores cfg next to the frame log.
func (s *Store) Create(name string, cfg *config.Config) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for i := 1; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		runID = fmt.Sprintf("%s-%d", base, i)
	}
	dir := filepath.Join(s.baseDir, runID)

	if cfg != nil {
		if err := config.Save(filepath.Join(dir, configFile), cfg); err != nil {
			return nil, fmt.Errorf("writing %s: %w", configFile, err)
		}
	}
	f, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", framesFile, err)
	}
	return &Run{id: runID, dir: dir, frames: f}, nil
}

func (r *Run) ID() string { return r.id }

// WriteFrame appends one record to frames.csv.
func (r *Run) WriteFrame(rec metrics.Record) error {
	if r.err != nil {
		return r.err
	}
	records := []metrics.Record{rec}
	var err error
	if !r.headerWritten {
		err = gocsv.Marshal(records, r.frames)
		r.headerWritten = true
	} else {
		err = gocsv.MarshalWithoutHeaders(records, r.frames)
	}
	if err != nil {
		r.err = fmt.Errorf("writing frame: %w", err)
		return r.err
	}
	r.count++
	return nil
}

// Close writes metadata.json and closes the frame log. The first frame
// write error, if any, is returned.
func (r *Run) Close(meta RunMetadata) error {
	closeErr := r.frames.Close()
	if r.err != nil {
		return r.err
	}
	if closeErr != nil {
		return closeErr
	}
	meta.ID = r.id
	meta.Frames = r.count
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	return writeMetadata(filepath.Join(r.dir, metadataFile), meta)
}

// Save writes a finished run in one go.
func (s *Store) Save(name string, cfg *config.Config, meta RunMetadata, records []metrics.Record) (string, error) {
	run, err := s.Create(name, cfg)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if err := run.WriteFrame(rec); err != nil {
			run.frames.Close()
			return "", err
		}
	}
	if err := run.Close(meta); err != nil {
		return "", err
	}
	return run.ID(), nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadConfig reads the configuration a run was made with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadFrames(runID string) ([]metrics.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}

	records := []metrics.Record{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := gocsv.Unmarshal(bytes.NewReader(data), &records); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return records, nil
}

// Latest returns the id of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s", s.baseDir)
	}
	return runs[len(runs)-1].ID, nil
}
