package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/softsim/internal/metrics"
)

type ExportData struct {
	Run    RunMetadata      `json:"run"`
	Frames []metrics.Record `json:"frames"`
}

// ExportJSON writes a stored run, metadata and frames, as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Frames: frames})
}
