package metrics

import (
	"github.com/san-kum/softsim/internal/softbody"
)

// Record is one row of a run's frame log.
type Record struct {
	Frame       int     `csv:"frame" json:"frame"`
	Time        float64 `csv:"time" json:"time"`
	TipY        float64 `csv:"tip_y" json:"tip_y"`
	MinY        float64 `csv:"min_y" json:"min_y"`
	Kinetic     float64 `csv:"kinetic" json:"kinetic"`
	Potential   float64 `csv:"potential" json:"potential"`
	Penetration float64 `csv:"penetration" json:"penetration"`
	Sanitized   int64   `csv:"sanitized" json:"sanitized"`
	Mode        string  `csv:"mode" json:"mode"`
	K           float64 `csv:"k" json:"k"`
}

// NewRecord derives a Record from a frame sample.
func NewRecord(s softbody.Sample) Record {
	return Record{
		Frame:       s.Stats.Frame,
		Time:        s.Stats.Time,
		TipY:        TipHeight(s.Positions, s.Topology),
		MinY:        MinHeight(s.Positions, s.Topology),
		Kinetic:     KineticEnergy(s.Velocities, s.Topology.InvMass),
		Potential:   PotentialEnergy(s),
		Penetration: Penetration(s.Positions, s.Topology),
		Sanitized:   s.Stats.Sanitized,
		Mode:        s.Stats.Mode.String(),
		K:           s.Stats.Stiffness,
	}
}

// Recorder keeps a Record for every observed frame. A positive limit
// keeps only the most recent frames.
type Recorder struct {
	limit   int
	records []Record
}

func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) OnFrame(s softbody.Sample) {
	r.records = append(r.records, NewRecord(s))
	if r.limit > 0 && len(r.records) > r.limit {
		r.records = append(r.records[:0], r.records[len(r.records)-r.limit:]...)
	}
}

func (r *Recorder) Records() []Record { return r.records }
func (r *Recorder) Len() int          { return len(r.records) }
func (r *Recorder) Reset()            { r.records = r.records[:0] }

// Series extracts one column from records.
func Series(records []Record, field func(Record) float64) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i] = field(rec)
	}
	return out
}

func TipSeries(records []Record) []float64 {
	return Series(records, func(r Record) float64 { return r.TipY })
}

func TotalEnergySeries(records []Record) []float64 {
	return Series(records, func(r Record) float64 { return r.Kinetic + r.Potential })
}
