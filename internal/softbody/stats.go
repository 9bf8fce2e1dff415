package softbody

import (
	"log/slog"
	"time"
)

// FrameStats summarises one animation tick.
type FrameStats struct {
	Frame     int
	Time      float64
	Mode      ForceMode
	Stiffness float64
	Substeps  int
	// Sanitized counts skipped near-zero edges and zeroed non-finite velocities.
	Sanitized int64
	Elapsed   time.Duration
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("time", s.Time),
		slog.String("mode", s.Mode.String()),
		slog.Float64("k", s.Stiffness),
		slog.Int("substeps", s.Substeps),
		slog.Int64("sanitized", s.Sanitized),
		slog.Duration("elapsed", s.Elapsed),
	)
}
