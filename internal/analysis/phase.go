package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/softsim/internal/metrics"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Points []struct{ X, Y float64 }
}

// TipPhasePortrait plots tip height against its rate of change, using
// central differences over the frame records.
func TipPhasePortrait(records []metrics.Record) *PhasePortrait2D {
	if len(records) < 3 {
		return nil
	}
	portrait := &PhasePortrait2D{
		Points: make([]struct{ X, Y float64 }, 0, len(records)-2),
	}
	for i := 1; i+1 < len(records); i++ {
		dt := records[i+1].Time - records[i-1].Time
		if dt <= 0 {
			continue
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: records[i].TipY,
			Y: (records[i+1].TipY - records[i-1].TipY) / dt,
		})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// Find bounds
	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Zero velocity line
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Peak is a local maximum of a series.
type Peak struct {
	Index int
	Value float64
}

// Peaks returns the strict local maxima of series in order.
func Peaks(series []float64) []Peak {
	var out []Peak
	for i := 1; i+1 < len(series); i++ {
		if series[i] > series[i-1] && series[i] >= series[i+1] {
			out = append(out, Peak{Index: i, Value: series[i]})
		}
	}
	return out
}

// DampingRatio estimates ζ from the logarithmic decrement of successive
// peak amplitudes around the series mean. It returns 0 when fewer than two
// peaks are found or the amplitude does not decay.
func DampingRatio(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	centred := make([]float64, len(series))
	for i, v := range series {
		centred[i] = v - mean
	}
	peaks := Peaks(centred)
	var amps []float64
	for _, p := range peaks {
		if p.Value > 0 {
			amps = append(amps, p.Value)
		}
	}
	if len(amps) < 2 {
		return 0
	}
	delta := math.Log(amps[0]/amps[len(amps)-1]) / float64(len(amps)-1)
	if delta <= 0 {
		return 0
	}
	return delta / math.Sqrt(4*math.Pi*math.Pi+delta*delta)
}

// ReturnMap pairs each peak with the next one. A decaying oscillation
// lies below the diagonal.
func ReturnMap(series []float64) *PhasePortrait2D {
	peaks := Peaks(series)
	if len(peaks) < 2 {
		return nil
	}
	m := &PhasePortrait2D{Points: make([]struct{ X, Y float64 }, 0, len(peaks)-1)}
	for i := 0; i+1 < len(peaks); i++ {
		m.Points = append(m.Points, struct{ X, Y float64 }{X: peaks[i].Value, Y: peaks[i+1].Value})
	}
	return m
}
