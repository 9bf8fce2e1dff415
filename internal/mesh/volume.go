package mesh

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Volume is a tetrahedral mesh in its rest configuration.
type Volume struct {
	Vertices   []r3.Vec
	Tetrahedra [][4]int
}

const maxLine = 1 << 20

// ParseVolume reads a tetrahedral mesh. A line with exactly four fields
// `<tag> x y z` is a vertex; a line with exactly eight fields is a
// tetrahedron whose fields 3..6 are 1-based vertex indices. Every other line
// is ignored.
func ParseVolume(r io.Reader) (*Volume, error) {
	return parseVolume("volume", r)
}

func parseVolume(source string, r io.Reader) (*Volume, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	vol := &Volume{}
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		fields := strings.Fields(text)
		switch len(fields) {
		case 4:
			p, err := parseVec(fields[1:4])
			if err != nil {
				return nil, &ParseError{Source: source, Line: line, Text: text, Reason: err.Error()}
			}
			vol.Vertices = append(vol.Vertices, p)
		case 8:
			var ids [4]int
			for k := 0; k < 4; k++ {
				id, err := strconv.Atoi(fields[3+k])
				if err != nil {
					return nil, &ParseError{Source: source, Line: line, Text: text, Reason: fmt.Sprintf("bad vertex index %q", fields[3+k])}
				}
				// only vertices defined above this line may be referenced
				if id < 1 || id > len(vol.Vertices) {
					return nil, &ParseError{Source: source, Line: line, Text: text,
						Reason: fmt.Sprintf("vertex index %d out of range [1, %d]", id, len(vol.Vertices))}
				}
				ids[k] = id - 1
			}
			vol.Tetrahedra = append(vol.Tetrahedra, ids)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	n := len(vol.Vertices)
	if n == 0 || len(vol.Tetrahedra) == 0 {
		return nil, fmt.Errorf("%s: %d vertices, %d tetrahedra: %w", source, n, len(vol.Tetrahedra), ErrEmpty)
	}
	return vol, nil
}

func parseVec(fields []string) (r3.Vec, error) {
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return r3.Vec{}, fmt.Errorf("bad coordinate %q", f)
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// SignedVolume returns ((p1-p0) x (p2-p0)) . (p3-p0), six times the
// geometric volume of the tetrahedron.
func SignedVolume(p0, p1, p2, p3 r3.Vec) float64 {
	return r3.Dot(r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0)), r3.Sub(p3, p0))
}

// WriteVolume writes v in the format read by ParseVolume.
func WriteVolume(w io.Writer, v *Volume) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "$Nodes")
	fmt.Fprintln(bw, len(v.Vertices))
	for i, p := range v.Vertices {
		fmt.Fprintf(bw, "%d %s %s %s\n", i+1, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	fmt.Fprintln(bw, "$EndNodes")
	fmt.Fprintln(bw, "$Elements")
	fmt.Fprintln(bw, len(v.Tetrahedra))
	for i, t := range v.Tetrahedra {
		fmt.Fprintf(bw, "%d 4 0 %d %d %d %d 0\n", i+1, t[0]+1, t[1]+1, t[2]+1, t[3]+1)
	}
	fmt.Fprintln(bw, "$EndElements")
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
