package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is the render surface of a volume mesh. All indices refer to
// volume vertices.
type Surface struct {
	// Vertices maps surface vertex order to volume vertex ids.
	Vertices []int
	Faces    [][3]int
}

// Indices flattens the faces into a triangle index buffer.
func (s *Surface) Indices() []int {
	out := make([]int, 0, 3*len(s.Faces))
	for _, f := range s.Faces {
		out = append(out, f[0], f[1], f[2])
	}
	return out
}

// Edges returns each undirected face edge once, in first-seen order.
func (s *Surface) Edges() [][2]int {
	seen := make(map[[2]int]struct{}, 3*len(s.Faces)/2)
	out := make([][2]int, 0, 3*len(s.Faces)/2)
	for _, f := range s.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// ParseSurface reads an OBJ-style surface and remaps it onto vertices. Each
// `v` record is matched to the nearest volume vertex within tol; `f`
// records reference 1-based surface vertices and are fan-triangulated.
func ParseSurface(r io.Reader, vertices []r3.Vec, tol float64) (*Surface, error) {
	return parseSurface("surface", r, vertices, tol)
}

func parseSurface(source string, r io.Reader, vertices []r3.Vec, tol float64) (*Surface, error) {
	matcher := NewMatcher(vertices, tol)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	surf := &Surface{}
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, &ParseError{Source: source, Line: line, Text: text, Reason: "vertex needs 3 coordinates"}
			}
			p, err := parseVec(fields[1:4])
			if err != nil {
				return nil, &ParseError{Source: source, Line: line, Text: text, Reason: err.Error()}
			}
			id, dist, ok := matcher.Match(p)
			if !ok {
				return nil, &UnmatchedSurfaceVertexError{Source: source, Line: line, Position: p, Distance: dist}
			}
			surf.Vertices = append(surf.Vertices, id)
		case "f":
			if len(fields) < 4 {
				return nil, &ParseError{Source: source, Line: line, Text: text, Reason: "face needs at least 3 corners"}
			}
			corners := make([]int, 0, len(fields)-1)
			for _, f := range fields[1:] {
				idx, err := faceIndex(f, len(surf.Vertices))
				if err != nil {
					return nil, &ParseError{Source: source, Line: line, Text: text, Reason: err.Error()}
				}
				corners = append(corners, surf.Vertices[idx])
			}
			for k := 1; k+1 < len(corners); k++ {
				surf.Faces = append(surf.Faces, [3]int{corners[0], corners[k], corners[k+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	if len(surf.Faces) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmpty)
	}
	return surf, nil
}

// faceIndex parses `i`, `i/t` or `i/t/n` and returns the zero-based vertex index.
func faceIndex(field string, n int) (int, error) {
	if slash := strings.IndexByte(field, '/'); slash >= 0 {
		field = field[:slash]
	}
	i, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", field)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("face index %d out of range [1, %d]", i, n)
	}
	return i - 1, nil
}

// WriteSurface writes the faces of s as an OBJ file. Only vertices used by
// a face are emitted.
func WriteSurface(w io.Writer, vertices []r3.Vec, s *Surface) error {
	bw := bufio.NewWriter(w)
	local := make(map[int]int, len(s.Vertices))
	order := make([]int, 0, len(s.Vertices))
	for _, f := range s.Faces {
		for _, id := range f {
			if _, ok := local[id]; !ok {
				local[id] = len(order)
				order = append(order, id)
			}
		}
	}
	fmt.Fprintln(bw, "o softbody")
	for _, id := range order {
		p := vertices[id]
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, f := range s.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", local[f[0]]+1, local[f[1]]+1, local[f[2]]+1)
	}
	return bw.Flush()
}
