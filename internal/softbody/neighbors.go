package softbody

// DefaultCapacity is the number of edges each vertex can hold.
const DefaultCapacity = 32

// Edge is a distance constraint owned by the vertex whose row stores it.
type Edge struct {
	Neighbor   int
	RestLength float64
}

// NeighborTable stores a fixed-capacity, count-bounded edge row per vertex
// in one flat slice.
type NeighborTable struct {
	capacity int
	counts   []int
	edges    []Edge
}

func NewNeighborTable(vertices, capacity int) *NeighborTable {
	return &NeighborTable{
		capacity: capacity,
		counts:   make([]int, vertices),
		edges:    make([]Edge, vertices*capacity),
	}
}

func (t *NeighborTable) Capacity() int { return t.capacity }
func (t *NeighborTable) Vertices() int { return len(t.counts) }
func (t *NeighborTable) Len(i int) int { return t.counts[i] }

// Row returns the stored edges of vertex i. The slice is capped so that
// appending to it cannot write into the next row.
func (t *NeighborTable) Row(i int) []Edge {
	start := i * t.capacity
	end := start + t.counts[i]
	return t.edges[start:end:end]
}

// Add appends e to row i, or returns a *TopologyOverflowError when the row
// is full.
func (t *NeighborTable) Add(i int, e Edge) error {
	n := t.counts[i]
	if n >= t.capacity {
		return &TopologyOverflowError{Vertex: i, Neighbor: e.Neighbor, Capacity: t.capacity}
	}
	t.edges[i*t.capacity+n] = e
	t.counts[i] = n + 1
	return nil
}

// Contains reports whether row i already holds an edge to j.
func (t *NeighborTable) Contains(i, j int) bool {
	return containsNeighbor(t.Row(i), j)
}

// EdgeCount is the total number of stored edges.
func (t *NeighborTable) EdgeCount() int {
	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

func containsNeighbor(row []Edge, j int) bool {
	for _, e := range row {
		if e.Neighbor == j {
			return true
		}
	}
	return false
}
