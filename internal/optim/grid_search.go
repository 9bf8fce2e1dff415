package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Objective scores one parameter assignment. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Result is one evaluated grid point.
type Result struct {
	Params map[string]float64
	Score  float64
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}
}

// SetWorkers bounds how many points are evaluated at once.
func (g *GridSearch) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	g.workers = n
}

// Points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	if len(g.paramNames) == 0 {
		return nil
	}
	var out []map[string]float64
	g.collect(0, make(map[string]float64, len(g.paramNames)), &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	for _, val := range g.ranges[depth] {
		current[g.paramNames[depth]] = val
		g.collect(depth+1, current, out)
	}
}

// Search evaluates every grid point and returns the best one along with all
// results in grid order. NaN scores never win; ties go to the earlier point.
// The first objective error cancels the remaining evaluations.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (Result, []Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return Result{}, nil, fmt.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}
	points := g.Points()
	if len(points) == 0 {
		return Result{}, nil, errors.New("grid search: empty grid")
	}

	results := make([]Result, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range points {
		i, p := i, p
		eg.Go(func() error {
			score, err := objective(ctx, p)
			if err != nil {
				return err
			}
			results[i] = Result{Params: p, Score: score}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, nil, err
	}

	best := Result{Score: math.Inf(1)}
	for _, r := range results {
		if !math.IsNaN(r.Score) && (best.Params == nil || r.Score < best.Score) {
			best = r
		}
	}
	if best.Params == nil {
		return Result{}, results, errors.New("grid search: no point produced a score")
	}
	return best, results, nil
}
