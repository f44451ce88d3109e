package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

const (
	contagionSeedRisk = 6.0
	contagionPathRisk = 4.0
)

// ContagionPath is a chain of risky entities reachable from a seed
type ContagionPath struct {
	Path    []string  `json:"path"`
	Risks   []float64 `json:"risks"`
	Hops    int       `json:"hops"`
	AvgRisk float64   `json:"avg_risk"`
}

// FindContagionPaths explores outward from seedID up to maxHops, keeping
// paths whose every node has risk above 4. The seed itself must have risk
// above 6. maxHops <= 0 uses the configured default.
func (a *Analyzer) FindContagionPaths(ctx context.Context, seedID string, maxHops int) []ContagionPath {
	ctx, span := graphTracer.Start(ctx, "graph.FindContagionPaths")
	defer span.End()
	start := time.Now()

	if maxHops <= 0 {
		maxHops = a.cfg.MaxContagionHops
	}
	if maxHops <= 0 {
		maxHops = 3
	}

	out := make([]ContagionPath, 0)
	ok := a.read(ctx, "contagion", func(g *Graph) error {
		seed, found := g.Node(seedID)
		if !found {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, seedID)
		}
		out = contagionPaths(g, seed, maxHops)
		return nil
	})
	if !ok {
		return []ContagionPath{}
	}
	a.done("contagion", len(out), start)
	return out
}

func contagionPaths(g *Graph, seed *Node, maxHops int) []ContagionPath {
	out := make([]ContagionPath, 0)
	if seed.RiskScore() <= contagionSeedRisk {
		return out
	}
	adj := entityAdjacency(g)

	var walk func(path []string, risks []float64, visited map[string]bool)
	walk = func(path []string, risks []float64, visited map[string]bool) {
		if len(path) > 1 {
			out = append(out, ContagionPath{
				Path:    append([]string(nil), path...),
				Risks:   append([]float64(nil), risks...),
				Hops:    len(path) - 1,
				AvgRisk: mathx.Round(mathx.Sum(risks...)/float64(len(risks)), 2),
			})
		}
		if len(path)-1 == maxHops {
			return
		}
		for _, next := range adj[path[len(path)-1]] {
			if visited[next] {
				continue
			}
			n, ok := g.Node(next)
			if !ok || n.RiskScore() <= contagionPathRisk {
				continue
			}
			visited[next] = true
			walk(append(path, next), append(risks, n.RiskScore()), visited)
			delete(visited, next)
		}
	}
	walk([]string{seed.ID}, []float64{seed.RiskScore()}, map[string]bool{seed.ID: true})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgRisk != out[j].AvgRisk {
			return out[i].AvgRisk > out[j].AvgRisk
		}
		return out[i].Hops < out[j].Hops
	})
	return out
}
