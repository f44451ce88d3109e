package graph

import (
	"context"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/banking/risk-analytics/internal/pkg/logger"
	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

// Centrality methods
const (
	MethodDegreeApproximation = "degree_approximation"
	MethodExact               = "exact"
)

// CentralityScore describes how structurally important an entity is
type CentralityScore struct {
	EntityID         string  `json:"entity_id"`
	Label            Label   `json:"label"`
	Name             string  `json:"name,omitempty"`
	Degree           int     `json:"degree"`
	DegreeCentrality float64 `json:"degree_centrality"`
	Closeness        float64 `json:"closeness"`
	Betweenness      float64 `json:"betweenness"`
	PageRank         float64 `json:"pagerank,omitempty"`
	RiskScore        float64 `json:"risk_score"`
	Method           string  `json:"method"`
}

// CentralityProvider computes exact centrality over the entity network.
// Implementations must not mutate g.
type CentralityProvider interface {
	Centrality(ctx context.Context, g *Graph) (map[string]CentralityScore, error)
}

// CalculateCentrality scores every SME and institution, most central first.
// The degree approximation is used unless an exact provider is configured;
// a failing provider falls back to the approximation.
func (a *Analyzer) CalculateCentrality(ctx context.Context, limit int) []CentralityScore {
	ctx, span := graphTracer.Start(ctx, "graph.CalculateCentrality")
	defer span.End()
	start := time.Now()

	var out []CentralityScore
	ok := a.read(ctx, "centrality", func(g *Graph) error {
		if a.centrality != nil {
			scores, err := a.centrality.Centrality(ctx, g)
			if err == nil {
				out = rankCentrality(scores, limit)
				return nil
			}
			a.log.WithContext(ctx).Warn("exact centrality unavailable, using degree approximation",
				logger.ErrorField(err),
			)
		}
		out = rankCentrality(degreeCentrality(g), limit)
		return nil
	})
	if !ok {
		return []CentralityScore{}
	}
	a.done("centrality", len(out), start)
	return out
}

func entities(g *Graph) []*Node {
	return append(g.Nodes(LabelSME), g.Nodes(LabelInstitution)...)
}

func baseScore(n *Node, degree, total int) CentralityScore {
	s := CentralityScore{
		EntityID:  n.ID,
		Label:     n.Label,
		Name:      n.Name(),
		Degree:    degree,
		RiskScore: n.RiskScore(),
	}
	if total > 1 {
		s.DegreeCentrality = mathx.Round(float64(degree)/float64(total-1), 4)
	}
	return s
}

// degreeCentrality approximates closeness as 1/degree and betweenness as degree
func degreeCentrality(g *Graph) map[string]CentralityScore {
	nodes := entities(g)
	out := make(map[string]CentralityScore, len(nodes))
	for _, n := range nodes {
		degree := g.Degree(n.ID)
		s := baseScore(n, degree, len(nodes))
		if degree > 0 {
			s.Closeness = mathx.Round(1/float64(degree), 4)
		}
		s.Betweenness = float64(degree)
		s.Method = MethodDegreeApproximation
		out[n.ID] = s
	}
	return out
}

func rankCentrality(scores map[string]CentralityScore, limit int) []CentralityScore {
	out := make([]CentralityScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Betweenness != out[j].Betweenness {
			return out[i].Betweenness > out[j].Betweenness
		}
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].EntityID < out[j].EntityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PageRank configuration constants
const (
	DefaultDampingFactor = 0.85
	DefaultMaxIterations = 100
	DefaultConvergence   = 1e-6
)

// PageRankOptions configures the PageRank power iteration
type PageRankOptions struct {
	// DampingFactor must be in [0, 1]
	DampingFactor float64
	MaxIterations int
	Convergence   float64
}

// Validate applies defaults for invalid values
func (o *PageRankOptions) Validate() {
	if o.DampingFactor < 0 || o.DampingFactor > 1 {
		o.DampingFactor = DefaultDampingFactor
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Convergence <= 0 {
		o.Convergence = DefaultConvergence
	}
}

// DefaultPageRankOptions returns the standard options
func DefaultPageRankOptions() *PageRankOptions {
	return &PageRankOptions{
		DampingFactor: DefaultDampingFactor,
		MaxIterations: DefaultMaxIterations,
		Convergence:   DefaultConvergence,
	}
}

// AlgorithmProvider computes exact closeness, Brandes betweenness and
// PageRank over the undirected entity network.
type AlgorithmProvider struct {
	opts *PageRankOptions
}

// NewAlgorithmProvider creates a provider. Nil options use the defaults.
func NewAlgorithmProvider(opts *PageRankOptions) *AlgorithmProvider {
	if opts == nil {
		opts = DefaultPageRankOptions()
	} else {
		opts.Validate()
	}
	return &AlgorithmProvider{opts: opts}
}

// Centrality implements CentralityProvider
func (p *AlgorithmProvider) Centrality(ctx context.Context, g *Graph) (map[string]CentralityScore, error) {
	_, span := graphTracer.Start(ctx, "graph.AlgorithmProvider.Centrality",
		trace.WithAttributes(attribute.Int("node_count", g.NodeCount())),
	)
	defer span.End()

	adj := entityAdjacency(g)
	ids := sortedAdjacencyKeys(adj)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	betweenness, err := brandes(ctx, adj, ids)
	if err != nil {
		return nil, err
	}
	pagerank := p.pageRank(adj, ids)

	n := len(ids)
	norm := 1.0
	if n > 2 {
		norm = float64((n-1)*(n-2)) / 2
	}

	out := make(map[string]CentralityScore, n)
	for _, id := range ids {
		node, ok := g.Node(id)
		if !ok {
			continue
		}
		s := baseScore(node, len(adj[id]), n)
		s.Closeness = mathx.Round(closeness(adj, id), 4)
		s.Betweenness = mathx.Round(betweenness[id]/norm, 4)
		s.PageRank = mathx.Round(pagerank[id], 6)
		s.Method = MethodExact
		out[id] = s
	}
	return out, nil
}

func sortedAdjacencyKeys(adj map[string][]string) []string {
	ids := make([]string, 0, len(adj))
	for id := range adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// bfsDistances returns hop distances from source to every reachable node
func bfsDistances(adj map[string][]string, source string) map[string]int {
	dist := map[string]int{source: 0}
	queue := []string{source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if _, seen := dist[w]; !seen {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
		}
	}
	return dist
}

// closeness uses the Wasserman-Faust form so disconnected nodes score lower
func closeness(adj map[string][]string, id string) float64 {
	dist := bfsDistances(adj, id)
	reachable := len(dist) - 1
	if reachable == 0 || len(adj) < 2 {
		return 0
	}
	total := 0
	for _, d := range dist {
		total += d
	}
	return float64(reachable) / float64(total) * float64(reachable) / float64(len(adj)-1)
}

// brandes computes unnormalized undirected betweenness
func brandes(ctx context.Context, adj map[string][]string, ids []string) (map[string]float64, error) {
	cb := make(map[string]float64, len(ids))
	for _, s := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var stack []string
		pred := make(map[string][]string)
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}
		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}
	// Each undirected pair was counted from both ends
	for id := range cb {
		cb[id] /= 2
	}
	return cb, nil
}

// pageRank runs power iteration; sink mass is spread evenly
func (p *AlgorithmProvider) pageRank(adj map[string][]string, ids []string) map[string]float64 {
	n := float64(len(ids))
	scores := make(map[string]float64, len(ids))
	if n == 0 {
		return scores
	}
	for _, id := range ids {
		scores[id] = 1 / n
	}

	d := p.opts.DampingFactor
	for iter := 0; iter < p.opts.MaxIterations; iter++ {
		var sink float64
		for _, id := range ids {
			if len(adj[id]) == 0 {
				sink += scores[id]
			}
		}

		next := make(map[string]float64, len(ids))
		base := (1-d)/n + d*sink/n
		for _, id := range ids {
			next[id] = base
		}
		for _, id := range ids {
			if out := len(adj[id]); out > 0 {
				share := d * scores[id] / float64(out)
				for _, w := range adj[id] {
					next[w] += share
				}
			}
		}

		var maxDiff float64
		for _, id := range ids {
			maxDiff = math.Max(maxDiff, math.Abs(next[id]-scores[id]))
		}
		scores = next
		if maxDiff < p.opts.Convergence {
			break
		}
	}
	return scores
}
