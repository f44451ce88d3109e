package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

// PatternType identifies a graph fraud pattern detector
type PatternType string

const (
	PatternLayering     PatternType = "layering"
	PatternStructuring  PatternType = "structuring"
	PatternShellNetwork PatternType = "shell_network"
	PatternRoundTrip    PatternType = "round_trip"
)

// Detection parameters
const (
	layeringMinHops     = 3
	layeringMaxHops     = 8
	layeringMinRisk     = 3.0
	layeringMinAmount   = 50000000.0
	layeringAmountScale = 10000000.0

	structuringMinCount = 3
	structuringMaxGap   = 30.0 // days

	shellMaxEmployees   = 2
	shellMaxRevenue     = 100000.0
	shellFoundedAfter   = 2020
	shellMaxHops        = 3
	shellMinPeers       = 2
	shellMinCredit      = 5000000.0
	shellCreditScale    = 1000000.0
	shellSizeMultiplier = 1.5

	roundTripMinHops   = 2
	roundTripMaxHops   = 4
	roundTripMinAmount = 10000000.0
	roundTripMaxDays   = 90.0
	roundTripScale     = 1000000.0
)

var patternNamespace = uuid.MustParse("0b8f8f6e-57a4-4f7a-bd0c-8a1b7c3e2d55")

// RiskPattern is a suspicious structure found in the graph
type RiskPattern struct {
	PatternID       string      `json:"pattern_id"`
	Type            PatternType `json:"type"`
	Entities        []string    `json:"entities"`
	RiskScore       float64     `json:"risk_score"`
	TotalAmount     float64     `json:"total_amount"`
	Hops            int         `json:"hops,omitempty"`
	Description     string      `json:"description"`
	Recommendations []string    `json:"recommendations"`
}

func newPattern(t PatternType, entities []string, score, amount float64, hops int, description string) RiskPattern {
	return RiskPattern{
		PatternID:       uuid.NewSHA1(patternNamespace, []byte(string(t)+":"+pathKey(entities))).String(),
		Type:            t,
		Entities:        entities,
		RiskScore:       mathx.Round(score, 2),
		TotalAmount:     amount,
		Hops:            hops,
		Description:     description,
		Recommendations: patternRecommendations[t],
	}
}

var patternRecommendations = map[PatternType][]string{
	PatternLayering: {
		"trace_origin_of_funds",
		"review_intermediate_entities",
		"file_suspicious_activity_report",
	},
	PatternStructuring: {
		"aggregate_related_credits_for_reporting",
		"review_credit_approval_decisions",
		"interview_borrower",
	},
	PatternShellNetwork: {
		"verify_business_existence",
		"review_beneficial_ownership",
		"suspend_new_credit_to_network",
	},
	PatternRoundTrip: {
		"verify_economic_purpose",
		"freeze_cycle_participants_pending_review",
		"file_suspicious_activity_report",
	},
}

// DetectFraudPatterns runs the four pattern detectors concurrently over one
// consistent view of the graph. Outputs are concatenated in detector order
// and not deduplicated across types.
func (a *Analyzer) DetectFraudPatterns(ctx context.Context) []RiskPattern {
	ctx, span := graphTracer.Start(ctx, "graph.DetectFraudPatterns")
	defer span.End()
	start := time.Now()

	var results [4][]RiskPattern
	ok := a.read(ctx, "fraud_patterns", func(g *Graph) error {
		fi := flows(g)
		limit := a.maxPatterns()

		var eg errgroup.Group
		eg.Go(func() error {
			results[0] = limitPatterns(detectLayering(g, fi), limit)
			return nil
		})
		eg.Go(func() error {
			results[1] = limitPatterns(detectStructuring(g, a.cfg.StructuringThreshold), limit)
			return nil
		})
		eg.Go(func() error {
			results[2] = limitPatterns(detectShellNetworks(g), limit)
			return nil
		})
		eg.Go(func() error {
			results[3] = limitPatterns(detectRoundTrips(fi), limit)
			return nil
		})
		return eg.Wait()
	})
	if !ok {
		return []RiskPattern{}
	}

	out := make([]RiskPattern, 0)
	for _, r := range results {
		out = append(out, r...)
	}
	for _, p := range out {
		patternsDetected.WithLabelValues(string(p.Type)).Inc()
		a.log.PatternDetected(p.PatternID, string(p.Type), len(p.Entities), p.RiskScore)
	}
	a.done("fraud_patterns", len(out), start)
	return out
}

func limitPatterns(ps []RiskPattern, limit int) []RiskPattern {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].RiskScore != ps[j].RiskScore {
			return ps[i].RiskScore > ps[j].RiskScore
		}
		return ps[i].PatternID < ps[j].PatternID
	})
	if len(ps) > limit {
		ps = ps[:limit]
	}
	return ps
}

// detectLayering finds maximal flow chains of 3 to 8 hops through entities
// with risk above 3 that move more than 50M in total. The per-walk visited
// set bounds traversal on cyclic flows.
func detectLayering(g *Graph, fi flowIndex) []RiskPattern {
	risky := func(id string) bool {
		n, ok := g.Node(id)
		return ok && n.RiskScore() > layeringMinRisk
	}

	// Chains start at risky sources with no risky inbound flow
	hasRiskyInbound := make(map[string]bool)
	for _, src := range fi.sources() {
		if !risky(src) {
			continue
		}
		for _, f := range fi[src] {
			hasRiskyInbound[f.To] = true
		}
	}

	var out []RiskPattern
	seen := make(map[string]bool)
	reached := make(map[string]bool)

	var walk func(path []string, visited map[string]bool, amount float64)
	walk = func(path []string, visited map[string]bool, amount float64) {
		current := path[len(path)-1]
		reached[current] = true
		extended := false
		if len(path)-1 < layeringMaxHops {
			for _, f := range fi[current] {
				if visited[f.To] || !risky(f.To) {
					continue
				}
				extended = true
				visited[f.To] = true
				walk(append(path, f.To), visited, amount+f.Amount)
				delete(visited, f.To)
			}
		}
		if extended {
			return
		}

		hops := len(path) - 1
		if hops < layeringMinHops || amount <= layeringMinAmount {
			return
		}
		entities := append([]string(nil), path...)
		key := pathKey(entities)
		if seen[key] {
			return
		}
		seen[key] = true

		score := 2.5*float64(hops) + amount/layeringAmountScale
		out = append(out, newPattern(PatternLayering, entities, score, amount, hops,
			fmt.Sprintf("%d-hop chain moving %.0f through risky entities", hops, amount)))
	}

	for _, src := range fi.sources() {
		if !risky(src) || hasRiskyInbound[src] {
			continue
		}
		walk([]string{src}, map[string]bool{src: true}, 0)
	}
	// Risky components where every node has risky inbound flow (cycles)
	// have no head; start from the first node no earlier walk reached.
	for _, src := range fi.sources() {
		if !risky(src) || reached[src] {
			continue
		}
		walk([]string{src}, map[string]bool{src: true}, 0)
	}
	return out
}

// detectStructuring groups credits per (borrower, lender) pair and flags
// repeated credits just under the reporting threshold.
func detectStructuring(g *Graph, threshold float64) []RiskPattern {
	if threshold <= 0 {
		threshold = 10000000
	}

	type pair struct{ borrower, lender string }
	groups := make(map[pair][]CreditLink)
	var order []pair
	for _, cl := range credits(g) {
		amount := cl.Credit.Props.Float(PropAmount)
		if amount < 0.9*threshold || amount > threshold {
			continue
		}
		k := pair{cl.Borrower.ID, cl.Lender.ID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], cl)
	}

	var out []RiskPattern
	for _, k := range order {
		group := groups[k]
		if len(group) < structuringMinCount {
			continue
		}

		dates := make([]time.Time, 0, len(group))
		var total float64
		for _, cl := range group {
			total += cl.Credit.Props.Float(PropAmount)
			if t := cl.Credit.Props.Time(PropStartDate); !t.IsZero() {
				dates = append(dates, t)
			}
		}
		if len(dates) < 2 {
			continue
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		avgGap := dates[len(dates)-1].Sub(dates[0]).Hours() / 24 / float64(len(dates)-1)
		if avgGap > structuringMaxGap {
			continue
		}

		score := 2*float64(len(group)) + (structuringMaxGap-avgGap)/3
		out = append(out, newPattern(PatternStructuring, []string{k.borrower, k.lender}, score, total, 0,
			fmt.Sprintf("%d credits just under the %.0f reporting threshold, %.1f days apart on average",
				len(group), threshold, avgGap)))
	}
	return out
}

func isSparseSME(n *Node) bool {
	return n.Label == LabelSME &&
		n.Props.Int(PropEmployeeCount) < shellMaxEmployees &&
		n.Props.Float(PropRevenue) < shellMaxRevenue &&
		n.Props.Int(PropFoundingYear) > shellFoundedAfter
}

// detectShellNetworks groups sparse SMEs reachable from each other within
// three hops through credit, SME and institution nodes.
func detectShellNetworks(g *Graph) []RiskPattern {
	traversable := func(n *Node) bool {
		return n.Label == LabelSME || n.Label == LabelCredit || n.Label == LabelInstitution
	}

	var out []RiskPattern
	seen := make(map[string]bool)

	for _, origin := range g.Nodes(LabelSME) {
		if !isSparseSME(origin) {
			continue
		}

		members := map[string]bool{origin.ID: true}
		depth := map[string]int{origin.ID: 0}
		queue := []string{origin.ID}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if depth[id] == shellMaxHops {
				continue
			}
			for _, next := range g.Neighbors(id) {
				if _, visited := depth[next]; visited {
					continue
				}
				n, ok := g.Node(next)
				if !ok || !traversable(n) {
					continue
				}
				depth[next] = depth[id] + 1
				queue = append(queue, next)
				if isSparseSME(n) {
					members[next] = true
				}
			}
		}

		if len(members)-1 < shellMinPeers {
			continue
		}
		ids := sortedKeys(members)
		key := pathKey(ids)
		if seen[key] {
			continue
		}
		seen[key] = true

		var totalCredit float64
		for _, id := range ids {
			for _, cl := range CreditsOf(g, id) {
				totalCredit += cl.Credit.Props.Float(PropAmount)
			}
		}
		if totalCredit <= shellMinCredit {
			continue
		}

		score := totalCredit/shellCreditScale + float64(len(ids))*shellSizeMultiplier
		out = append(out, newPattern(PatternShellNetwork, ids, score, totalCredit, 0,
			fmt.Sprintf("%d recently founded SMEs with minimal staff and revenue sharing %.0f in credit",
				len(ids), totalCredit)))
	}
	return out
}

// detectRoundTrips finds flow cycles of 2 to 4 hops that return to their
// origin within 90 days and move more than 10M.
func detectRoundTrips(fi flowIndex) []RiskPattern {
	var out []RiskPattern
	seen := make(map[string]bool)

	for _, origin := range fi.sources() {
		var walk func(path []string, used []flow)
		walk = func(path []string, used []flow) {
			current := path[len(path)-1]
			for _, f := range fi[current] {
				if f.To == origin && len(used)+1 >= roundTripMinHops {
					cycle := append(append([]flow(nil), used...), f)
					if p, ok := roundTripPattern(path, cycle); ok && !seen[p.PatternID] {
						seen[p.PatternID] = true
						out = append(out, p)
					}
					continue
				}
				// Canonical rotation: every other node sorts after the origin
				if f.To <= origin || contains(path, f.To) || len(used)+1 >= roundTripMaxHops {
					continue
				}
				walk(append(path, f.To), append(used, f))
			}
		}
		walk([]string{origin}, nil)
	}
	return out
}

func roundTripPattern(path []string, cycle []flow) (RiskPattern, bool) {
	var total float64
	var first, last time.Time
	for _, f := range cycle {
		if f.At.IsZero() {
			return RiskPattern{}, false
		}
		total += f.Amount
		if first.IsZero() || f.At.Before(first) {
			first = f.At
		}
		if f.At.After(last) {
			last = f.At
		}
	}
	days := math.Round(last.Sub(first).Hours() / 24)
	if total <= roundTripMinAmount || days > roundTripMaxDays {
		return RiskPattern{}, false
	}

	hops := len(cycle)
	entities := append([]string(nil), path...)
	score := total/roundTripScale + (roundTripMaxDays-days)/10 + float64(hops)
	return newPattern(PatternRoundTrip, entities, score, total, hops,
		fmt.Sprintf("funds returned to %s after %d hops in %.0f days (%s)",
			path[0], hops, days, strings.Join(entities, " -> "))), true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
