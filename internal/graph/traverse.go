package graph

import (
	"sort"
	"strings"
	"time"
)

// creditParties resolves the lender and borrower of a Credit node
func creditParties(g *Graph, creditID string) (lender, borrower *Node) {
	for _, e := range g.In(creditID, RelProvidesCredit) {
		if n, ok := g.Node(e.From); ok {
			lender = n
			break
		}
	}
	for _, e := range g.In(creditID, RelHasCredit) {
		if n, ok := g.Node(e.From); ok {
			borrower = n
			break
		}
	}
	return lender, borrower
}

// CreditLink is one credit seen from the lender/borrower pair
type CreditLink struct {
	Credit   *Node
	Lender   *Node
	Borrower *Node
}

// credits returns every Credit node with both parties resolved
func credits(g *Graph) []CreditLink {
	nodes := g.Nodes(LabelCredit)
	out := make([]CreditLink, 0, len(nodes))
	for _, c := range nodes {
		lender, borrower := creditParties(g, c.ID)
		if lender == nil || borrower == nil {
			continue
		}
		out = append(out, CreditLink{Credit: c, Lender: lender, Borrower: borrower})
	}
	return out
}

// CreditsOf returns the credits held by a borrower
func CreditsOf(g *Graph, borrowerID string) []CreditLink {
	var out []CreditLink
	for _, e := range g.Out(borrowerID, RelHasCredit) {
		lender, borrower := creditParties(g, e.To)
		c, _ := g.Node(e.To)
		if lender == nil || borrower == nil || c == nil {
			continue
		}
		out = append(out, CreditLink{Credit: c, Lender: lender, Borrower: borrower})
	}
	return out
}

// CreditsFrom returns the credits provided by a lender
func CreditsFrom(g *Graph, lenderID string) []CreditLink {
	var out []CreditLink
	for _, e := range g.Out(lenderID, RelProvidesCredit) {
		lender, borrower := creditParties(g, e.To)
		c, _ := g.Node(e.To)
		if lender == nil || borrower == nil || c == nil {
			continue
		}
		out = append(out, CreditLink{Credit: c, Lender: lender, Borrower: borrower})
	}
	return out
}

// SectorOf returns the sector id an SME operates in, or ""
func SectorOf(g *Graph, id string) string {
	if es := g.Out(id, RelOperatesIn); len(es) > 0 {
		return es[0].To
	}
	return ""
}

// geographyOf returns the Geographic node an entity is located in
func geographyOf(g *Graph, id string) *Node {
	for _, e := range g.Out(id, RelLocatedIn) {
		if n, ok := g.Node(e.To); ok {
			return n
		}
	}
	return nil
}

// ProvinceOf returns the province of an entity's location, or ""
func ProvinceOf(g *Graph, id string) string {
	geo := geographyOf(g, id)
	if geo == nil {
		return ""
	}
	if p := geo.Props.String(PropProvince); p != "" {
		return p
	}
	return geo.Name()
}

// flow is a directed movement of funds between two entities
type flow struct {
	From   string
	To     string
	Amount float64
	At     time.Time
	Via    string // credit id, empty for direct transfers
}

// flowIndex holds outgoing flows per entity
type flowIndex map[string][]flow

// flows derives fund movements from credits (lender to borrower) and
// TRANSFERS_TO relationships, ordered by time per source.
func flows(g *Graph) flowIndex {
	idx := make(flowIndex)
	for _, cl := range credits(g) {
		idx[cl.Lender.ID] = append(idx[cl.Lender.ID], flow{
			From:   cl.Lender.ID,
			To:     cl.Borrower.ID,
			Amount: cl.Credit.Props.Float(PropAmount),
			At:     cl.Credit.Props.Time(PropStartDate),
			Via:    cl.Credit.ID,
		})
	}
	for _, e := range g.Edges(RelTransfersTo) {
		idx[e.From] = append(idx[e.From], flow{
			From:   e.From,
			To:     e.To,
			Amount: e.Props.Float(PropAmount),
			At:     e.Props.Time(PropTimestamp),
		})
	}
	for id := range idx {
		fs := idx[id]
		sort.SliceStable(fs, func(i, j int) bool {
			if !fs[i].At.Equal(fs[j].At) {
				return fs[i].At.Before(fs[j].At)
			}
			return fs[i].To < fs[j].To
		})
	}
	return idx
}

// sources returns the ids with outgoing flows in sorted order
func (f flowIndex) sources() []string {
	out := make([]string, 0, len(f))
	for id := range f {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// entityAdjacency links SMEs and institutions that share a credit or a
// direct relationship. Edges are undirected; neighbor lists are sorted.
func entityAdjacency(g *Graph) map[string][]string {
	sets := make(map[string]map[string]bool)
	link := func(a, b string) {
		if a == b {
			return
		}
		if sets[a] == nil {
			sets[a] = make(map[string]bool)
		}
		if sets[b] == nil {
			sets[b] = make(map[string]bool)
		}
		sets[a][b] = true
		sets[b][a] = true
	}

	for _, n := range g.Nodes(LabelSME) {
		sets[n.ID] = make(map[string]bool)
	}
	for _, n := range g.Nodes(LabelInstitution) {
		sets[n.ID] = make(map[string]bool)
	}

	for _, cl := range credits(g) {
		if cl.Lender.Label.IsEntity() && cl.Borrower.Label.IsEntity() {
			link(cl.Lender.ID, cl.Borrower.ID)
		}
	}
	for _, e := range g.Edges(RelTransfersTo, RelReportsTo) {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		if from != nil && to != nil && from.Label.IsEntity() && to.Label.IsEntity() {
			link(e.From, e.To)
		}
	}

	adj := make(map[string][]string, len(sets))
	for id, set := range sets {
		adj[id] = sortedKeys(set)
	}
	return adj
}

func pathKey(ids []string) string {
	return strings.Join(ids, ">")
}
