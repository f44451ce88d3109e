package graph

import (
	"context"
	"sort"
	"time"

	"github.com/banking/risk-analytics/internal/pkg/mathx"
)

const minCommunitySize = 3

// Community is a group of SMEs sharing a province and a sector
type Community struct {
	CommunityID  string   `json:"community_id"`
	Province     string   `json:"province"`
	Sector       string   `json:"sector"`
	Members      []string `json:"members"`
	Size         int      `json:"size"`
	AvgRisk      float64  `json:"avg_risk"`
	RiskCategory Level    `json:"risk_category"`
}

// DetectCommunities groups SMEs by (province, sector). Groups smaller than
// three members are dropped.
func (a *Analyzer) DetectCommunities(ctx context.Context) []Community {
	ctx, span := graphTracer.Start(ctx, "graph.DetectCommunities")
	defer span.End()
	start := time.Now()

	out := make([]Community, 0)
	ok := a.read(ctx, "communities", func(g *Graph) error {
		out = communities(g)
		return nil
	})
	if !ok {
		return []Community{}
	}
	a.done("communities", len(out), start)
	return out
}

func communities(g *Graph) []Community {
	type key struct{ province, sector string }
	groups := make(map[key][]*Node)
	for _, n := range g.Nodes(LabelSME) {
		k := key{ProvinceOf(g, n.ID), SectorOf(g, n.ID)}
		if k.province == "" || k.sector == "" {
			continue
		}
		groups[k] = append(groups[k], n)
	}

	out := make([]Community, 0)
	for k, members := range groups {
		if len(members) < minCommunitySize {
			continue
		}
		ids := make([]string, 0, len(members))
		risks := make([]float64, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
			risks = append(risks, m.RiskScore())
		}
		sort.Strings(ids)
		avg := mathx.Round(mathx.Sum(risks...)/float64(len(risks)), 2)
		out = append(out, Community{
			CommunityID:  k.province + "/" + k.sector,
			Province:     k.province,
			Sector:       k.sector,
			Members:      ids,
			Size:         len(ids),
			AvgRisk:      avg,
			RiskCategory: communityCategory(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgRisk != out[j].AvgRisk {
			return out[i].AvgRisk > out[j].AvgRisk
		}
		return out[i].CommunityID < out[j].CommunityID
	})
	return out
}

func communityCategory(avg float64) Level {
	switch {
	case avg >= 6:
		return LevelHigh
	case avg >= 4:
		return LevelMedium
	default:
		return LevelLow
	}
}
