package graph

import (
	"context"
	"strings"
	"time"
)

// Concentration point statuses
const (
	PointActive  = "active"
	PointCleared = "cleared"
)

// ConcentrationPointID is the node id of the point for a sector/institution pair
func ConcentrationPointID(sectorID, institutionID string) string {
	return "cp:" + sectorID + ":" + institutionID
}

// MaintainConcentrationPoints materializes every concentration at MEDIUM or
// above as a ConcentrationPoint node monitoring the institution and sector.
// Points whose concentration dropped below MEDIUM are marked cleared.
// It returns the number of active points.
func (a *Analyzer) MaintainConcentrationPoints(ctx context.Context) (int, error) {
	ctx, span := graphTracer.Start(ctx, "graph.MaintainConcentrationPoints")
	defer span.End()

	now := a.now().UTC().Format(time.RFC3339)
	active := 0
	err := a.store.Update(ctx, func(g *Graph) error {
		current := make(map[string]bool)
		for _, c := range concentration(g) {
			if !c.RiskLevel.AtLeast(LevelMedium) {
				continue
			}
			id := ConcentrationPointID(c.SectorID, c.InstitutionID)
			current[id] = true
			if _, _, err := g.UpsertNode(LabelConcentrationPoint, id, Properties{
				PropMarketShare: c.MarketShare,
				PropRiskLevel:   string(c.RiskLevel),
				PropAmount:      c.Exposure,
				PropStatus:      PointActive,
				PropUpdatedAt:   now,
			}); err != nil {
				return err
			}
			if err := link(g, id, c.InstitutionID, RelMonitors, nil); err != nil {
				return err
			}
			if err := link(g, id, c.SectorID, RelMonitors, nil); err != nil {
				return err
			}
		}

		for _, p := range g.Nodes(LabelConcentrationPoint) {
			if current[p.ID] || !strings.HasPrefix(p.ID, "cp:") {
				continue
			}
			if p.Props.String(PropStatus) == PointCleared {
				continue
			}
			if err := g.SetProperty(p.ID, PropStatus, PointCleared); err != nil {
				return err
			}
			if err := g.SetProperty(p.ID, PropUpdatedAt, now); err != nil {
				return err
			}
		}
		active = len(current)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return active, nil
}
