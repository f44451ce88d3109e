package graph

import "fmt"

type schemaKey struct {
	from Label
	rel  RelType
	to   Label
}

// DefaultSchema lists the allowed (from label, relationship, to label) triples
func DefaultSchema() []SchemaRule {
	return []SchemaRule{
		{LabelSME, RelHasCredit, LabelCredit},
		{LabelInstitution, RelProvidesCredit, LabelCredit},
		{LabelSME, RelProvidesCredit, LabelCredit},
		{LabelSME, RelLocatedIn, LabelGeographic},
		{LabelInstitution, RelLocatedIn, LabelGeographic},
		{LabelSME, RelOperatesIn, LabelSector},
		{LabelInstitution, RelReportsTo, LabelInstitution},
		{LabelSME, RelTransfersTo, LabelSME},
		{LabelSME, RelTransfersTo, LabelInstitution},
		{LabelInstitution, RelTransfersTo, LabelSME},
		{LabelInstitution, RelTransfersTo, LabelInstitution},
		{LabelConcentrationPoint, RelMonitors, LabelInstitution},
		{LabelConcentrationPoint, RelMonitors, LabelSector},
		{LabelConcentrationPoint, RelMonitors, LabelSME},
	}
}

// SchemaRule allows one relationship type between two labels
type SchemaRule struct {
	From Label
	Rel  RelType
	To   Label
}

// ApplySchema enforces rules on future edges and validates existing ones.
// An empty rule set disables enforcement.
func (g *Graph) ApplySchema(rules []SchemaRule) error {
	if len(rules) == 0 {
		g.schema = nil
		return nil
	}
	schema := make(map[schemaKey]bool, len(rules))
	for _, r := range rules {
		schema[schemaKey{r.From, r.Rel, r.To}] = true
	}

	for _, e := range g.edges {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		if !schema[schemaKey{from.Label, e.Type, to.Label}] {
			return fmt.Errorf("%w: existing edge %s -%s-> %s", ErrInvalidRelationship, e.From, e.Type, e.To)
		}
	}
	g.schema = schema
	return nil
}

func (g *Graph) checkSchema(from Label, rel RelType, to Label) error {
	if g.schema == nil {
		return nil
	}
	if !g.schema[schemaKey{from, rel, to}] {
		return fmt.Errorf("%w: %s -%s-> %s", ErrInvalidRelationship, from, rel, to)
	}
	return nil
}
