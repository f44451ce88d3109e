package graph

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML description of a graph used for seeding and tests
type Fixture struct {
	Reference ReferenceCatalog `yaml:"reference"`
	SMEs      []SMERecord      `yaml:"smes"`
	Credits   []CreditRecord   `yaml:"credits"`
	Nodes     []Node           `yaml:"nodes"`
	Edges     []Edge           `yaml:"edges"`
}

// ParseFixture decodes a YAML fixture
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse graph fixture: %w", err)
	}
	return &f, nil
}

// LoadFixtureFile reads and decodes a YAML fixture file
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph fixture: %w", err)
	}
	return ParseFixture(data)
}

// LoadFixture writes the fixture into the store: reference data first,
// then SMEs, credits and finally raw nodes and edges.
func (a *Analyzer) LoadFixture(ctx context.Context, f *Fixture) error {
	if err := a.Bootstrap(ctx, f.Reference); err != nil {
		return err
	}
	for _, sme := range f.SMEs {
		if err := a.UpsertSME(ctx, sme); err != nil {
			return fmt.Errorf("sme %s: %w", sme.ID, err)
		}
	}
	return a.store.Update(ctx, func(g *Graph) error {
		for _, c := range f.Credits {
			if err := addCredit(g, c); err != nil {
				return fmt.Errorf("credit %s: %w", c.ID, err)
			}
		}
		for _, n := range f.Nodes {
			if _, _, err := g.UpsertNode(n.Label, n.ID, n.Props); err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
		}
		for _, e := range f.Edges {
			if _, err := g.AddEdge(e.From, e.To, e.Type, e.Props); err != nil {
				return fmt.Errorf("edge %s -%s-> %s: %w", e.From, e.Type, e.To, err)
			}
		}
		return nil
	})
}
