package graph

import (
	"encoding/json"
	"strconv"
	"time"
)

// Label is the type of a node
type Label string

const (
	LabelSME                Label = "SME"
	LabelInstitution        Label = "Institution"
	LabelCredit             Label = "Credit"
	LabelGeographic         Label = "Geographic"
	LabelSector             Label = "Sector"
	LabelConcentrationPoint Label = "ConcentrationPoint"
)

// RelType is the type of a relationship
type RelType string

const (
	RelHasCredit      RelType = "HAS_CREDIT"      // SME -> Credit
	RelProvidesCredit RelType = "PROVIDES_CREDIT" // lender -> Credit
	RelLocatedIn      RelType = "LOCATED_IN"      // entity -> Geographic
	RelOperatesIn     RelType = "OPERATES_IN"     // SME -> Sector
	RelReportsTo      RelType = "REPORTS_TO"      // Institution -> Institution
	RelTransfersTo    RelType = "TRANSFERS_TO"    // entity -> entity
	RelMonitors       RelType = "MONITORS"        // ConcentrationPoint -> entity
)

// Property keys
const (
	PropName          = "name"
	PropRiskScore     = "riskScore"
	PropRiskLevel     = "riskLevel"
	PropRevenue       = "revenue"
	PropEmployeeCount = "employeeCount"
	PropFoundingYear  = "foundingYear"
	PropStatus        = "status"
	PropType          = "type"
	PropCapitalRatio  = "capitalRatio"
	PropTotalAssets   = "totalAssets"
	PropAmount        = "amount"
	PropRate          = "rate"
	PropTerm          = "term"
	PropRiskGrade     = "riskGrade"
	PropProductType   = "productType"
	PropStartDate     = "startDate"
	PropTimestamp     = "timestamp"
	PropCountry       = "country"
	PropProvince      = "province"
	PropCity          = "city"
	PropDefaultRate   = "defaultRate"
	PropMarketShare   = "marketShare"
	PropUpdatedAt     = "updatedAt"
)

// IsEntity reports whether nodes with this label carry a risk score and take
// part in contagion, centrality and stress analysis.
func (l Label) IsEntity() bool {
	return l == LabelSME || l == LabelInstitution
}

// Properties are the typed-by-convention attributes of nodes and edges.
// Values come from Go callers, YAML fixtures or JSON persistence, so the
// accessors accept every numeric and time encoding those produce.
type Properties map[string]any

// Has reports whether key is set
func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Float returns the numeric value of key, or 0
func (p Properties) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Int returns the integer value of key, or 0
func (p Properties) Int(key string) int {
	return int(p.Float(key))
}

// String returns the string value of key, or ""
func (p Properties) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Time returns the time value of key, or the zero time.
// Accepts time.Time, RFC3339 strings, YYYY-MM-DD strings and unix seconds.
func (p Properties) Time(key string) time.Time {
	switch v := p[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	case int, int64, float64, json.Number:
		if secs := p.Float(key); secs > 0 {
			return time.Unix(int64(secs), 0).UTC()
		}
	}
	return time.Time{}
}

func (p Properties) clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Node is a typed vertex identified by a globally unique business id
type Node struct {
	ID    string     `json:"id" yaml:"id"`
	Label Label      `json:"label" yaml:"label"`
	Props Properties `json:"props,omitempty" yaml:"props,omitempty"`
}

// RiskScore returns the node's 0-10 risk score
func (n *Node) RiskScore() float64 {
	return n.Props.Float(PropRiskScore)
}

// Name returns the display name, falling back to the id
func (n *Node) Name() string {
	if name := n.Props.String(PropName); name != "" {
		return name
	}
	return n.ID
}

// Edge is a typed, directed relationship between two existing nodes
type Edge struct {
	Seq   int        `json:"seq" yaml:"-"`
	Type  RelType    `json:"type" yaml:"type"`
	From  string     `json:"from" yaml:"from"`
	To    string     `json:"to" yaml:"to"`
	Props Properties `json:"props,omitempty" yaml:"props,omitempty"`
}
