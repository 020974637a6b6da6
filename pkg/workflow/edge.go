package workflow

// EdgeTypeCustom is the renderer type written for every edge
const EdgeTypeCustom = "custom"

// EdgeData holds the optional presentation of an edge
type EdgeData struct {
	Label  string `json:"label,omitempty"`
	Dashed bool   `json:"dashed,omitempty"`
}

// Edge represents a directed connection between two nodes in a workflow
type Edge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     string   `json:"type"`
	Animated bool     `json:"animated"`
	Data     EdgeData `json:"data"`
}

// NewEdge creates an edge with the default presentation: animated, no label
func NewEdge(id, source, target string) Edge {
	return Edge{
		ID:       id,
		Source:   source,
		Target:   target,
		Type:     EdgeTypeCustom,
		Animated: true,
	}
}

// Touches reports whether the edge starts or ends at nodeID
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// IsSelfLoop reports whether the edge connects a node to itself
func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// Presentation is a partial update of an edge's presentation. Nil fields
// are left unchanged.
type Presentation struct {
	Label    *string
	Dashed   *bool
	Animated *bool
}

// Apply merges the set fields of p into e
func (p Presentation) Apply(e *Edge) {
	if p.Label != nil {
		e.Data.Label = *p.Label
	}
	if p.Dashed != nil {
		e.Data.Dashed = *p.Dashed
	}
	if p.Animated != nil {
		e.Animated = *p.Animated
	}
}

// IsEmpty reports whether p changes nothing
func (p Presentation) IsEmpty() bool {
	return p.Label == nil && p.Dashed == nil && p.Animated == nil
}

// WithLabel returns a Presentation that sets the label
func WithLabel(label string) Presentation {
	return Presentation{Label: &label}
}

// WithDashed returns a Presentation that sets the dashed flag
func WithDashed(dashed bool) Presentation {
	return Presentation{Dashed: &dashed}
}

// WithAnimated returns a Presentation that sets the animated flag
func WithAnimated(animated bool) Presentation {
	return Presentation{Animated: &animated}
}
