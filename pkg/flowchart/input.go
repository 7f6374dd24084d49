package flowchart

// FlowchartInput is the programmatic JSON format accepted as an alternative
// to DSL text. Node ids are caller-chosen and only scope edge references;
// conversion assigns fresh graph ids.
type FlowchartInput struct {
	Nodes   []InputNode   `json:"nodes" yaml:"nodes"`
	Edges   []InputEdge   `json:"edges,omitempty" yaml:"edges,omitempty"`
	Options *InputOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// InputNode is one node of a FlowchartInput.
type InputNode struct {
	ID    string     `json:"id" yaml:"id"`
	Type  string     `json:"type" yaml:"type"`
	Label string     `json:"label" yaml:"label"`
	Style *NodeStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// InputEdge connects two InputNode ids.
type InputEdge struct {
	From  string     `json:"from" yaml:"from"`
	To    string     `json:"to" yaml:"to"`
	Label string     `json:"label,omitempty" yaml:"label,omitempty"`
	Style *EdgeStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// InputOptions is a partial LayoutOptions; nil fields keep their defaults.
type InputOptions struct {
	Algorithm   *LayoutAlgorithm `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Direction   *FlowDirection   `json:"direction,omitempty" yaml:"direction,omitempty"`
	NodeSpacing *int             `json:"nodeSpacing,omitempty" yaml:"nodeSpacing,omitempty"`
	RankSpacing *int             `json:"rankSpacing,omitempty" yaml:"rankSpacing,omitempty"`
	Padding     *int             `json:"padding,omitempty" yaml:"padding,omitempty"`
}

// Apply overlays the non-nil fields of o onto base and returns the result.
func (o *InputOptions) Apply(base LayoutOptions) LayoutOptions {
	if o == nil {
		return base
	}
	if o.Algorithm != nil {
		base.Algorithm = *o.Algorithm
	}
	if o.Direction != nil {
		base.Direction = *o.Direction
	}
	if o.NodeSpacing != nil {
		base.NodeSpacing = *o.NodeSpacing
	}
	if o.RankSpacing != nil {
		base.RankSpacing = *o.RankSpacing
	}
	if o.Padding != nil {
		base.Padding = *o.Padding
	}
	return base
}
