// Package validation checks programmatic FlowchartInput documents and
// built graphs. DSL text is never validated: the parser accepts anything.
package validation

import "github.com/rendis/flowdsl/pkg/flowchart"

// Validator checks FlowchartInput documents before conversion.
// Uses JSON Schema Draft 2020-12 for the structural stage.
type Validator interface {
	ValidateJSON(data []byte) *flowchart.ValidationResult
	ValidateInput(in *flowchart.FlowchartInput) *flowchart.ValidationResult
}
