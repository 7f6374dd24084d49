package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const inputSchemaURL = "https://flowdsl.dev/schemas/flowchart-input.json"

// inputSchemaJSON is the JSON Schema for FlowchartInput documents.
const inputSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowdsl.dev/schemas/flowchart-input.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": "array",
      "items": { "$ref": "#/$defs/edge" }
    },
    "options": { "$ref": "#/$defs/options" }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "type", "label"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "type": { "enum": ["rectangle", "diamond", "ellipse", "database"] },
        "label": { "type": "string" },
        "style": { "$ref": "#/$defs/nodeStyle" }
      },
      "additionalProperties": false
    },
    "edge": {
      "type": "object",
      "required": ["from", "to"],
      "properties": {
        "from": { "type": "string", "minLength": 1 },
        "to": { "type": "string", "minLength": 1 },
        "label": { "type": "string" },
        "style": { "$ref": "#/$defs/edgeStyle" }
      },
      "additionalProperties": false
    },
    "options": {
      "type": "object",
      "properties": {
        "algorithm": { "enum": ["layered", "tree", "force"] },
        "direction": { "enum": ["TB", "BT", "LR", "RL"] },
        "nodeSpacing": { "type": "integer", "minimum": 0 },
        "rankSpacing": { "type": "integer", "minimum": 0 },
        "padding": { "type": "integer", "minimum": 0 }
      },
      "additionalProperties": false
    },
    "strokeStyle": { "enum": ["solid", "dashed", "dotted"] },
    "arrowhead": { "enum": ["arrow", "bar", "dot", "triangle", null] },
    "nodeStyle": {
      "type": "object",
      "properties": {
        "backgroundColor": { "type": "string" },
        "strokeColor": { "type": "string" },
        "strokeWidth": { "type": "number", "minimum": 0 },
        "strokeStyle": { "$ref": "#/$defs/strokeStyle" },
        "fillStyle": { "enum": ["solid", "hachure", "cross-hatch"] },
        "opacity": { "type": "number", "minimum": 0, "maximum": 100 },
        "fontSize": { "type": "number", "exclusiveMinimum": 0 },
        "fontFamily": { "type": "integer" },
        "roughness": { "type": "number", "minimum": 0 }
      },
      "additionalProperties": false
    },
    "edgeStyle": {
      "type": "object",
      "properties": {
        "strokeColor": { "type": "string" },
        "strokeWidth": { "type": "number", "minimum": 0 },
        "strokeStyle": { "$ref": "#/$defs/strokeStyle" },
        "startArrowhead": { "$ref": "#/$defs/arrowhead" },
        "endArrowhead": { "$ref": "#/$defs/arrowhead" },
        "roughness": { "type": "number", "minimum": 0 }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates FlowchartInput documents against the
// embedded schema and then checks references the schema cannot express.
// It is safe for concurrent use.
type JSONSchemaValidator struct {
	inputSchema *jsonschema.Schema
}

// NewJSONSchemaValidator compiles the FlowchartInput schema.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(inputSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal input schema: %w", err)
	}
	if err := c.AddResource(inputSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add input schema resource: %w", err)
	}

	compiled, err := c.Compile(inputSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	return &JSONSchemaValidator{inputSchema: compiled}, nil
}

// ValidateJSON validates a raw FlowchartInput document. Reference checks
// run only when the document is structurally valid.
func (v *JSONSchemaValidator) ValidateJSON(data []byte) *flowchart.ValidationResult {
	result := &flowchart.ValidationResult{}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		result.AddErrorf("/", flowchart.ErrCodeParseInput, "invalid JSON: %v", err)
		return result
	}

	if err := v.inputSchema.Validate(doc); err != nil {
		addViolations(result, err)
		return result
	}

	var in flowchart.FlowchartInput
	if err := json.Unmarshal(data, &in); err != nil {
		result.AddErrorf("/", flowchart.ErrCodeParseInput, "decode input: %v", err)
		return result
	}
	result.Merge(checkReferences(&in))
	return result
}

// ValidateInput validates an already decoded FlowchartInput.
func (v *JSONSchemaValidator) ValidateInput(in *flowchart.FlowchartInput) *flowchart.ValidationResult {
	if in == nil {
		result := &flowchart.ValidationResult{}
		result.AddError("/", flowchart.ErrCodeValidation, "flowchart input is nil")
		return result
	}
	data, err := json.Marshal(in)
	if err != nil {
		result := &flowchart.ValidationResult{}
		result.AddErrorf("/", flowchart.ErrCodeValidation, "serialize input: %v", err)
		return result
	}
	return v.ValidateJSON(data)
}

// checkReferences reports duplicate node ids and edges that name unknown nodes.
func checkReferences(in *flowchart.FlowchartInput) *flowchart.ValidationResult {
	result := &flowchart.ValidationResult{}

	ids := make(map[string]bool, len(in.Nodes))
	for i, n := range in.Nodes {
		if ids[n.ID] {
			result.AddErrorf("/nodes/"+strconv.Itoa(i)+"/id", flowchart.ErrCodeValidation,
				"duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
	}
	for i, e := range in.Edges {
		base := "/edges/" + strconv.Itoa(i)
		if !ids[e.From] {
			result.AddErrorf(base+"/from", flowchart.ErrCodeValidation, "edge references unknown node %q", e.From)
		}
		if !ids[e.To] {
			result.AddErrorf(base+"/to", flowchart.ErrCodeValidation, "edge references unknown node %q", e.To)
		}
	}
	return result
}

// addViolations walks a ValidationError tree and records one issue per leaf,
// located by its JSON pointer.
func addViolations(result *flowchart.ValidationResult, err error) {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		result.AddError("/", flowchart.ErrCodeValidation, err.Error())
		return
	}
	collect(result, verr)
}

func collect(result *flowchart.ValidationResult, verr *jsonschema.ValidationError) {
	if len(verr.Causes) == 0 {
		loc := "/" + strings.Join(verr.InstanceLocation, "/")
		result.AddError(loc, flowchart.ErrCodeValidation, verr.Error())
		return
	}
	for _, cause := range verr.Causes {
		collect(result, cause)
	}
}
