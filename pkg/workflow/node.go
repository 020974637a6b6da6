package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// NodeKind identifies the type of a node. The string values are the
// "type" discriminators written to workflow files.
type NodeKind string

const (
	// KindLanguageModel is a node that prompts a language model
	KindLanguageModel NodeKind = "llmNode"
	// KindTool is a node that invokes a tool
	KindTool NodeKind = "toolNode"
)

// Valid reports whether k is a known node kind
func (k NodeKind) Valid() bool {
	return k == KindLanguageModel || k == KindTool
}

// ToolType enumerates the tools a tool node can invoke
type ToolType string

const (
	ToolSearch       ToolType = "search"
	ToolCode         ToolType = "code"
	ToolCalculator   ToolType = "calculator"
	ToolWeather      ToolType = "weather"
	ToolCalendar     ToolType = "calendar"
	ToolDataAnalysis ToolType = "data-analysis"
)

// ToolTypes lists every tool type in display order
var ToolTypes = []ToolType{ToolSearch, ToolCode, ToolCalculator, ToolWeather, ToolCalendar, ToolDataAnalysis}

// Valid reports whether t is a known tool type
func (t ToolType) Valid() bool {
	for _, known := range ToolTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParamType enumerates the value types of a tool parameter
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamObject  ParamType = "object"
	ParamArray   ParamType = "array"
)

// ParamTypes lists every parameter type in display order
var ParamTypes = []ParamType{ParamString, ParamNumber, ParamBoolean, ParamObject, ParamArray}

// Valid reports whether p is a known parameter type
func (p ParamType) Valid() bool {
	for _, known := range ParamTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Temperature and token bounds for language-model nodes
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 8192
)

// NodeData is the kind-specific payload of a node
type NodeData interface {
	Kind() NodeKind
	GetLabel() string
	Clone() NodeData
}

// LanguageModelData is the payload of a language-model node
type LanguageModelData struct {
	Label        string  `json:"label"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"maxTokens"`
	SystemPrompt string  `json:"systemPrompt"`
}

// Kind returns KindLanguageModel
func (d *LanguageModelData) Kind() NodeKind {
	return KindLanguageModel
}

// GetLabel returns the node label
func (d *LanguageModelData) GetLabel() string {
	return d.Label
}

// Clone returns a copy of the payload
func (d *LanguageModelData) Clone() NodeData {
	c := *d
	return &c
}

// Parameter describes one input of a tool node
type Parameter struct {
	Name     string    `json:"name"`
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
}

// ToolData is the payload of a tool node
type ToolData struct {
	Label       string      `json:"label"`
	ToolType    ToolType    `json:"toolType"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Kind returns KindTool
func (d *ToolData) Kind() NodeKind {
	return KindTool
}

// GetLabel returns the node label
func (d *ToolData) GetLabel() string {
	return d.Label
}

// Clone returns a copy of the payload, including its parameter list
func (d *ToolData) Clone() NodeData {
	c := *d
	c.Parameters = make([]Parameter, len(d.Parameters))
	copy(c.Parameters, d.Parameters)
	return &c
}

// Node is a typed, positioned unit of the workflow graph
type Node struct {
	ID       string
	Type     NodeKind
	Position Position
	Data     NodeData
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	c := n
	if n.Data != nil {
		c.Data = n.Data.Clone()
	}
	return c
}

// Label returns the label of the node's payload
func (n Node) Label() string {
	if n.Data == nil {
		return ""
	}
	return n.Data.GetLabel()
}

// nodeJSON is the wire shape of a node
type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeKind        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON implements custom JSON marshaling
func (n Node) MarshalJSON() ([]byte, error) {
	data := []byte("{}")
	if n.Data != nil {
		var err error
		data, err = json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     data,
	})
}

// UnmarshalJSON decodes a node, choosing the payload type from the
// "type" discriminator
func (n *Node) UnmarshalJSON(data []byte) error {
	kind := NodeKind(gjson.GetBytes(data, "type").String())
	if !kind.Valid() {
		return fmt.Errorf("unknown node type: %q", kind)
	}

	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := DecodeNodeData(kind, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = kind
	n.Position = raw.Position
	n.Data = payload
	return nil
}

// DecodeNodeData decodes a JSON payload into the concrete data type for kind.
// An empty payload decodes to the zero value.
func DecodeNodeData(kind NodeKind, raw []byte) (NodeData, error) {
	var payload NodeData
	switch kind {
	case KindLanguageModel:
		payload = &LanguageModelData{}
	case KindTool:
		payload = &ToolData{Parameters: []Parameter{}}
	default:
		return nil, fmt.Errorf("unknown node type: %q", kind)
	}

	if len(raw) == 0 || string(raw) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", kind, err)
	}
	if td, ok := payload.(*ToolData); ok && td.Parameters == nil {
		td.Parameters = []Parameter{}
	}
	return payload, nil
}
