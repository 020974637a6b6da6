// Package registry is the static catalog of node kinds: how each kind is
// presented in the palette and what data a freshly added node carries.
package registry

import (
	"errors"
	"fmt"

	"github.com/dshills/llmflow/pkg/workflow"
)

// ErrUnknownKind is returned for a node kind the registry does not hold
var ErrUnknownKind = errors.New("unknown node kind")

// Descriptor defines the palette metadata and default payload of a node kind
type Descriptor struct {
	Kind        workflow.NodeKind
	Title       string // Display name: "Language Model", "Tool"
	Description string // Short help text
	Icon        string
	newData     func() workflow.NodeData
}

// NewData returns a fresh default payload for the kind
func (d Descriptor) NewData() workflow.NodeData {
	return d.newData()
}

// Registry holds node kind descriptors in palette order
type Registry struct {
	descriptors []Descriptor
}

// Default payload values
const (
	DefaultModelLabel   = "Language Model"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 2048
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultToolLabel    = "Tool"
)

// Default returns the registry holding the language-model and tool kinds
func Default() *Registry {
	return &Registry{
		descriptors: []Descriptor{
			{
				Kind:        workflow.KindLanguageModel,
				Title:       "Language Model",
				Description: "Prompt a language model",
				Icon:        "🧠",
				newData: func() workflow.NodeData {
					return &workflow.LanguageModelData{
						Label:        DefaultModelLabel,
						Model:        "",
						Temperature:  DefaultTemperature,
						MaxTokens:    DefaultMaxTokens,
						SystemPrompt: DefaultSystemPrompt,
					}
				},
			},
			{
				Kind:        workflow.KindTool,
				Title:       "Tool",
				Description: "Call a tool such as search or a calculator",
				Icon:        "🔧",
				newData: func() workflow.NodeData {
					return &workflow.ToolData{
						Label:       DefaultToolLabel,
						ToolType:    workflow.ToolSearch,
						Description: "",
						Parameters:  []workflow.Parameter{},
					}
				},
			},
		},
	}
}

// Lookup returns the descriptor for kind
func (r *Registry) Lookup(kind workflow.NodeKind) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Kind == kind {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Kinds returns the registered kinds in palette order
func (r *Registry) Kinds() []workflow.NodeKind {
	kinds := make([]workflow.NodeKind, len(r.descriptors))
	for i, d := range r.descriptors {
		kinds[i] = d.Kind
	}
	return kinds
}

// Descriptors returns a copy of all descriptors in palette order
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// DefaultData returns a new default payload for kind. Every call returns
// an independent value.
func (r *Registry) DefaultData(kind workflow.NodeKind) (workflow.NodeData, error) {
	d, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return d.NewData(), nil
}

// Icon returns the palette icon for kind, or "?" if unknown
func (r *Registry) Icon(kind workflow.NodeKind) string {
	if d, ok := r.Lookup(kind); ok {
		return d.Icon
	}
	return "?"
}

// ToolTypes returns the tool type choices offered by the property panel
func ToolTypes() []workflow.ToolType {
	out := make([]workflow.ToolType, len(workflow.ToolTypes))
	copy(out, workflow.ToolTypes)
	return out
}

// ParamTypes returns the parameter type choices offered by the property panel
func ParamTypes() []workflow.ParamType {
	out := make([]workflow.ParamType, len(workflow.ParamTypes))
	copy(out, workflow.ParamTypes)
	return out
}
