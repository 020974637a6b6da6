package workflow

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/workflow.schema.json
var workflowSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(workflowSchema))
})

// Schema returns the JSON Schema workflow documents are checked against
func Schema() []byte {
	out := make([]byte, len(workflowSchema))
	copy(out, workflowSchema)
	return out
}

// ValidateAgainstSchema validates raw workflow JSON against the embedded
// schema. It returns one message per violation, or nil if the document
// conforms.
func ValidateAgainstSchema(data []byte) ([]string, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile workflow schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return problems, nil
}

// Severity grades an advisory issue
type Severity string

const (
	SeverityWarning Severity = "warning"
)

// Issue is an advisory finding about a workflow. Issues never block saving.
type Issue struct {
	Severity Severity
	NodeID   string
	EdgeID   string
	Field    string
	Message  string
}

func (i Issue) String() string {
	var where string
	switch {
	case i.NodeID != "" && i.Field != "":
		where = fmt.Sprintf("node %s (%s)", i.NodeID, i.Field)
	case i.NodeID != "":
		where = "node " + i.NodeID
	case i.EdgeID != "":
		where = "edge " + i.EdgeID
	default:
		where = "workflow"
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, where, i.Message)
}

// Validate reports advisory issues: out-of-range model settings, unknown
// enum values, questionable tool parameters, self-loops and parallel edges.
func Validate(w *Workflow) []Issue {
	if w == nil {
		return nil
	}

	var issues []Issue
	for _, node := range w.Nodes {
		issues = append(issues, ValidateNode(node)...)
	}

	seen := make(map[[2]string]string, len(w.Edges))
	for _, edge := range w.Edges {
		if edge.IsSelfLoop() {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				EdgeID:   edge.ID,
				Message:  fmt.Sprintf("edge connects node %s to itself", edge.Source),
			})
		}
		key := [2]string{edge.Source, edge.Target}
		if first, ok := seen[key]; ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				EdgeID:   edge.ID,
				Message:  fmt.Sprintf("parallel to edge %s", first),
			})
			continue
		}
		seen[key] = edge.ID
	}

	return issues
}

// ValidateNode reports advisory issues for a single node
func ValidateNode(node Node) []Issue {
	warn := func(field, format string, args ...any) Issue {
		return Issue{
			Severity: SeverityWarning,
			NodeID:   node.ID,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	var issues []Issue
	switch data := node.Data.(type) {
	case *LanguageModelData:
		if data.Temperature < MinTemperature || data.Temperature > MaxTemperature {
			issues = append(issues, warn("temperature", "temperature %.2f is outside [%.0f, %.0f]", data.Temperature, MinTemperature, MaxTemperature))
		}
		if data.MaxTokens < MinMaxTokens {
			issues = append(issues, warn("maxTokens", "max tokens must be at least %d", MinMaxTokens))
		}
		if strings.TrimSpace(data.Model) == "" {
			issues = append(issues, warn("model", "no model selected"))
		}
	case *ToolData:
		if !data.ToolType.Valid() {
			issues = append(issues, warn("toolType", "unknown tool type %q", data.ToolType))
		}
		if len(data.Parameters) == 0 {
			issues = append(issues, warn("parameters", "tool has no parameters"))
		}
		names := make(map[string]bool, len(data.Parameters))
		for i, p := range data.Parameters {
			if strings.TrimSpace(p.Name) == "" {
				issues = append(issues, warn("parameters", "parameter %d has no name", i+1))
			} else if names[p.Name] {
				issues = append(issues, warn("parameters", "duplicate parameter name %q", p.Name))
			}
			names[p.Name] = true
			if !p.Type.Valid() {
				issues = append(issues, warn("parameters", "parameter %q has unknown type %q", p.Name, p.Type))
			}
		}
	}
	return issues
}
