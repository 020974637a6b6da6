package workflow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format names an export format
type Format string

const (
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
)

// Exporter converts a workflow into a text format
type Exporter interface {
	// Export renders the workflow
	Export(w *Workflow) ([]byte, error)
	// FileExtension returns the recommended extension, including the dot
	FileExtension() string
}

// NewExporter creates an exporter for the given format
func NewExporter(format Format) (Exporter, error) {
	switch format {
	case FormatJSON:
		return JSONExporter{}, nil
	case FormatMermaid:
		return MermaidExporter{}, nil
	case FormatDOT:
		return DOTExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ParseFormat converts a user supplied name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "mermaid", "mmd":
		return FormatMermaid, nil
	case "dot", "graphviz", "gv":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Formats lists the available export formats
func Formats() []Format {
	return []Format{FormatJSON, FormatMermaid, FormatDOT}
}

// JSONExporter writes the workflow file format
type JSONExporter struct{}

func (JSONExporter) Export(w *Workflow) ([]byte, error) { return Serialize(w) }
func (JSONExporter) FileExtension() string              { return ".json" }

// MermaidExporter writes a Mermaid flowchart
type MermaidExporter struct{}

func (MermaidExporter) FileExtension() string { return ".mmd" }

// Export renders nodes in order followed by edges. Language-model nodes
// are drawn as rounded boxes, tools as rectangles.
func (MermaidExporter) Export(w *Workflow) ([]byte, error) {
	if w == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	ids := shortIDs(w)
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	for _, node := range w.Nodes {
		label := mermaidEscape(node.Label())
		if node.Type == KindLanguageModel {
			fmt.Fprintf(&sb, "    %s(\"%s\")\n", ids[node.ID], label)
		} else {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids[node.ID], label)
		}
	}

	if len(w.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range w.Edges {
		arrow := "-->"
		if edge.Data.Dashed {
			arrow = "-.->"
		}
		if edge.Data.Label != "" {
			fmt.Fprintf(&sb, "    %s %s|\"%s\"| %s\n", ids[edge.Source], arrow, mermaidEscape(edge.Data.Label), ids[edge.Target])
		} else {
			fmt.Fprintf(&sb, "    %s %s %s\n", ids[edge.Source], arrow, ids[edge.Target])
		}
	}

	return []byte(sb.String()), nil
}

func mermaidEscape(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	return strings.ReplaceAll(s, "\n", "<br/>")
}

// DOTExporter writes a Graphviz digraph
type DOTExporter struct{}

func (DOTExporter) FileExtension() string { return ".dot" }

// Export renders the workflow as DOT. Dashed edges use style=dashed.
func (DOTExporter) Export(w *Workflow) ([]byte, error) {
	if w == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	ids := shortIDs(w)
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph \"%s\" {\n", dotEscape(w.Name))
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box];\n\n")

	for _, node := range w.Nodes {
		attrs := fmt.Sprintf("label=\"%s\"", dotEscape(node.Label()))
		if node.Type == KindLanguageModel {
			attrs += ", style=rounded"
		}
		fmt.Fprintf(&sb, "  %s [%s];\n", ids[node.ID], attrs)
	}

	if len(w.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, edge := range w.Edges {
		var attrs []string
		if edge.Data.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=\"%s\"", dotEscape(edge.Data.Label)))
		}
		if edge.Data.Dashed {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&sb, "  %s -> %s [%s];\n", ids[edge.Source], ids[edge.Target], strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&sb, "  %s -> %s;\n", ids[edge.Source], ids[edge.Target])
		}
	}

	sb.WriteString("}\n")
	return []byte(sb.String()), nil
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// shortIDs maps node IDs to N1, N2, ... in node order. Generated IDs
// contain dashes, which neither Mermaid nor DOT accept unquoted.
func shortIDs(w *Workflow) map[string]string {
	ids := make(map[string]string, len(w.Nodes))
	for i, node := range w.Nodes {
		ids[node.ID] = fmt.Sprintf("N%d", i+1)
	}
	return ids
}

// CredentialWarning is a possible secret found in workflow text
type CredentialWarning struct {
	Location string
	Pattern  string
	Message  string
}

var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),           // OpenAI style
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),       // Anthropic style
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),           // Google API key
	regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`),            // AWS access key
	regexp.MustCompile(`(?i)gh[pousr]_[A-Za-z0-9_]{36,}`), // GitHub token
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_=]+\.?[A-Za-z0-9\-_.+/=]*`),
	regexp.MustCompile(`(?i)-----BEGIN\s+(RSA|DSA|EC|OPENSSH)\s+PRIVATE\s+KEY-----`),
	regexp.MustCompile(`(?i)(api[_-]?key|password|secret)\s*[:=]\s*['"]?[^\s'"]{8,}`),
}

// ScanForCredentials looks for secrets pasted into free text: labels,
// system prompts, tool descriptions and edge labels. Workflow files are
// meant to be shared, so anything found here should move to the keyring.
func ScanForCredentials(w *Workflow) []CredentialWarning {
	if w == nil {
		return nil
	}

	var warnings []CredentialWarning
	warnings = append(warnings, scanString(w.Description, "description")...)

	for _, node := range w.Nodes {
		location := "nodes." + node.ID
		switch data := node.Data.(type) {
		case *LanguageModelData:
			warnings = append(warnings, scanString(data.Label, location+".label")...)
			warnings = append(warnings, scanString(data.SystemPrompt, location+".systemPrompt")...)
		case *ToolData:
			warnings = append(warnings, scanString(data.Label, location+".label")...)
			warnings = append(warnings, scanString(data.Description, location+".description")...)
		}
	}

	for _, edge := range w.Edges {
		warnings = append(warnings, scanString(edge.Data.Label, "edges."+edge.ID+".label")...)
	}
	return warnings
}

func scanString(value, location string) []CredentialWarning {
	if value == "" {
		return nil
	}
	for _, pattern := range credentialPatterns {
		if pattern.MatchString(value) {
			// first match only
			return []CredentialWarning{{
				Location: location,
				Pattern:  pattern.String(),
				Message:  "potential credential detected",
			}}
		}
	}
	return nil
}
