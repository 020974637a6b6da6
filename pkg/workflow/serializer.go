package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// MalformedWorkflowError describes why a document could not be loaded.
// It matches ErrMalformedWorkflow with errors.Is.
type MalformedWorkflowError struct {
	Reason   string
	Problems []string
	Err      error
}

func (e *MalformedWorkflowError) Error() string {
	msg := "malformed workflow: " + e.Reason
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrMalformedWorkflow
func (e *MalformedWorkflowError) Is(target error) bool {
	return target == ErrMalformedWorkflow
}

func (e *MalformedWorkflowError) Unwrap() error {
	return e.Err
}

func malformed(reason string, problems []string, err error) error {
	return &MalformedWorkflowError{Reason: reason, Problems: problems, Err: err}
}

// Serialize encodes the workflow as two-space indented JSON, including ids
// and positions.
func Serialize(w *Workflow) ([]byte, error) {
	if w == nil {
		return nil, errors.New("workflow cannot be nil")
	}

	out := *w
	if out.Nodes == nil {
		out.Nodes = []Node{}
	}
	if out.Edges == nil {
		out.Edges = []Edge{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return data, nil
}

// Deserialize parses a workflow document. Anything that is not JSON, that
// fails the workflow schema, or that breaks id uniqueness or edge
// endpoints is rejected with a *MalformedWorkflowError.
func Deserialize(data []byte) (*Workflow, error) {
	if !gjson.ValidBytes(data) {
		return nil, malformed("not valid JSON", nil, nil)
	}

	problems, err := ValidateAgainstSchema(data)
	if err != nil {
		return nil, malformed("schema check failed", nil, err)
	}
	if len(problems) > 0 {
		return nil, malformed("schema violation", problems, nil)
	}

	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, malformed("decode failed", nil, err)
	}

	if !gjson.GetBytes(data, "name").Exists() || strings.TrimSpace(w.Name) == "" {
		w.Name = DefaultWorkflowName
	}
	if w.Nodes == nil {
		w.Nodes = []Node{}
	}
	if w.Edges == nil {
		w.Edges = []Edge{}
	}
	for i := range w.Edges {
		if w.Edges[i].Type == "" {
			w.Edges[i].Type = EdgeTypeCustom
		}
	}

	if problems := w.CheckIntegrity(); len(problems) > 0 {
		return nil, malformed("integrity violation", problems, nil)
	}
	return &w, nil
}

// DeserializeOrDefault is the fail-open form of Deserialize: on failure it
// returns an empty workflow together with the error. The empty workflow
// keeps the document's name when one can still be read, else "Untitled".
func DeserializeOrDefault(data []byte) (*Workflow, error) {
	w, err := Deserialize(data)
	if err != nil {
		name := DefaultWorkflowName
		if n := gjson.GetBytes(data, "name"); n.Type == gjson.String && strings.TrimSpace(n.String()) != "" {
			name = n.String()
		}
		return NewWorkflow(name, ""), err
	}
	return w, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileName derives the file a workflow is saved to from its name.
// Whitespace runs become underscores and path separators are dropped.
func FileName(name string) string {
	base := whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	base = strings.NewReplacer("/", "", "\\", "", "\x00", "").Replace(base)
	base = strings.Trim(base, ".")
	if base == "" {
		base = DefaultWorkflowName
	}
	return base + ".json"
}
