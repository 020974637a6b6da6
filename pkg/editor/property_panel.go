package editor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/llmflow/pkg/graph"
	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/registry"
	"github.com/dshills/llmflow/pkg/workflow"
)

// FieldKind determines how a panel field is edited
type FieldKind string

const (
	FieldText       FieldKind = "text"
	FieldTextArea   FieldKind = "textarea"
	FieldSelect     FieldKind = "select"
	FieldSlider     FieldKind = "slider"
	FieldParameters FieldKind = "parameters"
)

// Panel field keys. They match the JSON names of the node data.
const (
	KeyLabel        = "label"
	KeyModel        = "model"
	KeyTemperature  = "temperature"
	KeyMaxTokens    = "maxTokens"
	KeySystemPrompt = "systemPrompt"
	KeyToolType     = "toolType"
	KeyDescription  = "description"
	KeyParameters   = "parameters"
)

// TemperatureStep is the slider increment for temperature
const TemperatureStep = 0.1

// Field is one row of the property panel
type Field struct {
	Key     string
	Label   string
	Kind    FieldKind
	Value   string
	Options []string
	Min     float64
	Max     float64
	Step    float64
	Params  []workflow.Parameter
}

// PropertyPanel edits the selected node's data. Every change is written to
// the store immediately; the panel keeps no copy of the data.
type PropertyPanel struct {
	store     *graph.Store
	selection *SelectionController
	providers []models.Provider
	focus     int
}

// NewPropertyPanel creates a panel offering the given providers in the
// model dropdown. The list is copied and never modified.
func NewPropertyPanel(store *graph.Store, sel *SelectionController, providers []models.Provider) *PropertyPanel {
	p := &PropertyPanel{
		store:     store,
		selection: sel,
		providers: append([]models.Provider(nil), providers...),
	}
	sel.OnChange(func(_, _ Selection) { p.focus = 0 })
	return p
}

// Providers returns a copy of the injected provider list
func (p *PropertyPanel) Providers() []models.Provider {
	return append([]models.Provider(nil), p.providers...)
}

// Node returns the node being edited
func (p *PropertyPanel) Node() (workflow.Node, bool) {
	sel := p.selection.Current()
	if sel.Kind != SelectionNode {
		return workflow.Node{}, false
	}
	return p.store.Node(sel.ID)
}

func (p *PropertyPanel) nodeID() (string, error) {
	node, ok := p.Node()
	if !ok {
		return "", ErrNoSelection
	}
	return node.ID, nil
}

// Fields returns the panel rows for the selected node, or nil when no node
// is selected
func (p *PropertyPanel) Fields() []Field {
	node, ok := p.Node()
	if !ok {
		return nil
	}

	switch data := node.Data.(type) {
	case *workflow.LanguageModelData:
		return []Field{
			{Key: KeyLabel, Label: "Label", Kind: FieldText, Value: data.Label},
			{Key: KeyModel, Label: "Model", Kind: FieldSelect, Value: data.Model, Options: models.ModelNames(p.providers)},
			{
				Key: KeyTemperature, Label: "Temperature", Kind: FieldSlider,
				Value: strconv.FormatFloat(data.Temperature, 'f', 1, 64),
				Min:   workflow.MinTemperature, Max: workflow.MaxTemperature, Step: TemperatureStep,
			},
			{
				Key: KeyMaxTokens, Label: "Max Tokens", Kind: FieldSlider,
				Value: strconv.Itoa(data.MaxTokens),
				Min:   workflow.MinMaxTokens, Max: workflow.MaxMaxTokens, Step: 1,
			},
			{Key: KeySystemPrompt, Label: "System Prompt", Kind: FieldTextArea, Value: data.SystemPrompt},
		}
	case *workflow.ToolData:
		toolTypes := registry.ToolTypes()
		options := make([]string, len(toolTypes))
		for i, t := range toolTypes {
			options[i] = string(t)
		}
		return []Field{
			{Key: KeyLabel, Label: "Label", Kind: FieldText, Value: data.Label},
			{Key: KeyToolType, Label: "Tool Type", Kind: FieldSelect, Value: string(data.ToolType), Options: options},
			{Key: KeyDescription, Label: "Description", Kind: FieldTextArea, Value: data.Description},
			{
				Key: KeyParameters, Label: "Parameters", Kind: FieldParameters,
				Value:  formatParameters(data.Parameters),
				Params: append([]workflow.Parameter(nil), data.Parameters...),
			},
		}
	}
	return nil
}

func formatParameters(params []workflow.Parameter) string {
	parts := make([]string, len(params))
	for i, param := range params {
		s := param.Name + ":" + string(param.Type)
		if param.Required {
			s += "*"
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

// parseParameters reads the list form produced by formatParameters:
// "name:type" entries separated by commas, "*" marking required ones. A
// missing type means string.
func parseParameters(text string) ([]workflow.Parameter, error) {
	params := []workflow.Parameter{}
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		param := workflow.Parameter{Type: workflow.ParamString}
		if rest, ok := strings.CutSuffix(entry, "*"); ok {
			param.Required = true
			entry = strings.TrimSpace(rest)
		}
		name, typ, hasType := strings.Cut(entry, ":")
		param.Name = strings.TrimSpace(name)
		if hasType {
			param.Type = workflow.ParamType(strings.TrimSpace(typ))
			if !param.Type.Valid() {
				return nil, fmt.Errorf("parameter %q: unknown type %q", param.Name, typ)
			}
		}
		params = append(params, param)
	}
	return params, nil
}

// Focus returns the index of the focused field
func (p *PropertyPanel) Focus() int {
	return p.focus
}

// FocusedField returns the focused row
func (p *PropertyPanel) FocusedField() (Field, bool) {
	fields := p.Fields()
	if len(fields) == 0 {
		return Field{}, false
	}
	if p.focus >= len(fields) {
		p.focus = 0
	}
	return fields[p.focus], true
}

// NextField moves focus down, wrapping to the first field
func (p *PropertyPanel) NextField() {
	n := len(p.Fields())
	if n == 0 {
		return
	}
	p.focus = (p.focus + 1) % n
}

// PrevField moves focus up, wrapping to the last field
func (p *PropertyPanel) PrevField() {
	n := len(p.Fields())
	if n == 0 {
		return
	}
	p.focus = (p.focus - 1 + n) % n
}

func (p *PropertyPanel) update(key string, value any) error {
	id, err := p.nodeID()
	if err != nil {
		return err
	}
	return p.store.UpdateNode(id, workflow.DataPatch{key: value})
}

func (p *PropertyPanel) hasField(key string) bool {
	for _, f := range p.Fields() {
		if f.Key == key {
			return true
		}
	}
	return false
}

// SetText writes a free-text field (label, model, systemPrompt or
// description)
func (p *PropertyPanel) SetText(key, value string) error {
	switch key {
	case KeyLabel, KeyModel, KeySystemPrompt, KeyDescription:
	default:
		return fmt.Errorf("field %q is not a text field", key)
	}
	if !p.hasField(key) {
		return fmt.Errorf("selected node has no field %q", key)
	}
	return p.update(key, value)
}

// SetModel selects a model. Names missing from the provider list are
// accepted and reported by Warnings.
func (p *PropertyPanel) SetModel(model string) error {
	return p.SetText(KeyModel, model)
}

// SetTemperature clamps v to [0,2], rounds it to the slider step and
// stores it
func (p *PropertyPanel) SetTemperature(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("temperature is not a number")
	}
	v = math.Max(workflow.MinTemperature, math.Min(workflow.MaxTemperature, v))
	v = math.Round(v*10) / 10
	if !p.hasField(KeyTemperature) {
		return fmt.Errorf("selected node has no field %q", KeyTemperature)
	}
	return p.update(KeyTemperature, v)
}

// SetMaxTokens clamps n to [1,8192] and stores it
func (p *PropertyPanel) SetMaxTokens(n int) error {
	if n < workflow.MinMaxTokens {
		n = workflow.MinMaxTokens
	}
	if n > workflow.MaxMaxTokens {
		n = workflow.MaxMaxTokens
	}
	if !p.hasField(KeyMaxTokens) {
		return fmt.Errorf("selected node has no field %q", KeyMaxTokens)
	}
	return p.update(KeyMaxTokens, n)
}

// SetToolType selects a tool type from the enum
func (p *PropertyPanel) SetToolType(t workflow.ToolType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown tool type %q", t)
	}
	if !p.hasField(KeyToolType) {
		return fmt.Errorf("selected node has no field %q", KeyToolType)
	}
	return p.update(KeyToolType, string(t))
}

func (p *PropertyPanel) parameters() ([]workflow.Parameter, error) {
	node, ok := p.Node()
	if !ok {
		return nil, ErrNoSelection
	}
	data, ok := node.Data.(*workflow.ToolData)
	if !ok {
		return nil, fmt.Errorf("node %s has no parameters", node.ID)
	}
	return append([]workflow.Parameter(nil), data.Parameters...), nil
}

func (p *PropertyPanel) setParameters(params []workflow.Parameter) error {
	if params == nil {
		params = []workflow.Parameter{}
	}
	return p.update(KeyParameters, params)
}

// AddParameter appends an empty string parameter
func (p *PropertyPanel) AddParameter() error {
	params, err := p.parameters()
	if err != nil {
		return err
	}
	params = append(params, workflow.Parameter{Type: workflow.ParamString})
	return p.setParameters(params)
}

// RemoveParameter deletes the parameter at index i
func (p *PropertyPanel) RemoveParameter(i int) error {
	params, err := p.parameters()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(params) {
		return fmt.Errorf("parameter %d: index out of range", i)
	}
	params = append(params[:i:i], params[i+1:]...)
	return p.setParameters(params)
}

// UpdateParameter replaces the parameter at index i
func (p *PropertyPanel) UpdateParameter(i int, param workflow.Parameter) error {
	params, err := p.parameters()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(params) {
		return fmt.Errorf("parameter %d: index out of range", i)
	}
	params[i] = param
	return p.setParameters(params)
}

// SetField parses text for the field named key and stores it. Parameter
// rows are addressed as "parameters.<index>.<name|type|required>"; the whole
// list can be set as "parameters" in the form shown by Fields.
func (p *PropertyPanel) SetField(key, text string) error {
	switch key {
	case KeyTemperature:
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		return p.SetTemperature(v)
	case KeyMaxTokens:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return fmt.Errorf("max tokens: %w", err)
		}
		return p.SetMaxTokens(n)
	case KeyToolType:
		return p.SetToolType(workflow.ToolType(strings.TrimSpace(text)))
	case KeyLabel, KeyModel, KeySystemPrompt, KeyDescription:
		return p.SetText(key, text)
	case KeyParameters:
		params, err := parseParameters(text)
		if err != nil {
			return err
		}
		if _, err := p.parameters(); err != nil {
			return err
		}
		return p.setParameters(params)
	}

	if rest, ok := strings.CutPrefix(key, KeyParameters+"."); ok {
		return p.setParameterField(rest, text)
	}
	return fmt.Errorf("unknown field %q", key)
}

func (p *PropertyPanel) setParameterField(path, text string) error {
	idxText, attr, ok := strings.Cut(path, ".")
	if !ok {
		return fmt.Errorf("parameter field %q: expected <index>.<attribute>", path)
	}
	i, err := strconv.Atoi(idxText)
	if err != nil {
		return fmt.Errorf("parameter index %q: %w", idxText, err)
	}
	params, err := p.parameters()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(params) {
		return fmt.Errorf("parameter %d: index out of range", i)
	}

	param := params[i]
	switch attr {
	case "name":
		param.Name = text
	case "type":
		t := workflow.ParamType(strings.TrimSpace(text))
		if !t.Valid() {
			return fmt.Errorf("unknown parameter type %q", text)
		}
		param.Type = t
	case "required":
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return fmt.Errorf("required: %w", err)
		}
		param.Required = b
	default:
		return fmt.Errorf("unknown parameter attribute %q", attr)
	}
	return p.UpdateParameter(i, param)
}

// Warnings returns advisory issues for the selected node, including a model
// that none of the providers offer
func (p *PropertyPanel) Warnings() []workflow.Issue {
	node, ok := p.Node()
	if !ok {
		return nil
	}
	issues := workflow.ValidateNode(node)
	if data, ok := node.Data.(*workflow.LanguageModelData); ok {
		if data.Model != "" && !models.Contains(p.providers, data.Model) {
			issues = append(issues, workflow.Issue{
				Severity: workflow.SeverityWarning,
				NodeID:   node.ID,
				Field:    KeyModel,
				Message:  fmt.Sprintf("model %q is not in the model registry", data.Model),
			})
		}
	}
	return issues
}
