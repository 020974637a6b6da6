package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// sampleWorkflow builds the two-node graph used across tests: a language
// model feeding a web search tool.
func sampleWorkflow(t *testing.T) *Workflow {
	t.Helper()

	wf := NewWorkflow("Research Flow", "Answers questions with search")
	require.NoError(t, wf.AddNode(Node{
		ID:       "llmNode-1",
		Type:     KindLanguageModel,
		Position: Position{X: 250, Y: 100},
		Data: &LanguageModelData{
			Label:        "GPT-4",
			Model:        "gpt-4",
			Temperature:  0.7,
			MaxTokens:    2048,
			SystemPrompt: "You are a helpful assistant.",
		},
	}))
	require.NoError(t, wf.AddNode(Node{
		ID:       "toolNode-2",
		Type:     KindTool,
		Position: Position{X: 250, Y: 300},
		Data: &ToolData{
			Label:       "Web Search",
			ToolType:    ToolSearch,
			Description: "Search the web",
			Parameters:  []Parameter{{Name: "query", Type: ParamString, Required: true}},
		},
	}))
	require.NoError(t, wf.AddEdge(NewEdge("edge-1", "llmNode-1", "toolNode-2")))
	return wf
}

func TestSerialize_RoundTrip(t *testing.T) {
	wf := sampleWorkflow(t)
	wf.Edges[0].Data = EdgeData{Label: "results", Dashed: true}

	data, err := Serialize(wf)
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, wf, got)
}

func TestSerialize_ScenarioD(t *testing.T) {
	wf := sampleWorkflow(t)

	data, err := Serialize(wf)
	require.NoError(t, err)
	got, err := Deserialize(data)
	require.NoError(t, err)

	require.Len(t, got.Nodes, 2)
	for i := range wf.Nodes {
		assert.Equal(t, wf.Nodes[i].ID, got.Nodes[i].ID)
		assert.Equal(t, wf.Nodes[i].Data, got.Nodes[i].Data)
	}
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "llmNode-1", got.Edges[0].Source)
	assert.Equal(t, "toolNode-2", got.Edges[0].Target)
}

func TestSerialize_Format(t *testing.T) {
	wf := sampleWorkflow(t)

	data, err := Serialize(wf)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(data), "{\n  \"name\""), "expected two-space indentation")
	assert.Equal(t, "Research Flow", gjson.GetBytes(data, "name").String())
	assert.Equal(t, "llmNode", gjson.GetBytes(data, "nodes.0.type").String())
	assert.Equal(t, 0.7, gjson.GetBytes(data, "nodes.0.data.temperature").Float())
	assert.Equal(t, "query", gjson.GetBytes(data, "nodes.1.data.parameters.0.name").String())
	assert.Equal(t, "custom", gjson.GetBytes(data, "edges.0.type").String())
	assert.True(t, gjson.GetBytes(data, "edges.0.animated").Bool())
	assert.False(t, gjson.GetBytes(data, "edges.0.data.label").Exists())
}

func TestSerialize_EmptyWorkflowWritesArrays(t *testing.T) {
	data, err := Serialize(&Workflow{Name: "empty"})
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(data, "nodes").IsArray())
	assert.True(t, gjson.GetBytes(data, "edges").IsArray())

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Empty(t, got.Nodes)
	assert.Empty(t, got.Edges)
}

func TestSerialize_Nil(t *testing.T) {
	_, err := Serialize(nil)
	assert.Error(t, err)
}

func TestDeserialize_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "not json",
			input:  `{"nodes": [`,
			reason: "not valid JSON",
		},
		{
			name:   "missing nodes",
			input:  `{"name": "x", "edges": []}`,
			reason: "schema violation",
		},
		{
			name:   "nodes not an array",
			input:  `{"nodes": {}, "edges": []}`,
			reason: "schema violation",
		},
		{
			name:   "unknown node type",
			input:  `{"nodes": [{"id": "a", "type": "startNode", "position": {"x": 0, "y": 0}, "data": {}}], "edges": []}`,
			reason: "schema violation",
		},
		{
			name:   "string position",
			input:  `{"nodes": [{"id": "a", "type": "llmNode", "position": {"x": "0", "y": 0}, "data": {}}], "edges": []}`,
			reason: "schema violation",
		},
		{
			name:   "wrong data field type",
			input:  `{"nodes": [{"id": "a", "type": "llmNode", "position": {"x": 0, "y": 0}, "data": {"temperature": "hot"}}], "edges": []}`,
			reason: "schema violation",
		},
		{
			name: "duplicate node ids",
			input: `{"nodes": [
				{"id": "a", "type": "llmNode", "position": {"x": 0, "y": 0}, "data": {}},
				{"id": "a", "type": "toolNode", "position": {"x": 0, "y": 0}, "data": {}}
			], "edges": []}`,
			reason: "integrity violation",
		},
		{
			name: "dangling edge",
			input: `{"nodes": [{"id": "a", "type": "llmNode", "position": {"x": 0, "y": 0}, "data": {}}],
				"edges": [{"id": "e", "source": "a", "target": "b", "type": "custom", "animated": true}]}`,
			reason: "integrity violation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := Deserialize([]byte(tt.input))
			require.Error(t, err)
			assert.Nil(t, wf)
			assert.True(t, errors.Is(err, ErrMalformedWorkflow))

			var mwe *MalformedWorkflowError
			require.True(t, errors.As(err, &mwe))
			assert.Equal(t, tt.reason, mwe.Reason)
		})
	}
}

func TestDeserialize_Defaults(t *testing.T) {
	input := `{
		"nodes": [
			{"id": "t", "type": "toolNode", "position": {"x": 1.5, "y": -2}},
			{"id": "l", "type": "llmNode", "position": {"x": 0, "y": 0}, "data": {"label": "Writer"}}
		],
		"edges": [{"id": "e", "source": "l", "target": "t"}]
	}`

	wf, err := Deserialize([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkflowName, wf.Name)
	assert.Equal(t, Position{X: 1.5, Y: -2}, wf.Nodes[0].Position)

	tool, ok := wf.Nodes[0].Data.(*ToolData)
	require.True(t, ok)
	assert.NotNil(t, tool.Parameters)

	llm, ok := wf.Nodes[1].Data.(*LanguageModelData)
	require.True(t, ok)
	assert.Equal(t, "Writer", llm.Label)

	assert.Equal(t, EdgeTypeCustom, wf.Edges[0].Type)
}

func TestDeserialize_SelfLoopAndParallelEdgesAccepted(t *testing.T) {
	input := `{"name": "loops",
		"nodes": [{"id": "a", "type": "llmNode", "position": {"x": 0, "y": 0}, "data": {}}],
		"edges": [
			{"id": "e1", "source": "a", "target": "a", "type": "custom", "animated": true},
			{"id": "e2", "source": "a", "target": "a", "type": "custom", "animated": false}
		]}`

	wf, err := Deserialize([]byte(input))
	require.NoError(t, err)
	assert.Len(t, wf.Edges, 2)
}

func TestDeserializeOrDefault(t *testing.T) {
	wf, err := DeserializeOrDefault([]byte("not json"))
	require.Error(t, err)
	require.NotNil(t, wf)
	assert.Equal(t, DefaultWorkflowName, wf.Name)
	assert.Empty(t, wf.Nodes)
	assert.Empty(t, wf.Edges)

	data, err := Serialize(sampleWorkflow(t))
	require.NoError(t, err)
	wf, err = DeserializeOrDefault(data)
	require.NoError(t, err)
	assert.Len(t, wf.Nodes, 2)
}

func TestDeserializeOrDefault_KeepsReadableName(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"name survives bad nodes", `{"name": "Broken Flow", "nodes": 7, "edges": []}`, "Broken Flow"},
		{"blank name", `{"name": "   ", "nodes": 7, "edges": []}`, DefaultWorkflowName},
		{"name not a string", `{"name": 42, "nodes": [], "edges": []}`, DefaultWorkflowName},
		{"no name", `{"edges": []}`, DefaultWorkflowName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := DeserializeOrDefault([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedWorkflow)
			assert.Equal(t, tt.want, wf.Name)
			assert.Empty(t, wf.Nodes)
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"My Flow", "My_Flow.json"},
		{"a  \t b", "a_b.json"},
		{"  padded  ", "padded.json"},
		{"", "Untitled.json"},
		{"   ", "Untitled.json"},
		{"../etc/passwd", "etcpasswd.json"},
		{`dir\name`, "dirname.json"},
		{"..", "Untitled.json"},
		{"v1.2 draft", "v1.2_draft.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.name))
		})
	}
}
