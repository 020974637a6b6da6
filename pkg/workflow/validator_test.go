package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_CleanWorkflow(t *testing.T) {
	assert.Empty(t, Validate(sampleWorkflow(t)))
	assert.Nil(t, Validate(nil))
}

func TestValidateNode(t *testing.T) {
	tests := []struct {
		name       string
		data       NodeData
		wantFields []string
	}{
		{
			name:       "temperature too high",
			data:       &LanguageModelData{Model: "m", Temperature: 2.5, MaxTokens: 10},
			wantFields: []string{"temperature"},
		},
		{
			name:       "negative temperature and zero tokens",
			data:       &LanguageModelData{Model: "m", Temperature: -0.1},
			wantFields: []string{"temperature", "maxTokens"},
		},
		{
			name:       "no model",
			data:       &LanguageModelData{Temperature: 1, MaxTokens: 1},
			wantFields: []string{"model"},
		},
		{
			name:       "bounds are inclusive",
			data:       &LanguageModelData{Model: "m", Temperature: 2, MaxTokens: 1},
			wantFields: nil,
		},
		{
			name:       "tool without parameters",
			data:       &ToolData{ToolType: ToolWeather, Parameters: []Parameter{}},
			wantFields: []string{"parameters"},
		},
		{
			name: "unknown tool type",
			data: &ToolData{ToolType: "teleport", Parameters: []Parameter{
				{Name: "where", Type: ParamString},
			}},
			wantFields: []string{"toolType"},
		},
		{
			name: "bad parameters",
			data: &ToolData{ToolType: ToolCode, Parameters: []Parameter{
				{Name: "", Type: ParamString},
				{Name: "x", Type: ParamNumber},
				{Name: "x", Type: "date"},
			}},
			wantFields: []string{"parameters", "parameters", "parameters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := Node{ID: "n", Type: tt.data.Kind(), Data: tt.data}
			issues := ValidateNode(node)

			var fields []string
			for _, issue := range issues {
				assert.Equal(t, SeverityWarning, issue.Severity)
				assert.Equal(t, "n", issue.NodeID)
				fields = append(fields, issue.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidate_Edges(t *testing.T) {
	wf := sampleWorkflow(t)
	require.NoError(t, wf.AddEdge(NewEdge("edge-2", "llmNode-1", "toolNode-2")))
	require.NoError(t, wf.AddEdge(NewEdge("edge-3", "toolNode-2", "toolNode-2")))

	issues := Validate(wf)
	require.Len(t, issues, 2)

	assert.Equal(t, "edge-2", issues[0].EdgeID)
	assert.Contains(t, issues[0].Message, "parallel to edge edge-1")
	assert.Equal(t, "edge-3", issues[1].EdgeID)
	assert.Contains(t, issues[1].Message, "itself")
	assert.Contains(t, issues[1].String(), "warning: edge edge-3")
}

func TestValidateAgainstSchema(t *testing.T) {
	problems, err := ValidateAgainstSchema([]byte(`{"nodes": [], "edges": []}`))
	require.NoError(t, err)
	assert.Empty(t, problems)

	problems, err = ValidateAgainstSchema([]byte(`{"nodes": []}`))
	require.NoError(t, err)
	assert.NotEmpty(t, problems)
}

func TestSchema_ReturnsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'X'
	assert.Equal(t, byte('{'), Schema()[0])
}
