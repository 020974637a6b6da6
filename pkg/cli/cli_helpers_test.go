package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/llmflow/pkg/workflow"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// setupConfigDir points the CLI at a fresh config directory and an
// in-memory keyring
func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(configDirEnv, dir)
	keyring.MockInit()
	return dir
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func sampleWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	wf := workflow.NewWorkflow("Research Flow", "Answers questions with search")
	require.NoError(t, wf.AddNode(workflow.Node{
		ID:       "llmNode-1",
		Type:     workflow.KindLanguageModel,
		Position: workflow.Position{X: 250, Y: 100},
		Data: &workflow.LanguageModelData{
			Label:        "GPT-4",
			Model:        "gpt-4",
			Temperature:  0.7,
			MaxTokens:    2048,
			SystemPrompt: "You are a helpful assistant.",
		},
	}))
	require.NoError(t, wf.AddNode(workflow.Node{
		ID:       "toolNode-2",
		Type:     workflow.KindTool,
		Position: workflow.Position{X: 250, Y: 300},
		Data: &workflow.ToolData{
			Label:       "Web Search",
			ToolType:    workflow.ToolSearch,
			Description: "Search the web",
			Parameters:  []workflow.Parameter{{Name: "query", Type: workflow.ParamString, Required: true}},
		},
	}))
	require.NoError(t, wf.AddEdge(workflow.NewEdge("edge-1", "llmNode-1", "toolNode-2")))
	return wf
}

// writeWorkflow serializes wf into dir and returns the file path
func writeWorkflow(t *testing.T, dir string, wf *workflow.Workflow) string {
	t.Helper()
	data, err := workflow.Serialize(wf)
	require.NoError(t, err)
	path := filepath.Join(dir, workflow.FileName(wf.Name))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644))
}
