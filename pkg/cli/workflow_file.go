package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dshills/llmflow/pkg/storage"
)

// maxWorkflowFileSize bounds how much of a workflow file is read
const maxWorkflowFileSize = 16 << 20

// resolveWorkflowPath accepts either a path on disk or the name of a
// workflow in the repository
func resolveWorkflowPath(repo *storage.FilesystemWorkflowRepository, arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}

	path, err := repo.Path(arg)
	if err != nil {
		return "", fmt.Errorf("workflow not found: %s", arg)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("workflow not found: %s\n\nLooked in: %s", arg, path)
	}
	return path, nil
}

// readWorkflowFile reads a workflow document without parsing it
func readWorkflowFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("workflow file not found: %s", path)
	}
	if info.Size() > maxWorkflowFileSize {
		return nil, fmt.Errorf("workflow file %s is larger than %d bytes", path, maxWorkflowFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return data, nil
}
