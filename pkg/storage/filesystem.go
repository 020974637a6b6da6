package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/llmflow/pkg/validation"
	"github.com/dshills/llmflow/pkg/workflow"
)

const workflowExt = ".json"

// FilesystemWorkflowRepository implements WorkflowRepository using
// filesystem storage. Workflows are stored as JSON files in
// <config-dir>/workflows/, named by workflow.FileName.
type FilesystemWorkflowRepository struct {
	dir       string
	validator *validation.PathValidator
}

var _ workflow.WorkflowRepository = (*FilesystemWorkflowRepository)(nil)

// NewFilesystemWorkflowRepository creates a repository under configDir,
// creating the workflows directory if needed.
func NewFilesystemWorkflowRepository(configDir string) (*FilesystemWorkflowRepository, error) {
	workflowsDir := filepath.Join(configDir, "workflows")

	if err := os.MkdirAll(workflowsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workflows directory: %w", err)
	}

	validator, err := validation.NewPathValidator(workflowsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &FilesystemWorkflowRepository{
		dir:       validator.Base(),
		validator: validator,
	}, nil
}

// Dir returns the workflows directory
func (r *FilesystemWorkflowRepository) Dir() string {
	return r.dir
}

// Path resolves a workflow name or file name to its location. A name
// without the .json extension is passed through workflow.FileName first.
func (r *FilesystemWorkflowRepository) Path(name string) (string, error) {
	file := name
	if !strings.HasSuffix(name, workflowExt) {
		file = workflow.FileName(name)
	}
	return r.validator.Validate(file)
}

// Save writes the workflow atomically using a temp file and rename. It
// returns the file name used.
func (r *FilesystemWorkflowRepository) Save(wf *workflow.Workflow) (string, error) {
	if wf == nil {
		return "", fmt.Errorf("cannot save nil workflow")
	}

	file := workflow.FileName(wf.Name)
	path, err := r.validator.Validate(file)
	if err != nil {
		return "", err
	}

	data, err := workflow.Serialize(wf)
	if err != nil {
		return "", err
	}

	if err := WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to save workflow file: %w", err)
	}
	return file, nil
}

// Load reads and parses a stored workflow
func (r *FilesystemWorkflowRepository) Load(name string) (*workflow.Workflow, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("workflow %s: %w", name, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	return workflow.Deserialize(data)
}

// Delete removes a stored workflow
func (r *FilesystemWorkflowRepository) Delete(name string) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("workflow %s: %w", name, workflow.ErrNotFound)
		}
		return fmt.Errorf("failed to delete workflow file: %w", err)
	}
	return nil
}

// List returns the stored workflow file names, sorted
func (r *FilesystemWorkflowRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), workflowExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".llmflow-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
