package workflow

// WorkflowRepository defines the interface for workflow persistence
type WorkflowRepository interface {
	// Save persists a workflow and returns the file name it was written to
	Save(workflow *Workflow) (string, error)

	// Load retrieves a workflow by name
	Load(name string) (*Workflow, error)

	// Delete removes a workflow from storage
	Delete(name string) error

	// List returns the names of all stored workflows
	List() ([]string, error)
}
