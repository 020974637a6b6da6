// Package validation keeps user supplied names inside the directories and
// keyring namespaces they are meant for.
//
// PathValidator confines workflow file names to the repository directory:
// it rejects absolute paths, ".." components, path separators, and
// symbolic links that resolve outside the base.
//
//	v, err := validation.NewPathValidator(dir)
//	if err != nil {
//	    return err
//	}
//	path, err := v.Validate("My_Flow.json")
package validation
