package anchor

import (
	"os"
	"path/filepath"

	"sintesi/internal/errors"
)

// InjectFile reads path, injects newBody into the anchor, and writes the
// result back. The file is never written when injection fails.
func InjectFile(path, anchorID, newBody string) (*InjectResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.WriteError, "failed to read document", err)
	}

	result, err := Inject(string(data), anchorID, newBody)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, []byte(result.Content), 0644); err != nil {
		return nil, errors.New(errors.WriteError, "failed to write document", err)
	}

	return result, nil
}

// InsertFile reads path (treating a missing file as empty), inserts a new
// anchor block, and writes the result back, creating parent directories
// as needed.
func InsertFile(path string, ref CodeRef, opts InsertOptions) (*InsertResult, error) {
	content := ""
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		content = string(data)
	case os.IsNotExist(err):
		// New document; Insert will create the section.
	default:
		return nil, errors.New(errors.WriteError, "failed to read document", err)
	}

	result, err := Insert(content, ref, opts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.New(errors.WriteError, "failed to create document directory", err)
	}
	if err := os.WriteFile(path, []byte(result.Content), 0644); err != nil {
		return nil, errors.New(errors.WriteError, "failed to write document", err)
	}

	return result, nil
}
