package intake

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadVarsFile reads a YAML mapping of variable names to scalar values.
// Scalars are kept as written. An empty file yields an empty map.
func ReadVarsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewIntakeError("ReadVarsFile", "vars_file", path, "file does not exist", err)
		}
		return nil, NewIntakeError("ReadVarsFile", "vars_file", path, err.Error(), ErrVarsFile)
	}

	vars := make(map[string]string)
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, NewIntakeError("ReadVarsFile", "vars_file", path, err.Error(), ErrVarsFile)
	}
	return vars, nil
}
