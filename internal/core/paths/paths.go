// Package paths derives the workspace paths seen inside a container.
package paths

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
)

var (
	ErrNoWorkspaceRoot    = errors.New("workspace root is empty")
	ErrInvalidWorkspace   = errors.New("workspace root has no usable name")
	ErrRelativeMountPoint = errors.New("container path must be absolute")
)

// ContainerPaths are the workspace paths inside the container.
type ContainerPaths struct {
	WorkspaceName    string `json:"workspace_name"`
	WorkspaceParent  string `json:"workspace_parent"`
	WorkspaceRoot    string `json:"workspace_root"`
	RequirementsFile string `json:"requirements_file,omitempty"`
}

// WorkspaceName returns the base name of a host workspace root.
//
// Example:
//
//	WorkspaceName("/home/me/projects/api-ws") // returns "api-ws"
func WorkspaceName(workspaceRoot string) (string, error) {
	if workspaceRoot == "" {
		return "", ErrNoWorkspaceRoot
	}
	name := filepath.Base(filepath.Clean(workspaceRoot))
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidWorkspace, workspaceRoot)
	}
	return name, nil
}

// Derive computes the container paths for a workspace mounted at
// containerPath. With addWorkspaceName the workspace root is nested one
// level below the mount point, under the workspace name.
// requirementsFile is relative to the workspace root and may be empty.
func Derive(workspaceRoot, containerPath, requirementsFile string, addWorkspaceName bool) (ContainerPaths, error) {
	name, err := WorkspaceName(workspaceRoot)
	if err != nil {
		return ContainerPaths{}, err
	}
	if !path.IsAbs(containerPath) {
		return ContainerPaths{}, fmt.Errorf("%w: %q", ErrRelativeMountPoint, containerPath)
	}

	parent := path.Clean(containerPath)
	root := parent
	if addWorkspaceName {
		root = path.Join(parent, name)
	}

	paths := ContainerPaths{
		WorkspaceName:   name,
		WorkspaceParent: parent,
		WorkspaceRoot:   root,
	}
	if requirementsFile != "" {
		paths.RequirementsFile = path.Join(root, filepath.ToSlash(requirementsFile))
	}
	return paths, nil
}
