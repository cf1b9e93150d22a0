package hdf5

import (
	"fmt"
	"strings"
)

// SplitPath splits a path into its components.
// Leading and trailing slashes are ignored.
//
// Examples:
//   - "/" -> []string{}
//   - "/foo" -> []string{"foo"}
//   - "foo/bar/" -> []string{"foo", "bar"}
func SplitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}

// CleanPath normalizes a path, ensuring it starts with "/" and has no trailing slash.
func CleanPath(path string) string {
	parts := SplitPath(path)
	return "/" + strings.Join(parts, "/")
}

// JoinPath joins a group path and a member name.
func JoinPath(group, name string) string {
	if group == "/" || group == "" {
		return "/" + name
	}
	return group + "/" + name
}

// validName checks a single link name.
func validName(name string) error {
	switch {
	case name == "", name == ".":
		return fmt.Errorf("%w: empty name", ErrInvalidPath)
	case strings.Contains(name, "/"):
		return fmt.Errorf("%w: name %q contains '/'", ErrInvalidPath, name)
	case len(name) > 0xFFFF:
		return fmt.Errorf("%w: name of %d bytes", ErrInvalidPath, len(name))
	}
	return nil
}

// checkPath rejects paths with empty components such as "a//b".
func checkPath(path string) error {
	for _, p := range SplitPath(path) {
		if err := validName(p); err != nil {
			return err
		}
	}
	return nil
}
