package hub

import "fmt"

// ResourceURI builds "prefix/name" or, when an id is given, "prefix/name/id".
// Only the first id is used; an empty id is treated as absent.
func ResourceURI(prefix, name string, id ...string) (string, error) {
	if prefix == "" || name == "" {
		return "", fmt.Errorf("%w: prefix and resource name cannot be empty", ErrInvalidArgument)
	}

	if len(id) == 0 || id[0] == "" {
		return prefix + "/" + name, nil
	}

	return prefix + "/" + name + "/" + id[0], nil
}
