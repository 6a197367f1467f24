// Package merge provides the layered "explicit value overrides computed
// default" merge used for container env, volumes and ports.
package merge

// Layered merges maps in increasing precedence: a key in a later layer
// replaces the same key from any earlier layer. Nil layers are skipped.
// The result is a new map; no layer is modified. It is never nil.
//
// Example:
//
//	Layered(map[string]string{"K": "a"}, nil, map[string]string{"K": "c"})
//	// Returns: map[string]string{"K": "c"}
func Layered[K comparable, V any](layers ...map[K]V) map[K]V {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}

	result := make(map[K]V, size)
	for _, layer := range layers {
		for k, v := range layer {
			result[k] = v
		}
	}
	return result
}

// OrNil returns m, or nil when m is empty. Descriptors omit empty
// collections entirely.
func OrNil[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return m
}
