package sim

import "strings"

// Router consumes classification results and writes each event to the
// outputs its flags select. Implementations must accept results with no
// selected stream (HasSelection false) and decide how to dispose of them.
// Route is called from a single goroutine, in input order.
type Router interface {
	Route(ev Event, res ClassificationResult) error
	Close() error
}

// TransformPath derives a stream's output path from the canonical output
// path by inserting "_<suffix>" before the last occurrence of ext. If path
// does not contain ext, "_<suffix><ext>" is appended.
//
//	TransformPath("run_7.i3.bz2", "OversizeStream0", ".i3.bz2") == "run_7_OversizeStream0.i3.bz2"
func TransformPath(path, suffix, ext string) string {
	if ext == "" {
		return path + "_" + suffix
	}
	i := strings.LastIndex(path, ext)
	if i < 0 {
		return path + "_" + suffix + ext
	}
	return path[:i] + "_" + suffix + ext + path[i+len(ext):]
}

// StreamPaths returns the output path of every stream of table, in table order.
func StreamPaths(table *StreamTable, path, ext string) []string {
	paths := make([]string, table.Len())
	for i, def := range table.defs {
		paths[i] = TransformPath(path, def.FileSuffix(), ext)
	}
	return paths
}
