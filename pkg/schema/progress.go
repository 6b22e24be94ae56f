package schema

// ProgressFunc is a human-progress callback the CLI layer supplies so the
// library layer can report stage changes without owning stdout/stderr
// itself.
type ProgressFunc func(stage, message string)
