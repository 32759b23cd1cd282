// Package storage defines the collection file-system gateway.
package storage

// Entry is one item discovered by a tree scan. Paths are relative to the
// collection root and slash-separated. Entries carry no ordering guarantee;
// a parent directory may arrive after its children.
type Entry struct {
	Path  string
	IsDir bool
}

// Provider is the interface for collection file operations. All paths are
// relative to the collection root.
type Provider interface {
	// CreateFile writes content to a path that must not exist yet.
	CreateFile(path string, content []byte) error
	// CreateDir creates a directory (and missing parents) at path.
	CreateDir(path string) error
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file or directory (recursively) at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether anything lives at path.
	Exists(path string) bool
	// ListTree walks the whole root and returns every file and directory.
	ListTree() ([]Entry, error)
}
