package api

import "github.com/starford/raido/internal/pathtree"

// OpenCollectionRequest is the request body for opening a collection.
type OpenCollectionRequest struct {
	Path string `json:"path"`
}

// CollectionInfo summarizes the open collection.
type CollectionInfo struct {
	Root       string   `json:"root"`
	Nodes      int      `json:"nodes"`
	Selection  string   `json:"selection"`
	Dirty      []string `json:"dirty"`
	CanBack    bool     `json:"can_back"`
	CanForward bool     `json:"can_forward"`
}

// TreeNode is the JSON shape of one index node.
type TreeNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Kind     string     `json:"kind"`
	Dirty    bool       `json:"dirty,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// toTreeNode converts an index node, marking dirty documents via isDirty.
func toTreeNode(n *pathtree.Node, isDirty func(string) bool) TreeNode {
	out := TreeNode{
		Name: n.Name,
		Path: n.Path,
		Kind: n.Kind.String(),
	}
	if !n.IsDir() && isDirty != nil {
		out.Dirty = isDirty(n.Path)
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, toTreeNode(c, isDirty))
	}
	return out
}

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// CreateDirectoryRequest is the request body for creating a directory.
type CreateDirectoryRequest struct {
	Path string `json:"path"`
}

// MoveRequest is the request body for moving a node into a directory.
type MoveRequest struct {
	From  string `json:"from"`
	ToDir string `json:"to_dir"`
}

// RenameRequest is the request body for renaming a node in place.
type RenameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

// MoveResponse reports the outcome of a move or rename. Warning is set when
// the physical move succeeded but cached editor state had to be evicted.
type MoveResponse struct {
	Path    string `json:"path"`
	Warning string `json:"warning,omitempty"`
}

// DocumentResponse is the state of an open document.
type DocumentResponse struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Dirty   bool   `json:"dirty"`
}

// UpdateDocumentRequest is the request body for an in-memory edit.
type UpdateDocumentRequest struct {
	Content string `json:"content"`
}

// NavigationResponse reports history cursor state.
type NavigationResponse struct {
	Current    string `json:"current"`
	CanBack    bool   `json:"can_back"`
	CanForward bool   `json:"can_forward"`
}
