package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/collection"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/outline"
	"github.com/starford/raido/internal/pathtree"
	"github.com/starford/raido/internal/preview"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers. The engine is single-actor: the mutex
// marshals every request onto one logical sequence, as the host is
// required to do.
type Handler struct {
	mu   sync.Mutex
	ctrl *collection.Controller
	db   *index.DB // optional search index

	// OnCollectionChange, when set, is called with the new root after a
	// collection is opened and with "" after it is closed. The host uses
	// it to retarget the index watcher.
	OnCollectionChange func(root string)
}

// NewHandler creates a new Handler around the controller. db may be nil,
// which disables search.
func NewHandler(ctrl *collection.Controller, db *index.DB) *Handler {
	return &Handler{ctrl: ctrl, db: db}
}

// docPath extracts the document path from the URL wildcard. Supports
// encoded slashes from generated clients (e.g. topics%2Fdoc.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// OpenCollection handles POST /collection.
func (h *Handler) OpenCollection(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req OpenCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	// Opening a different collection discards unsaved state; make the
	// caller say so explicitly when documents are dirty.
	if dirty := h.ctrl.DirtyPaths(); len(dirty) > 0 && r.URL.Query().Get("discard") != "true" {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "unsaved changes would be discarded; retry with ?discard=true",
			"dirty": dirty,
		})
		return
	}

	if err := h.ctrl.Open(req.Path); err != nil {
		writeError(w, err)
		return
	}
	if h.OnCollectionChange != nil {
		h.OnCollectionChange(h.ctrl.Root())
	}
	h.writeInfo(w)
}

// CloseCollection handles DELETE /collection.
func (h *Handler) CloseCollection(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if dirty := h.ctrl.DirtyPaths(); len(dirty) > 0 && r.URL.Query().Get("discard") != "true" {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "unsaved changes would be discarded; retry with ?discard=true",
			"dirty": dirty,
		})
		return
	}
	h.ctrl.Close()
	if h.OnCollectionChange != nil {
		h.OnCollectionChange("")
	}
	w.WriteHeader(http.StatusNoContent)
}

// CollectionInfo handles GET /collection.
func (h *Handler) CollectionInfo(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ctrl.IsOpen() {
		writeJSON(w, http.StatusNotFound, errorBody("no collection open"))
		return
	}
	h.writeInfo(w)
}

func (h *Handler) writeInfo(w http.ResponseWriter) {
	tree, err := h.ctrl.Tree()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CollectionInfo{
		Root:       h.ctrl.Root(),
		Nodes:      tree.Len(),
		Selection:  h.ctrl.Selection(),
		Dirty:      h.ctrl.DirtyPaths(),
		CanBack:    h.ctrl.CanGoBack(),
		CanForward: h.ctrl.CanGoForward(),
	})
}

// Tree handles GET /tree.
func (h *Handler) Tree(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tree, err := h.ctrl.Tree()
	if err != nil {
		writeError(w, err)
		return
	}
	isDirty := func(p string) bool {
		st, docErr := h.ctrl.Document(p)
		return docErr == nil && st.Dirty
	}
	root := toTreeNode(tree.Root(), isDirty)
	root.Name = h.ctrl.Root()
	root.Kind = pathtree.KindDirectory.String()
	writeJSON(w, http.StatusOK, root)
}

// RenderTree handles GET /tree/render.
func (h *Handler) RenderTree(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rendered, err := h.ctrl.RenderTree()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(rendered))
}

// CreateDocument handles POST /documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	p, err := h.ctrl.CreateDocument(req.Dir, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": p})
}

// CreateDirectory handles POST /directories.
func (h *Handler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req CreateDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.CreateDirectory(req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": req.Path})
}

// ImportImage handles POST /images (multipart/form-data, fields "dir" and
// "file").
func (h *Handler) ImportImage(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	p, err := h.ctrl.ImportImage(r.FormValue("dir"), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": p, "size": len(data)})
}

// OpenDocument handles GET /documents/*.
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	st, err := h.ctrl.OpenDocument(p)
	if err != nil {
		writeError(w, err)
		return
	}
	// Images open without editing state; the selection carries the path.
	resp := DocumentResponse{Path: h.ctrl.Selection()}
	if st != nil {
		resp.Path = st.Path
		resp.Content = string(st.Content)
		resp.Dirty = st.Dirty
	}
	if tree, treeErr := h.ctrl.Tree(); treeErr == nil {
		if n, ok := tree.Find(resp.Path); ok {
			resp.Kind = n.Kind.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateDocument handles PUT /documents/*.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.ctrl.UpdateContent(p, []byte(req.Content)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDocument handles POST /save/*.
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.SaveDocument(p); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move handles POST /move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from is required"))
		return
	}
	p, err := h.ctrl.Move(req.From, req.ToDir)
	h.writeMoveOutcome(w, p, err)
}

// Rename handles POST /rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and new_name are required"))
		return
	}
	p, err := h.ctrl.Rename(req.Path, req.NewName)
	h.writeMoveOutcome(w, p, err)
}

// writeMoveOutcome reports a move/rename result, distinguishing the
// partial-success case where the physical move happened but cached state
// was evicted.
func (h *Handler) writeMoveOutcome(w http.ResponseWriter, p string, err error) {
	if err != nil && p == "" {
		writeError(w, err)
		return
	}
	resp := MoveResponse{Path: p}
	status := http.StatusOK
	if err != nil {
		resp.Warning = err.Error()
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

// DeleteNode handles DELETE /nodes/*.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ctrl.Delete(p); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Navigation handles GET /navigation.
func (h *Handler) Navigation(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	writeJSON(w, http.StatusOK, NavigationResponse{
		Current:    h.ctrl.Selection(),
		CanBack:    h.ctrl.CanGoBack(),
		CanForward: h.ctrl.CanGoForward(),
	})
}

// Back handles POST /navigation/back.
func (h *Handler) Back(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok, err := h.ctrl.Back()
	h.writeNavOutcome(w, p, ok, err)
}

// Forward handles POST /navigation/forward.
func (h *Handler) Forward(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok, err := h.ctrl.Forward()
	h.writeNavOutcome(w, p, ok, err)
}

func (h *Handler) writeNavOutcome(w http.ResponseWriter, p string, ok bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("history end"))
		return
	}
	writeJSON(w, http.StatusOK, NavigationResponse{
		Current:    p,
		CanBack:    h.ctrl.CanGoBack(),
		CanForward: h.ctrl.CanGoForward(),
	})
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.db.Search(q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Outline handles GET /outline/*.
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	content, err := h.ctrl.Content(p)
	if err != nil {
		writeError(w, err)
		return
	}
	headings := outline.Extract(string(content))
	if headings == nil {
		headings = []outline.Heading{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"headings": headings})
}

// Preview handles GET /preview/*.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := docPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	content, err := h.ctrl.Content(p)
	if err != nil {
		writeError(w, err)
		return
	}
	html, err := preview.Render(content)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}
