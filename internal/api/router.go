package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Collection lifecycle.
	r.Post("/collection", h.OpenCollection)
	r.Get("/collection", h.CollectionInfo)
	r.Delete("/collection", h.CloseCollection)

	// Tree.
	r.Get("/tree", h.Tree)
	r.Get("/tree/render", h.RenderTree)

	// Documents and directories.
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.OpenDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Post("/save/*", h.SaveDocument)
	r.Post("/directories", h.CreateDirectory)
	r.Post("/images", h.ImportImage)

	// Reorganization.
	r.Post("/move", h.Move)
	r.Post("/rename", h.Rename)
	r.Delete("/nodes/*", h.DeleteNode)

	// Navigation.
	r.Get("/navigation", h.Navigation)
	r.Post("/navigation/back", h.Back)
	r.Post("/navigation/forward", h.Forward)

	// Search, outline, preview.
	r.Get("/search", h.Search)
	r.Get("/outline/*", h.Outline)
	r.Get("/preview/*", h.Preview)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
