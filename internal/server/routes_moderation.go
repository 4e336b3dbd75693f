package server

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/Bhogyaan/NRBLOG/internal/store"
)

var postIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// Moderation endpoints exist only for their effect on fanout: the admin UI
// performs the store mutation through the main API, then pokes the gateway
// so subscribers hear about it.
func (a *App) registerModerationRoutes(mux *http.ServeMux, admitted func(http.HandlerFunc) http.Handler) {
	mux.Handle("POST /admin/posts/{id}/ban", admitted(a.handlePostBanned))
	mux.Handle("POST /admin/posts/{id}/unban", admitted(a.handlePostUnbanned))
	mux.Handle("DELETE /posts/{id}", admitted(a.handlePostDeleted))
}

func (a *App) postID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !postIDPattern.MatchString(id) {
		http.Error(w, "Malformed post id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (a *App) handlePostBanned(w http.ResponseWriter, r *http.Request) {
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	if err := a.engine.PostBanned(r.Context(), id); err != nil {
		a.moderationError(w, "ban", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePostUnbanned(w http.ResponseWriter, r *http.Request) {
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	if err := a.engine.PostUnbanned(r.Context(), id); err != nil {
		a.moderationError(w, "unban", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handlePostDeleted(w http.ResponseWriter, r *http.Request) {
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	a.engine.PostDeleted(id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) moderationError(w http.ResponseWriter, action, postID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	a.logger.Error("Moderation broadcast failed",
		slog.String("action", action),
		slog.String("postID", postID),
		slog.Any("error", err),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
