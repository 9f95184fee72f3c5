package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
)

// userHeader carries the caller's user id, set by the authenticating proxy.
const userHeader = "X-User-ID"

// Inbox is the per-user notification store.
type Inbox interface {
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

// requireUser writes 401 and returns false when the request has no user.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := r.Header.Get(userHeader)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, userHeader+" header is required")
		return "", false
	}
	return uid, true
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.inbox.List(r.Context(), uid, limit)
	if err != nil {
		s.inboxError(w, err, uid)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := s.inbox.UnreadCount(r.Context(), uid)
	if err != nil {
		s.inboxError(w, err, uid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.inbox.MarkRead(r.Context(), uid, r.PathValue("id")); err != nil {
		s.inboxError(w, err, uid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := s.inbox.MarkAllRead(r.Context(), uid)
	if err != nil {
		s.inboxError(w, err, uid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "All notifications marked as read", "updated": n})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.inbox.Delete(r.Context(), uid, r.PathValue("id")); err != nil {
		s.inboxError(w, err, uid)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func (s *Server) inboxError(w http.ResponseWriter, err error, uid string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	s.logger.Error("inbox request failed", "error", err, "user_id", uid)
	writeError(w, http.StatusInternalServerError, "inbox unavailable")
}
