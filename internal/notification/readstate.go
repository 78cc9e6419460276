package notification

import (
	"context"

	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/store"
)

// ReadState serves a user's notification inbox.
type ReadState struct {
	store store.Store
}

func NewReadState(s store.Store) *ReadState {
	return &ReadState{store: s}
}

// List returns the newest notifications of userID with sender names.
func (r *ReadState) List(ctx context.Context, userID string) ([]model.NotificationView, error) {
	return r.store.ListNotifications(ctx, userID, store.NotificationLimit)
}

func (r *ReadState) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return r.store.CountUnread(ctx, userID)
}

// MarkRead flips one notification owned by userID. Ids that belong to another
// user, are unknown, or are already read change nothing and return 0.
func (r *ReadState) MarkRead(ctx context.Context, id int64, userID string) (int64, error) {
	return r.store.MarkRead(ctx, id, userID)
}

// MarkAllRead flips every unread notification of userID.
func (r *ReadState) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return r.store.MarkAllRead(ctx, userID)
}
