package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"asset-tracker-backend/internal/metrics"
	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/store"
)

// EventReceiveNotification is the live event carrying a persisted row.
const EventReceiveNotification = "receive_notification"

// LivePublisher delivers an event to every open connection of a user and
// reports how many accepted it.
type LivePublisher interface {
	Publish(userID, event string, payload any) int
}

// Dispatcher hands a persisted notification to an out-of-band channel such as
// web push.
type Dispatcher interface {
	Dispatch(ctx context.Context, n model.Notification) error
}

// Recipients selects who a notification goes to.
type Recipients struct {
	all bool
	ids []string
}

// All targets every known user except the sender. The user table is read on
// each Notify call.
func All() Recipients { return Recipients{all: true} }

// To targets the given users.
func To(ids ...string) Recipients { return Recipients{ids: ids} }

// Broadcast reports whether r was built with All.
func (r Recipients) Broadcast() bool { return r.all }

// Service persists notifications and pushes them to connected recipients.
type Service struct {
	store store.Store
	live  LivePublisher
	push  Dispatcher
	log   *zap.Logger
}

// NewService builds the fan-out service. push may be nil when web push is not
// configured.
func NewService(s store.Store, live LivePublisher, push Dispatcher, log *zap.Logger) *Service {
	return &Service{store: s, live: live, push: push, log: log}
}

// Notify writes one row per resolved recipient in a single transaction and
// then delivers each row live before handing the rows to web push. When the
// write fails nothing is delivered.
// Repeated calls always create new rows.
func (s *Service) Notify(ctx context.Context, to Recipients, senderID *string, typ model.NotificationType, message, relatedID, relatedType string) ([]model.Notification, error) {
	if !typ.Valid() {
		return nil, &store.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown notification type %q", typ)}
	}

	recipients, err := s.resolve(ctx, to, senderID)
	if err != nil {
		return nil, fmt.Errorf("resolving recipients: %w", err)
	}
	if len(recipients) == 0 {
		return []model.Notification{}, nil
	}

	rows := make([]model.Notification, len(recipients))
	for i, id := range recipients {
		rows[i] = model.Notification{
			RecipientID: id,
			SenderID:    senderID,
			Type:        typ,
			Message:     message,
			RelatedID:   relatedID,
			RelatedType: relatedType,
		}
	}

	if err := s.store.CreateNotifications(ctx, rows); err != nil {
		metrics.FanoutFailures.Inc()
		return nil, err
	}
	metrics.NotificationsPersisted.Add(float64(len(rows)))

	for _, row := range rows {
		delivered := s.live.Publish(row.RecipientID, EventReceiveNotification, row)
		if delivered == 0 {
			s.log.Debug("Recipient offline", zap.String("recipient_id", row.RecipientID), zap.Int64("notification_id", row.ID))
		}
	}

	// Web push runs after every live delivery so a slow queue never holds one back.
	if s.push != nil {
		for _, row := range rows {
			if err := s.push.Dispatch(ctx, row); err != nil {
				s.log.Warn("Web push dispatch skipped", zap.Int64("notification_id", row.ID), zap.Error(err))
			}
		}
	}
	return rows, nil
}

func (s *Service) resolve(ctx context.Context, to Recipients, senderID *string) ([]string, error) {
	if !to.all {
		out := make([]string, 0, len(to.ids))
		for _, id := range to.ids {
			if id != "" {
				out = append(out, id)
			}
		}
		return out, nil
	}

	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	if senderID == nil {
		return ids, nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != *senderID {
			out = append(out, id)
		}
	}
	return out, nil
}
