// Package item orchestrates item mutations and announces each committed
// change to the notification fan-out and the event bus.
package item

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"asset-tracker-backend/internal/events"
	"asset-tracker-backend/internal/metrics"
	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/notification"
	"asset-tracker-backend/internal/photo"
	"asset-tracker-backend/internal/store"
)

const emitTimeout = 30 * time.Second

// Notifier fans a message out to users.
type Notifier interface {
	Notify(ctx context.Context, to notification.Recipients, senderID *string, typ model.NotificationType, message, relatedID, relatedType string) ([]model.Notification, error)
}

// UpdateRequest is a partial item update. Absent parts are left alone.
type UpdateRequest struct {
	// Fields holds scalar form fields keyed by their JSON name.
	Fields map[string]string
	// ExistingPhotos holds the raw existing-photos form values; nil means
	// the field was not sent.
	ExistingPhotos []string
	// NewPhotos holds paths of files stored for this request.
	NewPhotos []string
	// MaintenanceRecords and LoanRecords are full replacements; nil means
	// the field was not sent.
	MaintenanceRecords []byte
	LoanRecords        []byte
}

// CreateRequest describes a new item. ID is generated when empty.
type CreateRequest struct {
	ID                 string
	Fields             map[string]string
	NewPhotos          []string
	MaintenanceRecords []byte
	LoanRecords        []byte
}

// mutation describes one committed change for fan-out and the bus.
type mutation struct {
	kind        string
	eventType   string
	typ         model.NotificationType
	message     string
	itemID      string
	relatedType string
	payload     map[string]any
}

// Service applies item mutations.
type Service struct {
	store    store.Store
	notifier Notifier
	events   events.Publisher
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewService(s store.Store, notifier Notifier, publisher events.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: s, notifier: notifier, events: publisher, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *Service) List(ctx context.Context, filter store.ItemFilter) ([]model.Item, error) {
	return s.store.ListItems(ctx, filter)
}

// Update applies req to item id and returns the materialized item.
//
// Numeric fields fall back to defaults instead of failing. Malformed record
// payloads skip that collection only. Store failures abort the request and
// nothing is announced.
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, req UpdateRequest) (*model.Item, error) {
	current, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	columns := applyFields(&model.Item{}, req.Fields)

	if req.ExistingPhotos != nil || len(req.NewPhotos) > 0 {
		declared, err := photo.DecodeDeclared(req.ExistingPhotos)
		if err != nil {
			s.log.Warn("Malformed existing photos, using empty set", zap.String("item_id", id), zap.Error(err))
		}
		columns["photos"] = datatypes.JSONSlice[string](photo.Resolve(current.Photos, declared, req.NewPhotos))
	}

	if err := s.reconcilePresent(ctx, id, req.MaintenanceRecords, req.LoanRecords); err != nil {
		return nil, err
	}

	if err := s.store.UpdateItemFields(ctx, id, columns); err != nil {
		return nil, err
	}

	updated, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, mutation{
		kind:        "updated",
		eventType:   events.EventTypeItemUpdated,
		typ:         model.NotificationInfo,
		message:     fmt.Sprintf("Item %q was updated", updated.Name),
		itemID:      id,
		relatedType: "item",
		payload:     map[string]any{"item_id": id, "fields_changed": columnNames(columns)},
	})
	return updated, nil
}

// ReplaceRecords swaps one history collection of item id for raw and returns
// the materialized item. Unlike Update, payload errors are returned.
func (s *Service) ReplaceRecords(ctx context.Context, actor model.Actor, id string, kind RecordKind, raw []byte) (*model.Item, error) {
	if err := s.Reconcile(ctx, id, kind, raw); err != nil {
		return nil, err
	}
	updated, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, mutation{
		kind:        "updated",
		eventType:   events.EventTypeItemUpdated,
		typ:         model.NotificationInfo,
		message:     fmt.Sprintf("Item %q was updated", updated.Name),
		itemID:      id,
		relatedType: "item",
		payload:     map[string]any{"item_id": id, "fields_changed": []string{string(kind)}},
	})
	return updated, nil
}

// Create inserts a new item with its optional initial histories.
func (s *Service) Create(ctx context.Context, actor model.Actor, req CreateRequest) (*model.Item, error) {
	it := &model.Item{ID: strings.TrimSpace(req.ID), Floor: 1}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	applyFields(it, req.Fields)
	if it.Name == "" {
		return nil, &store.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	it.Photos = photo.Resolve(nil, nil, req.NewPhotos)

	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, err
	}
	if err := s.reconcilePresent(ctx, it.ID, req.MaintenanceRecords, req.LoanRecords); err != nil {
		return nil, err
	}

	created, err := s.store.GetItem(ctx, it.ID)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, actor, mutation{
		kind:        "created",
		eventType:   events.EventTypeItemCreated,
		typ:         model.NotificationSuccess,
		message:     fmt.Sprintf("Item %q was added", created.Name),
		itemID:      created.ID,
		relatedType: "item",
		payload:     map[string]any{"item_id": created.ID, "name": created.Name, "category": created.Category},
	})
	return created, nil
}

// Delete removes the item and both of its histories.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	current, err := s.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return err
	}

	s.emit(ctx, actor, mutation{
		kind:        "deleted",
		eventType:   events.EventTypeItemDeleted,
		typ:         model.NotificationWarning,
		message:     fmt.Sprintf("Item %q was deleted", current.Name),
		itemID:      id,
		relatedType: "item",
		payload:     map[string]any{"item_id": id, "name": current.Name},
	})
	return nil
}

// AddMaintenance appends one maintenance record to item itemID.
func (s *Service) AddMaintenance(ctx context.Context, actor model.Actor, itemID string, record model.MaintenanceRecord) (*model.MaintenanceRecord, error) {
	current, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	record.ItemID = itemID
	if err := s.store.AddMaintenance(ctx, &record); err != nil {
		return nil, err
	}

	s.emit(ctx, actor, mutation{
		kind:        "maintenance_added",
		eventType:   events.EventTypeMaintenanceAdded,
		typ:         model.NotificationWarning,
		message:     fmt.Sprintf("Maintenance recorded for %q: %s", current.Name, record.Cause),
		itemID:      itemID,
		relatedType: "maintenance",
		payload:     map[string]any{"item_id": itemID, "record_id": record.ID},
	})
	return &record, nil
}

// AddLoan appends one loan record to item itemID.
func (s *Service) AddLoan(ctx context.Context, actor model.Actor, itemID string, record model.LoanRecord) (*model.LoanRecord, error) {
	current, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	record.ItemID = itemID
	if err := s.store.AddLoan(ctx, &record); err != nil {
		return nil, err
	}

	s.emit(ctx, actor, mutation{
		kind:        "loan_added",
		eventType:   events.EventTypeLoanAdded,
		typ:         model.NotificationInfo,
		message:     fmt.Sprintf("%q was loaned to %s", current.Name, record.BorrowerName),
		itemID:      itemID,
		relatedType: "loan",
		payload:     map[string]any{"item_id": itemID, "record_id": record.ID},
	})
	return &record, nil
}

// Wait blocks until every announcement started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// reconcilePresent replaces each collection whose payload was sent.
// Unparseable payloads are logged and skipped.
func (s *Service) reconcilePresent(ctx context.Context, itemID string, maintenance, loans []byte) error {
	for _, part := range []struct {
		kind RecordKind
		raw  []byte
	}{
		{Maintenance, maintenance},
		{Loans, loans},
	} {
		if part.raw == nil {
			continue
		}
		err := s.Reconcile(ctx, itemID, part.kind, part.raw)
		if err == nil {
			continue
		}
		if recoverable(err) {
			metrics.ReconcileFailures.WithLabelValues(string(part.kind), "invalid_payload").Inc()
			s.log.Warn("Skipping nested records",
				zap.String("item_id", itemID),
				zap.String("kind", string(part.kind)),
				zap.Error(err),
			)
			continue
		}
		metrics.ReconcileFailures.WithLabelValues(string(part.kind), "store").Inc()
		return err
	}
	return nil
}

// emit announces m on a goroutine detached from the request. Failures are
// logged and never reach the caller.
func (s *Service) emit(ctx context.Context, actor model.Actor, m mutation) {
	metrics.ItemMutations.WithLabelValues(m.kind).Inc()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()

		log := s.log.With(zap.String("item_id", m.itemID), zap.String("mutation", m.kind))

		if s.notifier != nil {
			if _, err := s.notifier.Notify(ctx, notification.All(), actor.SenderID(), m.typ, m.message, m.itemID, m.relatedType); err != nil {
				log.Error("Notification fan-out failed", zap.Error(err))
			}
		}

		actorID, _ := actor.UserID()
		if err := s.events.Publish(ctx, events.NewEvent(m.eventType, actorID, m.payload)); err != nil {
			metrics.EventPublishFailures.Inc()
			log.Warn("Item event not published", zap.Error(err))
		}
	}()
}

func columnNames(columns map[string]any) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
