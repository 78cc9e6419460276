package store

import (
	"context"

	"gorm.io/gorm"

	"asset-tracker-backend/internal/model"
)

// NotificationLimit caps how many notifications are listed per request.
const NotificationLimit = 50

// ItemFilter narrows ListItems. Empty fields are ignored.
type ItemFilter struct {
	Category      string
	MachineStatus string
	Query         string
}

// Store defines the interface for all database operations.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)
	GetItem(ctx context.Context, id string) (*model.Item, error)
	CreateItem(ctx context.Context, item *model.Item) error
	UpdateItemFields(ctx context.Context, id string, fields map[string]any) error
	DeleteItem(ctx context.Context, id string) error

	ReplaceMaintenance(ctx context.Context, itemID string, records []model.MaintenanceRecord) error
	ReplaceLoans(ctx context.Context, itemID string, records []model.LoanRecord) error
	AddMaintenance(ctx context.Context, record *model.MaintenanceRecord) error
	AddLoan(ctx context.Context, record *model.LoanRecord) error

	CreateNotifications(ctx context.Context, rows []model.Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]model.NotificationView, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id int64, recipientID string) (int64, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Ping checks the underlying connection.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
