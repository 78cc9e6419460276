package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-tracker-backend/internal/model"
)

// CreateNotifications inserts rows in one transaction; either every recipient
// gets a row or none does. Generated ids are written back into rows.
func (s *gormStore) CreateNotifications(ctx context.Context, rows []model.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].RecipientID == "" {
			return &ValidationError{Field: "recipientId", Reason: fmt.Sprintf("row %d has no recipient", i)}
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	return persistErr("create notifications", err)
}

// ListNotifications returns the newest notifications for a recipient with the
// sender's name joined in.
func (s *gormStore) ListNotifications(ctx context.Context, recipientID string, limit int) ([]model.NotificationView, error) {
	if limit <= 0 || limit > NotificationLimit {
		limit = NotificationLimit
	}
	var rows []model.NotificationView
	err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Select("notifications.*, users.name AS sender_name").
		Joins("LEFT JOIN users ON users.id = notifications.sender_id").
		Where("notifications.recipient_id = ?", recipientID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Table: "notifications", Name: "created_at"}, Desc: true},
			{Column: clause.Column{Table: "notifications", Name: "id"}, Desc: true},
		}}).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.NotificationView{}
	}
	return rows, nil
}

func (s *gormStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one unread notification owned by recipientID. Rows of other
// recipients and unknown ids are left alone and report zero changes.
func (s *gormStore) MarkRead(ctx context.Context, id int64, recipientID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, persistErr("mark notification read", result.Error)
	}
	return result.RowsAffected, nil
}

// MarkAllRead flips every unread notification of recipientID in one statement.
func (s *gormStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, persistErr("mark all notifications read", result.Error)
	}
	return result.RowsAffected, nil
}
