package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"asset-tracker-backend/internal/model"
)

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func withRecords(db *gorm.DB) *gorm.DB {
	return db.
		Preload("MaintenanceRecords", orderByID).
		Preload("LoanRecords", orderByID)
}

// normalize replaces nil collections so a materialized item always carries
// both histories and a photo list.
func normalize(item *model.Item) {
	if item.Photos == nil {
		item.Photos = []string{}
	}
	if item.MaintenanceRecords == nil {
		item.MaintenanceRecords = []model.MaintenanceRecord{}
	}
	if item.LoanRecords == nil {
		item.LoanRecords = []model.LoanRecord{}
	}
	for i := range item.MaintenanceRecords {
		if item.MaintenanceRecords[i].Photos == nil {
			item.MaintenanceRecords[i].Photos = []string{}
		}
	}
}

// ListItems returns materialized items ordered by name.
func (s *gormStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	query := withRecords(s.db.WithContext(ctx).Model(&model.Item{}))
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MachineStatus != "" {
		query = query.Where("machine_status = ?", filter.MachineStatus)
	}
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("name LIKE ? OR location LIKE ?", like, like)
	}

	var items []model.Item
	if err := query.Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		normalize(&items[i])
	}
	return items, nil
}

// GetItem reads an item together with both record collections.
func (s *gormStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := withRecords(s.db.WithContext(ctx)).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	normalize(&item)
	return &item, nil
}

// CreateItem inserts the item row only; nested records go through the
// Replace* methods.
func (s *gormStore) CreateItem(ctx context.Context, item *model.Item) error {
	if item.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if item.Photos == nil {
		item.Photos = []string{}
	}
	err := s.db.WithContext(ctx).Omit("MaintenanceRecords", "LoanRecords").Create(item).Error
	return persistErr("create item", err)
}

// UpdateItemFields applies a column map to one item.
func (s *gormStore) UpdateItemFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return persistErr("update item", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteItem removes the item and both of its histories in one transaction.
func (s *gormStore) DeleteItem(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&model.MaintenanceRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete maintenance records of item %s: %w", id, err)
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.LoanRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete loan records of item %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&model.Item{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete item %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return persistErr("delete item", err)
}

// itemExists must be called with the transaction handle when used inside one.
func itemExists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&model.Item{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up item %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
