package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"asset-tracker-backend/internal/model"
)

const insertBatchSize = 100

// ReplaceMaintenance swaps the item's maintenance history for records.
//
// Every persisted row for the item is deleted and records are inserted with
// ItemID forced to itemID and ID cleared, so the database assigns fresh ids.
// An empty slice leaves the item with no maintenance rows. Delete and insert
// share one transaction: a failed insert keeps the previous history.
func (s *gormStore) ReplaceMaintenance(ctx context.Context, itemID string, records []model.MaintenanceRecord) error {
	for i := range records {
		records[i].ID = 0
		records[i].ItemID = itemID
		if records[i].Photos == nil {
			records[i].Photos = []string{}
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, itemID); err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&model.MaintenanceRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete maintenance records of item %s: %w", itemID, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert maintenance records of item %s: %w", itemID, err)
		}
		return nil
	})
	return persistErr("replace maintenance records", err)
}

// ReplaceLoans swaps the item's loan history for records. It follows the
// same rules as ReplaceMaintenance.
func (s *gormStore) ReplaceLoans(ctx context.Context, itemID string, records []model.LoanRecord) error {
	for i := range records {
		records[i].ID = 0
		records[i].ItemID = itemID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, itemID); err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&model.LoanRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete loan records of item %s: %w", itemID, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert loan records of item %s: %w", itemID, err)
		}
		return nil
	})
	return persistErr("replace loan records", err)
}

// AddMaintenance appends a single maintenance record.
func (s *gormStore) AddMaintenance(ctx context.Context, record *model.MaintenanceRecord) error {
	if record.ItemID == "" {
		return &ValidationError{Field: "itemId", Reason: "must not be empty"}
	}
	record.ID = 0
	if record.Photos == nil {
		record.Photos = []string{}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, record.ItemID); err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	return persistErr("add maintenance record", err)
}

// AddLoan appends a single loan record.
func (s *gormStore) AddLoan(ctx context.Context, record *model.LoanRecord) error {
	if record.ItemID == "" {
		return &ValidationError{Field: "itemId", Reason: "must not be empty"}
	}
	record.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := itemExists(tx, record.ItemID); err != nil {
			return err
		}
		return tx.Create(record).Error
	})
	return persistErr("add loan record", err)
}
