package model

import (
	"time"

	"gorm.io/datatypes"
)

// MaintenanceRecord is one entry of an item's repair history.
// Dates are stored as submitted by the edit form (YYYY-MM-DD).
type MaintenanceRecord struct {
	ID              int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID          string                      `gorm:"size:64;index;not null" json:"itemId"`
	FailureDate     string                      `gorm:"size:32" json:"failureDate"`
	Cause           string                      `gorm:"type:text" json:"cause"`
	Action          string                      `gorm:"type:text" json:"action"`
	ResultCondition string                      `gorm:"size:128" json:"resultCondition"`
	Technician      string                      `gorm:"size:128" json:"technician"`
	CompletionDate  string                      `gorm:"size:32" json:"completionDate"`
	Photos          datatypes.JSONSlice[string] `json:"photos"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

// LoanRecord is one entry of an item's borrowing history. A nil ReturnDate
// means the item is still on loan.
type LoanRecord struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID          string    `gorm:"size:64;index;not null" json:"itemId"`
	BorrowerName    string    `gorm:"size:128" json:"borrowerName"`
	Department      string    `gorm:"size:128" json:"department"`
	BorrowDate      string    `gorm:"size:32" json:"borrowDate"`
	ReturnDate      *string   `gorm:"size:32" json:"returnDate"`
	ReturnCondition string    `gorm:"size:128" json:"returnCondition"`
	Notes           string    `gorm:"type:text" json:"notes"`
	ReturnedBy      string    `gorm:"size:128" json:"returnedBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// OnLoan reports whether the record has no return date yet.
func (l LoanRecord) OnLoan() bool {
	return l.ReturnDate == nil || *l.ReturnDate == ""
}
