package model

import (
	"time"

	"gorm.io/datatypes"
)

// Machine statuses seen in the field. The column is free-form.
const (
	StatusNormal      = "Normal"
	StatusBroken      = "Rusak"
	StatusMaintenance = "Maintenance"
	StatusStandby     = "Standby"
	StatusOnLoan      = "Dipinjam"
)

// Item is a tracked facility asset (machine or tool).
type Item struct {
	ID             string                      `gorm:"primaryKey;size:64" json:"id"`
	Name           string                      `gorm:"size:256;not null" json:"name"`
	Category       string                      `gorm:"size:128;index" json:"category"`
	Quantity       int                         `gorm:"not null;default:0" json:"quantity"`
	Location       string                      `gorm:"size:256" json:"location"`
	Latitude       *float64                    `json:"lat"`
	Longitude      *float64                    `json:"lon"`
	Floor          int                         `gorm:"not null;default:1" json:"floor"`
	MachineStatus  string                      `gorm:"size:64;index" json:"machineStatus"`
	Priority       string                      `gorm:"size:64" json:"priority"`
	Condition      string                      `gorm:"size:128" json:"condition"`
	OperatingHours string                      `gorm:"size:128" json:"operatingHours"`
	Photos         datatypes.JSONSlice[string] `json:"photos"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`

	// Associations
	MaintenanceRecords []MaintenanceRecord `gorm:"foreignKey:ItemID" json:"maintenanceRecords"`
	LoanRecords        []LoanRecord        `gorm:"foreignKey:ItemID" json:"loanRecords"`
}
