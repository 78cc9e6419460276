package model

import "time"

// PushSubscription holds the information for a browser push subscription
// registered by a user.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	UserID    string    `gorm:"size:64;index;not null" json:"userId"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
