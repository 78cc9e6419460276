package model

import "time"

// NotificationType is the severity shown to the recipient.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is one of the known types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationSuccess, NotificationError:
		return true
	}
	return false
}

// Notification is one persisted message for one recipient. A nil SenderID
// marks a system-originated event. RelatedID/RelatedType loosely point at the
// item or record that triggered it.
type Notification struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	RecipientID string           `gorm:"size:64;not null;index:idx_notifications_recipient_created,priority:1" json:"recipientId"`
	SenderID    *string          `gorm:"size:64" json:"senderId"`
	Type        NotificationType `gorm:"size:16;not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	IsRead      bool             `gorm:"not null;default:false" json:"isRead"`
	RelatedID   string           `gorm:"size:64" json:"relatedId"`
	RelatedType string           `gorm:"size:32" json:"relatedType"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_recipient_created,priority:2" json:"createdAt"`
}

// NotificationView is a notification with the sender's name joined in.
type NotificationView struct {
	Notification
	SenderName *string `json:"senderName"`
}
