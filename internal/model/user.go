package model

import "time"

// User is a member of the operations team. Users are the recipients and
// senders of notifications.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Role      string    `gorm:"size:32" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Actor is the optionally known user performing a request.
type Actor struct {
	id string
}

// Anonymous returns an actor without a resolved user id.
func Anonymous() Actor { return Actor{} }

// ActingUser returns an actor for the given user id. An empty id is anonymous.
func ActingUser(id string) Actor { return Actor{id: id} }

// UserID returns the actor's user id and whether one is known.
func (a Actor) UserID() (string, bool) {
	return a.id, a.id != ""
}

// SenderID returns the id as a nullable column value.
func (a Actor) SenderID() *string {
	if a.id == "" {
		return nil
	}
	id := a.id
	return &id
}
