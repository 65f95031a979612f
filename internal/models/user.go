package models

import "time"

// User is an identity known to the history store. Guests that connect before
// signing up get a placeholder row so their chats have an owner.
type User struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password  string    `json:"-" gorm:"type:text;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Photo     string    `json:"photo,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Rooms []Room `json:"-" gorm:"foreignKey:AdminID"`
	Chats []Chat `json:"-" gorm:"foreignKey:UserID"`
}

// PlaceholderUser is the minimal record provisioned for an identity that has
// joined a room without an account.
func PlaceholderUser(id string) *User {
	return &User{
		ID:       id,
		Email:    "temp_" + id + "@example.com",
		Password: "temporary_password",
		Name:     "Temporary User",
	}
}
