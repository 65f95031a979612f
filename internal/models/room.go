package models

import "time"

// Room is the durable record behind a room slug. Membership is never stored;
// it lives only in the relay's connection registry.
type Room struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug      string    `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	AdminID   string    `json:"admin_id" gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Admin *User  `json:"-" gorm:"foreignKey:AdminID;references:ID"`
	Chats []Chat `json:"-" gorm:"foreignKey:RoomID"`
}
