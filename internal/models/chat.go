package models

import "time"

/*
LEARNING: OPAQUE PAYLOADS

A chat row stores the message string exactly as the relay received it. For
drawing rooms that string is a JSON {"shape": ...} envelope, but the store
never parses it. Replaying the rows of a room in id order reproduces its
canvas.
*/

// Chat is one relayed message.
type Chat struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RoomID    uint      `json:"room_id" gorm:"not null;index:idx_chat_room_id"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`

	Room *Room `json:"-" gorm:"foreignKey:RoomID;references:ID"`
	User *User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}
