package repository

import "gorm.io/gorm"

// HistoryRepositoryImpl is the full history/identity store: users, rooms and
// chats over one database handle.
type HistoryRepositoryImpl struct {
	*UserRepositoryImpl
	*RoomRepositoryImpl
	*ChatRepositoryImpl
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepositoryImpl {
	return &HistoryRepositoryImpl{
		UserRepositoryImpl: NewUserRepository(db),
		RoomRepositoryImpl: NewRoomRepository(db),
		ChatRepositoryImpl: NewChatRepository(db),
	}
}
