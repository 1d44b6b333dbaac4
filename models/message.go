package models

import "time"

// Message é append-only; nunca é alterada depois de inserida.
type Message struct {
	ID             string    `gorm:"primary_key;type:varchar(36)" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(36);not null;index" json:"conversation_id"`
	FromMe         bool      `gorm:"column:from_me;not null;default:false" json:"from_me"`
	Body           string    `gorm:"column:body;type:text" json:"body"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}
