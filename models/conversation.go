package models

import "time"

/************************************************
/**** MARK: CONVERSATION STATUS ****/
/************************************************/
const CONVERSATION_STATUS_OPEN = "open"
const CONVERSATION_STATUS_CLOSED = "closed"

// Conversation é a thread com um telefone, única por (tenant_id, phone).
type Conversation struct {
	ID         string    `gorm:"primary_key;type:varchar(36)" json:"id"`
	TenantID   string    `gorm:"column:tenant_id;type:varchar(36);not null;unique_index:idx_conversations_tenant_phone" json:"tenant_id"`
	Phone      string    `gorm:"column:phone;not null;unique_index:idx_conversations_tenant_phone" json:"phone"`
	InstanceID *string   `gorm:"column:instance_id;type:varchar(36);index" json:"instance_id"`
	Status     string    `gorm:"column:status;not null;default:'open'" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func IsValidConversationStatus(status string) bool {
	return status == CONVERSATION_STATUS_OPEN || status == CONVERSATION_STATUS_CLOSED
}
