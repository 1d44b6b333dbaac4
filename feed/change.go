package feed

import (
	"time"

	"go.uber.org/zap"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change descreve uma escrita já confirmada no banco.
type Change struct {
	Table          string     `json:"table"`
	Type           ChangeType `json:"type"`
	TenantID       string     `json:"tenant_id"`
	ConversationID string     `json:"conversation_id,omitempty"`
	Record         any        `json:"record"`
	At             time.Time  `json:"at"`
}

// Notifier recebe as mudanças gravadas pelas stores. Implementações nunca
// devem bloquear a escrita nem devolver erro para ela.
type Notifier interface {
	Notify(ch Change)
}

type Nop struct{}

func (Nop) Notify(Change) {}

// Multi repassa a mesma mudança para vários notifiers, em ordem.
type Multi []Notifier

func (m Multi) Notify(ch Change) {
	for _, n := range m {
		if n == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("feed: notifier panic", zap.Any("recover", r), zap.String("table", ch.Table))
				}
			}()
			n.Notify(ch)
		}()
	}
}
