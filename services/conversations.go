package services

import (
	"errors"
	"fmt"
	"time"

	"zapdesk/db"
	"zapdesk/feed"
	"zapdesk/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// ConversationStore mapeia (tenant, telefone) para a conversa e guarda o log de mensagens.
type ConversationStore interface {
	FindByPhone(tenantID, phone string) (*models.Conversation, error)
	FindInTenant(tenantID, id string) (*models.Conversation, error)
	// Create devolve erro que satisfaz errors.Is(err, ErrDuplicate) quando outro
	// processo criou a conversa para o mesmo (tenant, telefone) antes.
	Create(tenantID, phone, instanceID string) (*models.Conversation, error)
	Reopen(id string) error
	SetStatus(tenantID, id, status string) (*models.Conversation, error)
	AppendMessage(conversationID string, fromMe bool, body string) (*models.Message, error)
}

type ConversationRepository struct {
	db       *gorm.DB
	notifier feed.Notifier
}

func NewConversationRepository(database *gorm.DB, notifier feed.Notifier) *ConversationRepository {
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &ConversationRepository{db: database, notifier: notifier}
}

func (r *ConversationRepository) notifyConversation(t feed.ChangeType, conv models.Conversation) {
	r.notifier.Notify(feed.Change{
		Table:          "conversations",
		Type:           t,
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		Record:         conv,
		At:             time.Now(),
	})
}

func (r *ConversationRepository) first(query *gorm.DB, key string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := query.First(&conv).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, &NotFoundError{Entity: "conversa", Key: key}
		}
		return nil, &StoreError{Op: "find conversation", Err: err}
	}
	return &conv, nil
}

func (r *ConversationRepository) FindByPhone(tenantID, phone string) (*models.Conversation, error) {
	return r.first(r.db.Where("tenant_id = ? AND phone = ?", tenantID, phone), phone)
}

func (r *ConversationRepository) FindInTenant(tenantID, id string) (*models.Conversation, error) {
	return r.first(r.db.Where("id = ? AND tenant_id = ?", id, tenantID), id)
}

func (r *ConversationRepository) Create(tenantID, phone, instanceID string) (*models.Conversation, error) {
	conv := models.Conversation{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Phone:    phone,
		Status:   models.CONVERSATION_STATUS_OPEN,
	}
	if instanceID != "" {
		conv.InstanceID = &instanceID
	}
	if err := r.db.Create(&conv).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &StoreError{Op: "create conversation", Err: fmt.Errorf("%w: %v", ErrDuplicate, err)}
		}
		return nil, &StoreError{Op: "create conversation", Err: err}
	}
	r.notifyConversation(feed.Insert, conv)
	return &conv, nil
}

func (r *ConversationRepository) updateStatus(conv *models.Conversation, status string) error {
	now := time.Now()
	res := r.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		})
	if res.Error != nil {
		return &StoreError{Op: "update conversation status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Entity: "conversa", Key: conv.ID}
	}
	conv.Status = status
	conv.UpdatedAt = now
	r.notifyConversation(feed.Update, *conv)
	return nil
}

// Reopen reabre a conversa e atualiza updated_at.
func (r *ConversationRepository) Reopen(id string) error {
	conv, err := r.first(r.db.Where("id = ?", id), id)
	if err != nil {
		return err
	}
	return r.updateStatus(conv, models.CONVERSATION_STATUS_OPEN)
}

// SetStatus é a ação do operador (abrir/fechar), sempre restrita ao tenant.
func (r *ConversationRepository) SetStatus(tenantID, id, status string) (*models.Conversation, error) {
	if !models.IsValidConversationStatus(status) {
		return nil, validation("status inválido: %s", status)
	}
	conv, err := r.FindInTenant(tenantID, id)
	if err != nil {
		return nil, err
	}
	if conv.Status == status {
		return conv, nil
	}
	if err := r.updateStatus(conv, status); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *ConversationRepository) AppendMessage(conversationID string, fromMe bool, body string) (*models.Message, error) {
	conv, err := r.first(r.db.Where("id = ?", conversationID), conversationID)
	if err != nil {
		return nil, err
	}
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		FromMe:         fromMe,
		Body:           body,
	}
	if err := r.db.Create(&msg).Error; err != nil {
		return nil, &StoreError{Op: "append message", Err: err}
	}
	r.notifier.Notify(feed.Change{
		Table:          "messages",
		Type:           feed.Insert,
		TenantID:       conv.TenantID,
		ConversationID: conversationID,
		Record:         msg,
		At:             msg.CreatedAt,
	})
	return &msg, nil
}

// Messages lista o histórico em ordem cronológica.
func (r *ConversationRepository) Messages(conversationID string) ([]models.Message, error) {
	var out []models.Message
	if err := r.db.Where("conversation_id = ?", conversationID).Order("created_at asc").Find(&out).Error; err != nil {
		return nil, &StoreError{Op: "list messages", Err: err}
	}
	return out, nil
}

// ResolveOrCreate devolve a conversa aberta de (tenant, telefone), criando ou reabrindo.
// Se outra entrega criou a mesma conversa ao mesmo tempo, relê a vencedora.
func ResolveOrCreate(store ConversationStore, tenantID, phone, instanceID string) (*models.Conversation, error) {
	conv, err := store.FindByPhone(tenantID, phone)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		conv, err = store.Create(tenantID, phone, instanceID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		if conv, err = store.FindByPhone(tenantID, phone); err != nil {
			return nil, err
		}
	}

	if conv.Status != models.CONVERSATION_STATUS_OPEN {
		if err := store.Reopen(conv.ID); err != nil {
			return nil, err
		}
		conv.Status = models.CONVERSATION_STATUS_OPEN
	}
	return conv, nil
}
