package services

import (
	"context"
	"errors"
	"strings"

	"zapdesk/models"
	"zapdesk/tools"

	"go.uber.org/zap"
)

// Gateway é o contrato do Evolution API consumido pelo proxy e pelo reconciliador.
type Gateway interface {
	CreateInstance(ctx context.Context, name string) (tools.Payload, error)
	Connect(ctx context.Context, name string) (tools.Payload, error)
	ConnectionState(ctx context.Context, name string) (tools.Payload, error)
	Logout(ctx context.Context, name string) (tools.Payload, error)
	Delete(ctx context.Context, name string) (tools.Payload, error)
	SendText(ctx context.Context, name string, to string, text string) (tools.Payload, error)
}

const (
	ActionCreate     = "create"
	ActionConnect    = "connect"
	ActionQRCode     = "qrcode"
	ActionStatus     = "status"
	ActionDisconnect = "disconnect"
	ActionLogout     = "logout"
	ActionDelete     = "delete"
	ActionSend       = "send"
)

// Command é o corpo do POST /api/evolution.
type Command struct {
	Action         string `json:"action"`
	InstanceName   string `json:"instanceName"`
	InstanceID     string `json:"instanceId"`
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Proxy é o plano de controle: valida o comando, chama o gateway e sincroniza o registro local.
type Proxy struct {
	gateway       Gateway
	instances     InstanceStore
	conversations ConversationStore
	locks         *nameLocks
}

func NewProxy(gateway Gateway, instances InstanceStore, conversations ConversationStore) *Proxy {
	return &Proxy{
		gateway:       gateway,
		instances:     instances,
		conversations: conversations,
		locks:         newNameLocks(),
	}
}

// Execute roda um comando para o tenant já resolvido. Cada chamada ao gateway é tentativa única.
func (p *Proxy) Execute(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	action := strings.ToLower(strings.TrimSpace(cmd.Action))
	cmd.InstanceName = strings.TrimSpace(cmd.InstanceName)
	cmd.InstanceID = strings.TrimSpace(cmd.InstanceID)
	cmd.ConversationID = strings.TrimSpace(cmd.ConversationID)

	zap.L().Info("evolution command",
		zap.String("action", action),
		zap.String("instance", cmd.InstanceName),
		zap.String("instance_id", cmd.InstanceID),
		zap.String("tenant_id", tenantID))

	switch action {
	case ActionCreate, ActionConnect, ActionQRCode, ActionStatus,
		ActionDisconnect, ActionLogout, ActionDelete:
	case ActionSend:
		return p.send(ctx, tenantID, cmd)
	case "":
		return nil, validation("action é obrigatório")
	default:
		return nil, validation("Unknown action: %s", cmd.Action)
	}

	if cmd.InstanceName == "" {
		return nil, validation("instanceName é obrigatório")
	}

	release, err := p.locks.acquire(ctx, cmd.InstanceName)
	if err != nil {
		return nil, err
	}
	defer release()

	switch action {
	case ActionCreate:
		return p.create(ctx, tenantID, cmd.InstanceName)
	case ActionConnect, ActionQRCode:
		return p.connect(ctx, tenantID, cmd)
	case ActionStatus:
		return p.status(ctx, tenantID, cmd)
	case ActionDisconnect, ActionLogout:
		return p.logout(ctx, tenantID, cmd)
	default:
		return p.delete(ctx, tenantID, cmd)
	}
}

func (p *Proxy) create(ctx context.Context, tenantID, name string) (tools.Payload, error) {
	if strings.ContainsAny(name, "/?#") {
		return nil, validation("instanceName inválido: %s", name)
	}
	if _, err := p.instances.FindByName(name); err == nil {
		return nil, validation("instanceName já está em uso: %s", name)
	} else if !IsNotFound(err) {
		return nil, err
	}

	result, err := p.gateway.CreateInstance(ctx, name)
	if err != nil {
		return nil, err
	}

	inst, err := p.instances.Create(tenantID, name)
	if err != nil {
		// desfaz no gateway para não deixar instância órfã
		if _, delErr := p.gateway.Delete(ctx, name); delErr != nil {
			zap.L().Error("evolution create: rollback delete failed",
				zap.String("instance", name), zap.Error(delErr))
		}
		if errors.Is(err, ErrDuplicate) {
			return nil, validation("instanceName já está em uso: %s", name)
		}
		return nil, err
	}

	return result.Merge(map[string]any{"instance": inst}), nil
}

func (p *Proxy) connect(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	result, err := p.gateway.Connect(ctx, cmd.InstanceName)
	if err != nil {
		return nil, err
	}
	if result.HasPairingArtifact() || result.State() != "open" {
		return result, nil
	}

	// já conectado: equivale a um webhook perdido
	id := cmd.InstanceID
	if id == "" {
		inst, err := p.instances.FindByNameInTenant(tenantID, cmd.InstanceName)
		if err != nil {
			if IsNotFound(err) {
				zap.L().Warn("evolution connect: instance not registered for tenant",
					zap.String("instance", cmd.InstanceName), zap.String("tenant_id", tenantID))
				return result, nil
			}
			return nil, err
		}
		id = inst.ID
	}
	if err := p.applyStatus(id, tenantID, models.INSTANCE_STATUS_CONNECTED); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Proxy) status(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	result, err := p.gateway.ConnectionState(ctx, cmd.InstanceName)
	if err != nil {
		return nil, err
	}
	status := models.StatusFromGatewayState(result.State())
	if cmd.InstanceID != "" {
		if err := p.applyStatus(cmd.InstanceID, tenantID, status); err != nil {
			return nil, err
		}
	}
	return result.Merge(map[string]any{"status": status}), nil
}

func (p *Proxy) logout(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	result, err := p.gateway.Logout(ctx, cmd.InstanceName)
	if err != nil {
		return nil, err
	}
	if cmd.InstanceID != "" {
		if err := p.applyStatus(cmd.InstanceID, tenantID, models.INSTANCE_STATUS_DISCONNECTED); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *Proxy) delete(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	if _, err := p.gateway.Delete(ctx, cmd.InstanceName); err != nil {
		var gwErr *tools.GatewayError
		if errors.As(err, &gwErr) && gwErr.IsNotFound() {
			zap.L().Info("evolution delete: instance already gone on gateway", zap.String("instance", cmd.InstanceName))
		} else {
			zap.L().Warn("evolution delete: gateway failed, deleting locally anyway",
				zap.String("instance", cmd.InstanceName), zap.Error(err))
		}
	}

	if cmd.InstanceID != "" {
		if err := p.instances.Delete(tenantID, cmd.InstanceID); err != nil && !IsNotFound(err) {
			return nil, err
		}
	}
	return tools.Payload{"success": true}, nil
}

func (p *Proxy) send(ctx context.Context, tenantID string, cmd Command) (tools.Payload, error) {
	if cmd.InstanceName == "" || cmd.Phone == "" || cmd.Message == "" {
		return nil, validation("instanceName, phone e message são obrigatórios")
	}
	phone := tools.DigitsOnly(cmd.Phone)
	if phone == "" {
		return nil, validation("phone inválido: %s", cmd.Phone)
	}
	if cmd.ConversationID != "" {
		if _, err := p.conversations.FindInTenant(tenantID, cmd.ConversationID); err != nil {
			return nil, err
		}
	}

	result, err := p.gateway.SendText(ctx, cmd.InstanceName, phone, cmd.Message)
	if err != nil {
		return nil, err
	}

	// o envio externo é o efeito visível: falha ao gravar localmente só é logada
	if cmd.ConversationID != "" {
		if _, err := p.conversations.AppendMessage(cmd.ConversationID, true, cmd.Message); err != nil {
			zap.L().Error("evolution send: message sent but not recorded",
				zap.String("conversation_id", cmd.ConversationID), zap.Error(err))
		}
	}
	return result, nil
}

// applyStatus ignora instância ausente no tenant: não há o que sincronizar.
func (p *Proxy) applyStatus(id, tenantID, status string) error {
	err := p.instances.ApplyStatus(id, tenantID, status)
	if err != nil && IsNotFound(err) {
		zap.L().Warn("evolution: status not applied, instance not found for tenant",
			zap.String("instance_id", id), zap.String("tenant_id", tenantID))
		return nil
	}
	return err
}
