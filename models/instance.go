package models

import "time"

/************************************************
/**** MARK: INSTANCE STATUS ****/
/************************************************/
const INSTANCE_STATUS_DISCONNECTED = "disconnected"
const INSTANCE_STATUS_CONNECTED = "connected"

// Instance espelha localmente uma instância do gateway (Evolution API) com o mesmo nome.
// O nome é a chave de junção com o gateway e com os webhooks, por isso é imutável.
type Instance struct {
	ID        string    `gorm:"primary_key;type:varchar(36)" json:"id"`
	TenantID  string    `gorm:"column:tenant_id;type:varchar(36);not null;index" json:"tenant_id"`
	Name      string    `gorm:"column:name;not null;unique_index" json:"name"`
	Status    string    `gorm:"column:status;not null;default:'disconnected'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Instance) TableName() string {
	return "instances"
}

// StatusFromGatewayState traduz o token de estado do gateway para o status local.
// Só "open" significa conectado; qualquer outro valor (inclusive vazio) é desconectado.
func StatusFromGatewayState(state string) string {
	if state == "open" {
		return INSTANCE_STATUS_CONNECTED
	}
	return INSTANCE_STATUS_DISCONNECTED
}
