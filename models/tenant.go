package models

import "time"

// Company é o tenant: unidade de isolamento de dados.
type Company struct {
	ID        string    `gorm:"primary_key;type:varchar(36)" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Profile liga o usuário autenticado (sub do JWT) à sua company.
// TenantID vazio significa usuário sem company, que não pode operar o console.
type Profile struct {
	ID        string    `gorm:"primary_key;type:varchar(36)" json:"id"`
	TenantID  string    `gorm:"column:tenant_id;type:varchar(36);index" json:"tenant_id"`
	FullName  string    `gorm:"column:full_name" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

var Tables = []interface{}{
	&Company{},
	&Profile{},
	&Instance{},
	&Conversation{},
	&Message{},
}
