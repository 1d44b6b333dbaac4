package services

import (
	"fmt"
	"time"

	"zapdesk/db"
	"zapdesk/feed"
	"zapdesk/models"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

// InstanceStore é o Instance Registry: cache local do estado de cada instância.
type InstanceStore interface {
	Create(tenantID, name string) (*models.Instance, error)
	FindByName(name string) (*models.Instance, error)
	FindInTenant(tenantID, id string) (*models.Instance, error)
	FindByNameInTenant(tenantID, name string) (*models.Instance, error)
	// ApplyStatus é o único caminho que altera status. tenantID vazio não restringe por tenant.
	ApplyStatus(id, tenantID, status string) error
	Delete(tenantID, id string) error
	List() ([]models.Instance, error)
	ListByTenant(tenantID string) ([]models.Instance, error)
}

type InstanceRegistry struct {
	db       *gorm.DB
	notifier feed.Notifier
}

func NewInstanceRegistry(database *gorm.DB, notifier feed.Notifier) *InstanceRegistry {
	if notifier == nil {
		notifier = feed.Nop{}
	}
	return &InstanceRegistry{db: database, notifier: notifier}
}

func (r *InstanceRegistry) notify(t feed.ChangeType, inst models.Instance) {
	r.notifier.Notify(feed.Change{
		Table:    "instances",
		Type:     t,
		TenantID: inst.TenantID,
		Record:   inst,
		At:       time.Now(),
	})
}

func (r *InstanceRegistry) Create(tenantID, name string) (*models.Instance, error) {
	inst := models.Instance{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Name:     name,
		Status:   models.INSTANCE_STATUS_DISCONNECTED,
	}
	if err := r.db.Create(&inst).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, &StoreError{Op: "create instance", Err: fmt.Errorf("%w: %v", ErrDuplicate, err)}
		}
		return nil, &StoreError{Op: "create instance", Err: err}
	}
	r.notify(feed.Insert, inst)
	return &inst, nil
}

func (r *InstanceRegistry) first(query *gorm.DB, key string) (*models.Instance, error) {
	var inst models.Instance
	if err := query.First(&inst).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, &NotFoundError{Entity: "instância", Key: key}
		}
		return nil, &StoreError{Op: "find instance", Err: err}
	}
	return &inst, nil
}

func (r *InstanceRegistry) FindByName(name string) (*models.Instance, error) {
	return r.first(r.db.Where("name = ?", name), name)
}

func (r *InstanceRegistry) FindInTenant(tenantID, id string) (*models.Instance, error) {
	return r.first(r.db.Where("id = ? AND tenant_id = ?", id, tenantID), id)
}

func (r *InstanceRegistry) FindByNameInTenant(tenantID, name string) (*models.Instance, error) {
	return r.first(r.db.Where("name = ? AND tenant_id = ?", name, tenantID), name)
}

func (r *InstanceRegistry) ApplyStatus(id, tenantID, status string) error {
	query := r.db.Where("id = ?", id)
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	inst, err := r.first(query, id)
	if err != nil {
		return err
	}
	if inst.Status == status {
		return nil
	}

	now := time.Now()
	res := r.db.Model(&models.Instance{}).
		Where("id = ? AND tenant_id = ?", inst.ID, inst.TenantID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		})
	if res.Error != nil {
		return &StoreError{Op: "update instance status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		// removida entre a leitura e a escrita
		return &NotFoundError{Entity: "instância", Key: id}
	}

	inst.Status = status
	inst.UpdatedAt = now
	r.notify(feed.Update, *inst)
	return nil
}

func (r *InstanceRegistry) Delete(tenantID, id string) error {
	inst, err := r.FindInTenant(tenantID, id)
	if err != nil {
		return err
	}
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.Instance{}).Error; err != nil {
		return &StoreError{Op: "delete instance", Err: err}
	}
	r.notify(feed.Delete, *inst)
	return nil
}

func (r *InstanceRegistry) List() ([]models.Instance, error) {
	var out []models.Instance
	if err := r.db.Order("created_at asc").Find(&out).Error; err != nil {
		return nil, &StoreError{Op: "list instances", Err: err}
	}
	return out, nil
}

func (r *InstanceRegistry) ListByTenant(tenantID string) ([]models.Instance, error) {
	var out []models.Instance
	if err := r.db.Where("tenant_id = ?", tenantID).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, &StoreError{Op: "list instances", Err: err}
	}
	return out, nil
}
