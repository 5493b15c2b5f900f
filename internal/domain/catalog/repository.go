package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrInvalidSettings  = errors.New("invalid tenant settings")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateTenant(ctx context.Context, t *Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *Repository) CreateResource(ctx context.Context, res *Resource) error {
	// gorm skips zero-value bools that carry a default tag, so inactive
	// resources are written in two steps.
	active := res.IsActive
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return err
	}
	if !active {
		return r.Deactivate(ctx, res.ID)
	}
	return nil
}

func (r *Repository) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	var t Tenant
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetResource(ctx context.Context, id int64) (*Resource, error) {
	var res Resource
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListActiveResources returns the tenant's active resources matching filter,
// ordered by id.
func (r *Repository) ListActiveResources(ctx context.Context, tenantID int64, filter CapabilityFilter) ([]Resource, error) {
	q := r.db.WithContext(ctx).
		Model(&Resource{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true)
	if filter.PetAllowed != nil {
		q = q.Where("pet_allowed = ?", *filter.PetAllowed)
	}
	if filter.DayUseAllowed != nil {
		q = q.Where("day_use_allowed = ?", *filter.DayUseAllowed)
	}

	var out []Resource
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&Resource{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResourceNotFound
	}
	return nil
}
