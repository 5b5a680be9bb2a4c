package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shopify_sync_v1_202609/internal/model"
)

// ErrShopNotFound 店铺不存在
var ErrShopNotFound = errors.New("shop not found")

// ==================== 接口定义 ====================

// ShopRepository 店铺仓储接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByDomain(ctx context.Context, domain string) (*model.Shop, error)
	ListAll(ctx context.Context) ([]model.Shop, error)
	ListByDomains(ctx context.Context, domains []string) ([]model.Shop, error)

	// ListReady 具备上架条件的店铺（token + write_products 权限）
	// scopes 为 JSON 列，条件在内存判定
	ListReady(ctx context.Context) ([]model.Shop, error)

	UpdateSettings(ctx context.Context, domain string, fields map[string]interface{}) error
	TouchLastSynced(ctx context.Context, domain string, at time.Time) error
}

// ==================== 仓储实现 ====================

type shopRepo struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓储
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *shopRepo) GetByDomain(ctx context.Context, domain string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&shop).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: %s", ErrShopNotFound, domain)
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) ListAll(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	if err := r.db.WithContext(ctx).Order("domain ASC").Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *shopRepo) ListByDomains(ctx context.Context, domains []string) ([]model.Shop, error) {
	if len(domains) == 0 {
		return r.ListAll(ctx)
	}
	var shops []model.Shop
	err := r.db.WithContext(ctx).Where("domain IN ?", domains).Find(&shops).Error
	if err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *shopRepo) ListReady(ctx context.Context) ([]model.Shop, error) {
	shops, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ready := make([]model.Shop, 0, len(shops))
	for i := range shops {
		if shops[i].IsReadyForListing() {
			ready = append(ready, shops[i])
		}
	}
	return ready, nil
}

func (r *shopRepo) UpdateSettings(ctx context.Context, domain string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Shop{}).
		Where("domain = ?", domain).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrShopNotFound, domain)
	}
	return nil
}

func (r *shopRepo) TouchLastSynced(ctx context.Context, domain string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Shop{}).
		Where("domain = ?", domain).
		Update("last_synced_at", at).Error
}
