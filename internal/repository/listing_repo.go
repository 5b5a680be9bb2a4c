package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopify_sync_v1_202609/internal/model"
)

// ==================== 接口定义 ====================

// ListingRepository 铺货记录仓储接口
type ListingRepository interface {
	GetByProductAndShop(ctx context.Context, productID int64, shopDomain string) (*model.Listing, error)

	// Upsert 按 (product_id, shop_domain) 原地更新；
	// 零行命中（内存视图过期或记录不存在）时退化为删后重插，保证收敛。
	// 返回是否实际写入
	Upsert(ctx context.Context, listing *model.Listing) (bool, error)

	// 调度查询
	FindDueCreations(ctx context.Context, now time.Time, limit int) ([]model.Listing, error)
	FindDueUpdates(ctx context.Context, now time.Time, limit int) ([]model.Listing, error)
	FindStaleProcessing(ctx context.Context, before time.Time) ([]model.Listing, error)

	// FlagForUpdate 把 created/updated 的记录标记为 update_pending
	// productIDs / shopDomains 为空表示不过滤该维度
	FlagForUpdate(ctx context.Context, productIDs []int64, shopDomains []string) (int64, error)

	CountByShopAndStatus(ctx context.Context, shopDomain string) (map[string]int64, error)
}

// ==================== 仓储实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建铺货仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) GetByProductAndShop(ctx context.Context, productID int64, shopDomain string) (*model.Listing, error) {
	var listing model.Listing
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND shop_domain = ?", productID, shopDomain).
		First(&listing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *listingRepo) Upsert(ctx context.Context, listing *model.Listing) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("product_id = ? AND shop_domain = ?", listing.ProductID, listing.ShopDomain).
		Select("*").Omit("id", "created_at").
		Updates(listing)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 零行命中：删后重插兜底
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("product_id = ? AND shop_domain = ?", listing.ProductID, listing.ShopDomain).
			Delete(&model.Listing{}).Error; err != nil {
			return err
		}
		fresh := *listing
		fresh.ID = 0
		if err := tx.Create(&fresh).Error; err != nil {
			return err
		}
		listing.ID = fresh.ID
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// findByStatus 按状态集合捞取候选，退避窗口由调用方在内存中判定
func (r *listingRepo) findByStatus(ctx context.Context, statuses []string, errorLimit, limit int) ([]model.Listing, error) {
	var listings []model.Listing
	q := r.db.WithContext(ctx).
		Where("status IN ? AND error_count < ?", statuses, errorLimit).
		Order("updated_at ASC").
		Preload("Product").
		Preload("Product.Suppliers").
		Preload("Product.Listings")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepo) FindDueCreations(ctx context.Context, now time.Time, limit int) ([]model.Listing, error) {
	candidates, err := r.findByStatus(ctx,
		[]string{model.ListingStatusCreatePending, model.ListingStatusCreateError},
		model.CreateErrorLimit, limit)
	if err != nil {
		return nil, err
	}

	due := make([]model.Listing, 0, len(candidates))
	for i := range candidates {
		if candidates[i].IsDueForCreate(now) {
			due = append(due, candidates[i])
		}
	}
	return due, nil
}

func (r *listingRepo) FindDueUpdates(ctx context.Context, now time.Time, limit int) ([]model.Listing, error) {
	candidates, err := r.findByStatus(ctx,
		[]string{model.ListingStatusUpdatePending, model.ListingStatusUpdateError},
		model.UpdateErrorLimit, limit)
	if err != nil {
		return nil, err
	}

	due := make([]model.Listing, 0, len(candidates))
	for i := range candidates {
		if candidates[i].IsDueForUpdate(now) {
			due = append(due, candidates[i])
		}
	}
	return due, nil
}

func (r *listingRepo) FindStaleProcessing(ctx context.Context, before time.Time) ([]model.Listing, error) {
	var listings []model.Listing
	err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{model.ListingStatusCreateProcessing, model.ListingStatusUpdateProcessing},
			before).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepo) FlagForUpdate(ctx context.Context, productIDs []int64, shopDomains []string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("status IN ?", []string{model.ListingStatusCreated, model.ListingStatusUpdated})
	if len(productIDs) > 0 {
		q = q.Where("product_id IN ?", productIDs)
	}
	if len(shopDomains) > 0 {
		q = q.Where("shop_domain IN ?", shopDomains)
	}
	res := q.Updates(map[string]interface{}{"status": model.ListingStatusUpdatePending})
	return res.RowsAffected, res.Error
}

func (r *listingRepo) CountByShopAndStatus(ctx context.Context, shopDomain string) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Listing{}).
		Select("status, count(*) as count").
		Where("shop_domain = ?", shopDomain).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
