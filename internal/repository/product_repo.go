package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopify_sync_v1_202609/internal/model"
)

// ErrProductNotFound 商品不存在
var ErrProductNotFound = errors.New("product not found")

// ==================== 接口定义 ====================

// ProductRepository 商品仓储接口
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	List(ctx context.Context, page, pageSize int) ([]model.Product, int64, error)

	// ListEnriched 三条补全流水线全部成功的商品（排除规则在内存判定）
	ListEnriched(ctx context.Context, limit int) ([]model.Product, error)

	// 供应商报价维护（货盘同步任务使用）
	UpsertSupplierOffer(ctx context.Context, offer *model.SupplierOffer) error
	PruneSupplierOffer(ctx context.Context, productID int64, supplierName string) error
}

// ==================== 仓储实现 ====================

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Suppliers").
		Preload("Listings")
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.withAssociations(ctx).First(&product, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) GetByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	err := r.withAssociations(ctx).Where("barcode = ?", barcode).First(&product).Error
	if err == gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("%w: barcode=%s", ErrProductNotFound, barcode)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, page, pageSize int) ([]model.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []model.Product
	err := r.withAssociations(ctx).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepo) ListEnriched(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.withAssociations(ctx).
		Where("lookup_status = ? AND ai_status = ? AND image_status = ?",
			model.EnrichStatusSuccess, model.EnrichStatusSuccess, model.EnrichStatusSuccess).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepo) UpsertSupplierOffer(ctx context.Context, offer *model.SupplierOffer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "supplier_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "stock_level", "sku", "raw_data", "parsed_data", "updated_at",
		}),
	}).Create(offer).Error
}

func (r *productRepo) PruneSupplierOffer(ctx context.Context, productID int64, supplierName string) error {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND supplier_name = ?", productID, supplierName).
		Delete(&model.SupplierOffer{}).Error
}
