package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	// 补全流水线状态（条码库 / AI 文案 / 图片）
	EnrichStatusPending = "pending"
	EnrichStatusSuccess = "success"
	EnrichStatusFailed  = "failed"
)

// ==================== 数据库模型 ====================

// Product 商品主档
// 以条码为唯一标识；补全数据、供应商报价、各店铺 listing 均挂在其下
type Product struct {
	BaseModel
	Barcode string `gorm:"size:64;uniqueIndex;not null"`

	// --- 补全流水线 ---
	LookupStatus string  `gorm:"size:16;index;default:pending"` // 条码库补全状态
	LookupData   JSONMap `gorm:"type:json"`                     // 条码库原始结果
	AIStatus     string  `gorm:"size:16;index;default:pending"` // AI 文案状态
	AIData       JSONMap `gorm:"type:json"`                     // AI 生成的文案(标题/描述/SEO/标签)
	ImageStatus  string  `gorm:"size:16;index;default:pending"` // 图片处理状态
	ImageURLs    StringSlice `gorm:"type:json"`                 // 处理完成的图片地址

	// --- 冗余展示字段（从补全结果落库，供上架判定与检索） ---
	Title        string `gorm:"size:255"`
	Description  string `gorm:"type:text"`
	Category     string `gorm:"size:255"`
	Brand        string `gorm:"size:255;index"`
	Manufacturer string `gorm:"size:255"`

	// --- 关联关系 ---
	Suppliers []SupplierOffer `gorm:"foreignKey:ProductID"`
	Listings  []Listing       `gorm:"foreignKey:ProductID"`
}

func (Product) TableName() string {
	return "products"
}

// SupplierOffer 供应商报价
// 每个 (商品, 供应商) 至多一条，由货盘同步任务维护
type SupplierOffer struct {
	BaseModel
	ProductID    int64  `gorm:"not null;uniqueIndex:idx_product_supplier"`
	SupplierName string `gorm:"size:100;not null;uniqueIndex:idx_product_supplier"`

	Price      decimal.NullDecimal `gorm:"type:decimal(12,2)"` // 成本价，缺失表示暂无报价
	StockLevel int                 `gorm:"default:0"`
	SKU        string              `gorm:"size:100;index"`

	RawData    datatypes.JSON `gorm:"type:json"` // 货盘原始行
	ParsedData datatypes.JSON `gorm:"type:json"` // 解析后的标准字段
}

func (SupplierOffer) TableName() string {
	return "supplier_offers"
}

// ==================== 辅助方法 ====================

// EffectiveBrand 品牌兜底：brand 为空时退回 manufacturer
func (p *Product) EffectiveBrand() string {
	if p.Brand != "" {
		return p.Brand
	}
	return p.Manufacturer
}

// IsEnriched 商品资料是否足以上架：标题、描述、分类、品牌缺一不可
func (p *Product) IsEnriched() bool {
	return p.Title != "" && p.Description != "" && p.Category != "" && p.EffectiveBrand() != ""
}

// EnrichmentComplete 三条补全流水线是否全部成功
func (p *Product) EnrichmentComplete() bool {
	return p.LookupStatus == EnrichStatusSuccess &&
		p.AIStatus == EnrichStatusSuccess &&
		p.ImageStatus == EnrichStatusSuccess
}

// FindSupplier 按名称查找报价（大小写不敏感）
func (p *Product) FindSupplier(name string) *SupplierOffer {
	for i := range p.Suppliers {
		if strings.EqualFold(p.Suppliers[i].SupplierName, name) {
			return &p.Suppliers[i]
		}
	}
	return nil
}

// FindListing 按店铺域名查找 listing
func (p *Product) FindListing(shopDomain string) *Listing {
	for i := range p.Listings {
		if p.Listings[i].ShopDomain == shopDomain {
			return &p.Listings[i]
		}
	}
	return nil
}

// HasUsablePrice 报价是否可用（存在且大于 0）
func (o *SupplierOffer) HasUsablePrice() bool {
	return o.Price.Valid && o.Price.Decimal.IsPositive()
}
