package model

import (
	"strings"
	"time"
)

// Shop 状态常量
const (
	ShopStatusPending  = 0 // 待授权
	ShopStatusActive   = 1 // 正常
	ShopStatusInactive = 2 // 已停用
)

// 取整方向
const (
	RoundToUp      = "up"
	RoundToDown    = "down"
	RoundToClosest = "closest"
)

// 默认定价策略（与店铺初始化保持一致）
const (
	DefaultProfitMargin = 1.5
	DefaultRounding     = 0.99
)

// ListingScope 上架所需的 API 权限
const ListingScope = "write_products"

// Shop 店铺
// 以域名为唯一标识；定价策略与排除规则直接内联为数据列，
// 客户端按调用点即时构造，不在店铺上持有
type Shop struct {
	BaseModel
	Domain string `gorm:"size:255;uniqueIndex;not null"` // xxx.myshopify.com

	// --- API 凭证 ---
	AccessToken string      `gorm:"size:255"` // 加密存储
	Scopes      StringSlice `gorm:"type:json"`

	// --- 定价策略 ---
	ProfitMargin float64 `gorm:"default:1.5"`            // 成本乘数
	Rounding     float64 `gorm:"default:0.99"`           // 尾数定价，0 表示关闭
	RoundTo      string  `gorm:"size:16;default:closest"` // up / down / closest

	// --- 排除规则（大小写不敏感） ---
	ExcludedSuppliers StringSlice `gorm:"type:json"`
	ExcludedBrands    StringSlice `gorm:"type:json"`

	// --- 状态 ---
	Status       int        `gorm:"default:0;index;comment:状态 0-待授权 1-正常 2-已停用"`
	LastSyncedAt *time.Time `gorm:"comment:最后批量同步时间"`
}

func (Shop) TableName() string {
	return "shops"
}

// ==================== 辅助方法 ====================

// HasScope 是否持有指定权限
func (s *Shop) HasScope(scope string) bool {
	for _, sc := range s.Scopes {
		if sc == scope {
			return true
		}
	}
	return false
}

// IsReadyForListing 店铺是否具备上架条件：有 token 且持有 write_products 权限
func (s *Shop) IsReadyForListing() bool {
	return s.AccessToken != "" && s.HasScope(ListingScope)
}

// IsSupplierExcluded 供应商是否在排除名单内
func (s *Shop) IsSupplierExcluded(name string) bool {
	return containsFold(s.ExcludedSuppliers, name)
}

// IsBrandExcluded 品牌是否在排除名单内
func (s *Shop) IsBrandExcluded(brand string) bool {
	if brand == "" {
		return false
	}
	return containsFold(s.ExcludedBrands, brand)
}

// PricePolicy 定价策略快照
type PricePolicy struct {
	ProfitMargin float64
	Rounding     float64
	RoundTo      string
}

// PricePolicy 导出当前定价策略（空值回落到默认）
func (s *Shop) PricePolicy() PricePolicy {
	policy := PricePolicy{
		ProfitMargin: s.ProfitMargin,
		Rounding:     s.Rounding,
		RoundTo:      s.RoundTo,
	}
	if policy.ProfitMargin <= 0 {
		policy.ProfitMargin = DefaultProfitMargin
	}
	if policy.RoundTo == "" {
		policy.RoundTo = RoundToClosest
	}
	return policy
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
