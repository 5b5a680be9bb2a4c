package dto

import "time"

// ================== Shop DTO ==================

// ShopCreateReq 接入店铺请求
type ShopCreateReq struct {
	Domain      string   `json:"domain" binding:"required"`
	AccessToken string   `json:"access_token"`
	Scopes      []string `json:"scopes"`
}

// ShopSettingsReq 店铺定价/排除设置更新请求
// 指针字段为 nil 表示不修改
type ShopSettingsReq struct {
	ProfitMargin      *float64 `json:"profit_margin"`
	Rounding          *float64 `json:"rounding"`
	RoundTo           *string  `json:"round_to"` // up / down / closest
	ExcludedSuppliers []string `json:"excluded_suppliers"`
	ExcludedBrands    []string `json:"excluded_brands"`
}

// ShopResp 店铺响应
type ShopResp struct {
	ID                int64      `json:"id"`
	Domain            string     `json:"domain"`
	Ready             bool       `json:"ready"` // 是否具备铺货条件
	Scopes            []string   `json:"scopes"`
	ProfitMargin      float64    `json:"profit_margin"`
	Rounding          float64    `json:"rounding"`
	RoundTo           string     `json:"round_to"`
	ExcludedSuppliers []string   `json:"excluded_suppliers"`
	ExcludedBrands    []string   `json:"excluded_brands"`
	Status            int        `json:"status"`
	LastSyncedAt      *time.Time `json:"last_synced_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ShopListResp 店铺列表响应
type ShopListResp struct {
	Total int        `json:"total"`
	Items []ShopResp `json:"items"`
}

// ShopStatsResp 店铺上架状态统计
type ShopStatsResp struct {
	Domain string           `json:"domain"`
	Counts map[string]int64 `json:"counts"` // listing_status -> 数量
}
