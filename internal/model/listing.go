package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 状态常量 ====================

const (
	// 创建链路
	ListingStatusCreatePending    = "create_pending"
	ListingStatusCreateProcessing = "create_processing"
	ListingStatusCreateError      = "create_error"
	ListingStatusCreateFail       = "create_fail"
	ListingStatusCreated          = "created"

	// 更新链路
	ListingStatusUpdatePending    = "update_pending"
	ListingStatusUpdateProcessing = "update_processing"
	ListingStatusUpdateError      = "update_error"
	ListingStatusUpdateFail       = "update_fail"
	ListingStatusUpdated          = "updated"

	// 人工接管，调度器不再触碰
	ListingStatusUnmanaged = "unmanaged"
)

// 重试上限与退避基数
// 创建失败 6h/12h/24h 后重试，最多 3 次；
// 更新风险较低，30m 起步，上限放宽到 3 倍
const (
	CreateErrorLimit = 3
	UpdateErrorLimit = 9
)

const (
	createBackoffBase = 6 * time.Hour
	updateBackoffBase = 30 * time.Minute
)

// ==================== 错误定义 ====================

var (
	// ErrUnknownStatus 未知 listing 状态，属配置错误，不可重试
	ErrUnknownStatus = errors.New("unknown listing status")
	// ErrMissingField 目标状态缺少必填字段
	ErrMissingField = errors.New("missing required listing field")
	// ErrFieldNotAllowed 补丁携带了目标状态不允许的字段
	ErrFieldNotAllowed = errors.New("listing field not allowed for status")
)

// ==================== 数据库模型 ====================

// Listing 商品在单个店铺上的铺货记录（状态机实例）
// 每个 (商品, 店铺) 至多一条；状态转移只由批量任务中
// 持有该店铺的 worker 驱动，不存在跨店铺并发写
type Listing struct {
	BaseModel
	ProductID  int64  `gorm:"not null;uniqueIndex:idx_product_shop"`
	ShopDomain string `gorm:"size:255;not null;uniqueIndex:idx_product_shop;index:idx_shop_status"`

	Status     string `gorm:"size:32;not null;index:idx_shop_status"`
	ErrorCount int    `gorm:"default:0"`
	LastError  string `gorm:"size:1024"`

	// --- 定价结果（created/updated 必填，其余状态清空） ---
	Supplier     *string             `gorm:"size:100"`
	Cost         decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	StockLevel   *int
	SellingPrice decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	SKU          *string             `gorm:"size:100"`
	MarginUsed   *float64
	RoundingUsed *float64
	RoundTo      *string `gorm:"size:16"`

	// --- Shopify 侧标识（创建成功后写入，更新链路保留） ---
	ShopifyProductID *int64  `gorm:"index"`
	ShopifyVariantID *int64
	Handle           *string `gorm:"size:255"`

	// 关联
	Product *Product `gorm:"foreignKey:ProductID"`
}

func (Listing) TableName() string {
	return "listings"
}

// ==================== 字段契约 ====================

// 字段名常量，与校验错误信息保持一致
const (
	FieldSupplier         = "supplier"
	FieldCost             = "cost"
	FieldStockLevel       = "stock_level"
	FieldSellingPrice     = "selling_price"
	FieldSKU              = "sku"
	FieldMarginUsed       = "margin_used"
	FieldRoundingUsed     = "rounding_used"
	FieldRoundTo          = "round_to"
	FieldShopifyProductID = "shopify_product_id"
	FieldShopifyVariantID = "shopify_variant_id"
	FieldHandle           = "handle"
)

var pricingFields = []string{
	FieldSupplier, FieldCost, FieldStockLevel, FieldSellingPrice,
	FieldSKU, FieldMarginUsed, FieldRoundingUsed, FieldRoundTo,
}

var identityFields = []string{
	FieldShopifyProductID, FieldShopifyVariantID, FieldHandle,
}

type listingFieldSpec struct {
	required []string
	allowed  []string
}

func (s listingFieldSpec) allows(field string) bool {
	for _, f := range s.allowed {
		if f == field {
			return true
		}
	}
	return false
}

// 每个状态声明自己的字段集合：
//   - required: 进入该状态前必须齐备，缺失即拒绝写入
//   - allowed:  该状态下有意义的字段，其余一律清空，杜绝脏残留
//
// 创建链路在远端尚无记录，不允许携带任何业务字段；
// 更新链路发生在创建成功之后，保留标识与最近一次定价结果
var listingStatusSpecs = map[string]listingFieldSpec{
	ListingStatusCreatePending:    {},
	ListingStatusCreateProcessing: {},
	ListingStatusCreateError:      {},
	ListingStatusCreateFail:       {},
	ListingStatusCreated: {
		required: concat(pricingFields, identityFields),
		allowed:  concat(pricingFields, identityFields),
	},
	ListingStatusUpdatePending:    {allowed: concat(pricingFields, identityFields)},
	ListingStatusUpdateProcessing: {allowed: concat(pricingFields, identityFields)},
	ListingStatusUpdateError:      {allowed: concat(pricingFields, identityFields)},
	ListingStatusUpdateFail:       {allowed: concat(pricingFields, identityFields)},
	ListingStatusUpdated: {
		required: pricingFields,
		allowed:  concat(pricingFields, identityFields),
	},
	ListingStatusUnmanaged: {allowed: identityFields},
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// KnownListingStatus 状态是否合法
func KnownListingStatus(status string) bool {
	_, ok := listingStatusSpecs[status]
	return ok
}

// ==================== 补丁类型 ====================

// 显式清空哨兵：补丁字段指向这些地址时表示"清空为 NULL"，
// 与 nil（未提供、保持原值）区分开
var (
	ClearString  = new(string)
	ClearInt     = new(int)
	ClearInt64   = new(int64)
	ClearFloat   = new(float64)
	ClearDecimal = new(decimal.Decimal)
)

// ListingPatch listing 状态转移补丁
// 指针字段 nil 表示未提供；指向 Clear* 哨兵表示显式清空
type ListingPatch struct {
	Status string
	Error  string // *_error 状态的失败原因

	Supplier     *string
	Cost         *decimal.Decimal
	StockLevel   *int
	SellingPrice *decimal.Decimal
	SKU          *string
	MarginUsed   *float64
	RoundingUsed *float64
	RoundTo      *string

	ShopifyProductID *int64
	ShopifyVariantID *int64
	Handle           *string
}

// ==================== 合并与校验（纯函数，I/O 之前执行） ====================

// MergeListing 在现有记录（可为 nil）之上应用补丁，产出目标状态的完整记录
// 校验顺序：状态合法 → 补丁字段合规 → 必填字段齐备，任一失败都不落库
func MergeListing(existing *Listing, patch *ListingPatch, now time.Time) (*Listing, error) {
	spec, ok := listingStatusSpecs[patch.Status]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, patch.Status)
	}

	merged := &Listing{}
	if existing != nil {
		*merged = *existing
	}

	if err := applyPatchFields(merged, patch, spec); err != nil {
		return nil, err
	}
	clearIrrelevantFields(merged, spec)

	for _, field := range spec.required {
		if !fieldPresent(merged, field) {
			return nil, fmt.Errorf("%w: %s requires %q", ErrMissingField, patch.Status, field)
		}
	}

	merged.Status = patch.Status
	merged.UpdatedAt = now

	switch patch.Status {
	case ListingStatusCreated, ListingStatusUpdated:
		merged.ErrorCount = 0
		merged.LastError = ""
	case ListingStatusCreateError:
		merged.ErrorCount++
		merged.LastError = patch.Error
		// 达到上限直接升级为终态，调度器不再重试
		if merged.ErrorCount >= CreateErrorLimit {
			merged.Status = ListingStatusCreateFail
		}
	case ListingStatusUpdateError:
		merged.ErrorCount++
		merged.LastError = patch.Error
		if merged.ErrorCount >= UpdateErrorLimit {
			merged.Status = ListingStatusUpdateFail
		}
	}

	return merged, nil
}

// applyPatchFields 叠加补丁字段，拒绝目标状态不认识的字段
func applyPatchFields(merged *Listing, patch *ListingPatch, spec listingFieldSpec) error {
	type patchField struct {
		name  string
		set   bool
		apply func()
	}

	fields := []patchField{
		{FieldSupplier, patch.Supplier != nil, func() {
			merged.Supplier = clearableString(patch.Supplier)
		}},
		{FieldCost, patch.Cost != nil, func() {
			merged.Cost = clearableDecimal(patch.Cost)
		}},
		{FieldStockLevel, patch.StockLevel != nil, func() {
			merged.StockLevel = clearableInt(patch.StockLevel)
		}},
		{FieldSellingPrice, patch.SellingPrice != nil, func() {
			merged.SellingPrice = clearableDecimal(patch.SellingPrice)
		}},
		{FieldSKU, patch.SKU != nil, func() {
			merged.SKU = clearableString(patch.SKU)
		}},
		{FieldMarginUsed, patch.MarginUsed != nil, func() {
			merged.MarginUsed = clearableFloat(patch.MarginUsed)
		}},
		{FieldRoundingUsed, patch.RoundingUsed != nil, func() {
			merged.RoundingUsed = clearableFloat(patch.RoundingUsed)
		}},
		{FieldRoundTo, patch.RoundTo != nil, func() {
			merged.RoundTo = clearableString(patch.RoundTo)
		}},
		{FieldShopifyProductID, patch.ShopifyProductID != nil, func() {
			merged.ShopifyProductID = clearableInt64(patch.ShopifyProductID)
		}},
		{FieldShopifyVariantID, patch.ShopifyVariantID != nil, func() {
			merged.ShopifyVariantID = clearableInt64(patch.ShopifyVariantID)
		}},
		{FieldHandle, patch.Handle != nil, func() {
			merged.Handle = clearableString(patch.Handle)
		}},
	}

	for _, f := range fields {
		if !f.set {
			continue
		}
		if !spec.allows(f.name) {
			return fmt.Errorf("%w: %q for status %q", ErrFieldNotAllowed, f.name, patch.Status)
		}
		f.apply()
	}
	return nil
}

// clearIrrelevantFields 清空目标状态不关心的字段，避免陈旧值残留
func clearIrrelevantFields(merged *Listing, spec listingFieldSpec) {
	if !spec.allows(FieldSupplier) {
		merged.Supplier = nil
	}
	if !spec.allows(FieldCost) {
		merged.Cost = decimal.NullDecimal{}
	}
	if !spec.allows(FieldStockLevel) {
		merged.StockLevel = nil
	}
	if !spec.allows(FieldSellingPrice) {
		merged.SellingPrice = decimal.NullDecimal{}
	}
	if !spec.allows(FieldSKU) {
		merged.SKU = nil
	}
	if !spec.allows(FieldMarginUsed) {
		merged.MarginUsed = nil
	}
	if !spec.allows(FieldRoundingUsed) {
		merged.RoundingUsed = nil
	}
	if !spec.allows(FieldRoundTo) {
		merged.RoundTo = nil
	}
	if !spec.allows(FieldShopifyProductID) {
		merged.ShopifyProductID = nil
	}
	if !spec.allows(FieldShopifyVariantID) {
		merged.ShopifyVariantID = nil
	}
	if !spec.allows(FieldHandle) {
		merged.Handle = nil
	}
}

func fieldPresent(l *Listing, field string) bool {
	switch field {
	case FieldSupplier:
		return l.Supplier != nil
	case FieldCost:
		return l.Cost.Valid
	case FieldStockLevel:
		return l.StockLevel != nil
	case FieldSellingPrice:
		return l.SellingPrice.Valid
	case FieldSKU:
		return l.SKU != nil
	case FieldMarginUsed:
		return l.MarginUsed != nil
	case FieldRoundingUsed:
		return l.RoundingUsed != nil
	case FieldRoundTo:
		return l.RoundTo != nil
	case FieldShopifyProductID:
		return l.ShopifyProductID != nil
	case FieldShopifyVariantID:
		return l.ShopifyVariantID != nil
	case FieldHandle:
		return l.Handle != nil
	}
	return false
}

func clearableString(p *string) *string {
	if p == ClearString {
		return nil
	}
	v := *p
	return &v
}

func clearableInt(p *int) *int {
	if p == ClearInt {
		return nil
	}
	v := *p
	return &v
}

func clearableInt64(p *int64) *int64 {
	if p == ClearInt64 {
		return nil
	}
	v := *p
	return &v
}

func clearableFloat(p *float64) *float64 {
	if p == ClearFloat {
		return nil
	}
	v := *p
	return &v
}

func clearableDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == ClearDecimal {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

// ==================== 调度判定 ====================

// backoffDelay 指数退避：base * 2^(errorCount-1)
func backoffDelay(base time.Duration, errorCount int) time.Duration {
	if errorCount < 1 {
		errorCount = 1
	}
	return base << (errorCount - 1)
}

// IsDueForCreate 创建队列判定
// create_pending 立即到期；create_error 按 6h 指数退避，达到上限永久出队
func (l *Listing) IsDueForCreate(now time.Time) bool {
	switch l.Status {
	case ListingStatusCreatePending:
		return true
	case ListingStatusCreateError:
		if l.ErrorCount >= CreateErrorLimit {
			return false
		}
		if l.UpdatedAt.IsZero() {
			// 缺少时间戳无法计算退避，防御性跳过
			return false
		}
		return !now.Before(l.UpdatedAt.Add(backoffDelay(createBackoffBase, l.ErrorCount)))
	}
	return false
}

// IsDueForUpdate 更新队列判定，退避基数 30 分钟
func (l *Listing) IsDueForUpdate(now time.Time) bool {
	switch l.Status {
	case ListingStatusUpdatePending:
		return true
	case ListingStatusUpdateError:
		if l.ErrorCount >= UpdateErrorLimit {
			return false
		}
		if l.UpdatedAt.IsZero() {
			return false
		}
		return !now.Before(l.UpdatedAt.Add(backoffDelay(updateBackoffBase, l.ErrorCount)))
	}
	return false
}

// blocksCreation 处于这些状态时不允许再次发起创建（幂等闸门）
func (l *Listing) blocksCreation() bool {
	switch l.Status {
	case ListingStatusCreated, ListingStatusCreateProcessing,
		ListingStatusCreateFail, ListingStatusUnmanaged:
		return true
	}
	return false
}

// HasBlockingListing 商品在该店铺是否已有阻止重复创建的 listing
func (p *Product) HasBlockingListing(shopDomain string) bool {
	for i := range p.Listings {
		if p.Listings[i].ShopDomain == shopDomain && p.Listings[i].blocksCreation() {
			return true
		}
	}
	return false
}
