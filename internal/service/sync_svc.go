package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/pkg/shopify"
)

// ==================== 外部系统接口 ====================

// ShopifyGateway 远端商品系统的窄接口（pkg/shopify.Client 实现）
// 每次调用都可能失败；重试由状态机层面负责，这里不做即时重试
type ShopifyGateway interface {
	CreateProduct(ctx context.Context, creds shopify.Credentials, payload *shopify.ProductPayload) (*shopify.ProductResult, error)
	UpdateVariant(ctx context.Context, creds shopify.Credentials, variantID int64, price, sku string) error
	SetInventory(ctx context.Context, creds shopify.Credentials, locationID, inventoryItemID int64, quantity int) error
	DeleteProduct(ctx context.Context, creds shopify.Credentials, productID int64) error
	GetVariantInventoryItem(ctx context.Context, creds shopify.Credentials, variantID int64) (int64, error)
	GetPrimaryLocation(ctx context.Context, creds shopify.Credentials) (int64, error)
	EnsureCollection(ctx context.Context, creds shopify.Credentials, title string) (int64, error)
	AddToCollection(ctx context.Context, creds shopify.Credentials, productID, collectionID int64) error
}

// ErrShopNotReady 店铺不具备上架条件（无 token/权限或远端资源不可达）
var ErrShopNotReady = errors.New("shop not ready for product actions")

// ==================== 运行期上下文 ====================

// ShopRuntime 一次批量运行中单个店铺的上下文
// 由 PrepareShop 构建一次，店铺内所有商品顺序复用
type ShopRuntime struct {
	Shop        *model.Shop
	Creds       shopify.Credentials
	LocationID  int64
	Collections *CollectionCache
}

// SyncOutcome 单个 (商品, 店铺) 的处理结果
type SyncOutcome int

const (
	OutcomeSuccess SyncOutcome = iota
	OutcomeFailed
	OutcomeSkipped
)

// ==================== SyncService 铺货执行服务 ====================

// SyncService 驱动单个商品在单个店铺上的创建/更新流程
type SyncService struct {
	gateway    ShopifyGateway
	listingSvc *ListingService
}

// NewSyncService 创建铺货执行服务
func NewSyncService(gateway ShopifyGateway, listingSvc *ListingService) *SyncService {
	return &SyncService{gateway: gateway, listingSvc: listingSvc}
}

// PrepareShop 店铺级准备，幂等
// 校验上架条件并解析库存地点；失败时该店铺整批跳过
func (s *SyncService) PrepareShop(ctx context.Context, shop *model.Shop) (*ShopRuntime, error) {
	if !shop.IsReadyForListing() {
		return nil, fmt.Errorf("%w: %s 缺少 token 或 %s 权限", ErrShopNotReady, shop.Domain, model.ListingScope)
	}

	creds := shopify.Credentials{Domain: shop.Domain, AccessToken: shop.AccessToken}
	locationID, err := s.gateway.GetPrimaryLocation(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %s 库存地点不可达: %v", ErrShopNotReady, shop.Domain, err)
	}

	return &ShopRuntime{
		Shop:        shop,
		Creds:       creds,
		LocationID:  locationID,
		Collections: NewCollectionCache(),
	}, nil
}

// ==================== 创建流程 ====================

// CreateOnShop 在店铺上创建商品 listing
// 远端失败记为 create_error 交给退避重试；部分创建成功后失败时
// 先尽力删除远端残留再记错，避免孤儿记录
func (s *SyncService) CreateOnShop(ctx context.Context, rt *ShopRuntime, product *model.Product) (SyncOutcome, error) {
	if ok, reason := ProductEligible(product, rt.Shop); !ok {
		// 预期业务结果：资格在标记后发生了变化，留在队列等待下一轮
		log.Printf("[Sync] 跳过 %s @ %s: %s", product.Barcode, rt.Shop.Domain, reason)
		return OutcomeSkipped, nil
	}

	quote, ok := QuoteForShop(product, rt.Shop)
	if !ok {
		log.Printf("[Sync] 跳过 %s @ %s: 无可用供应商", product.Barcode, rt.Shop.Domain)
		return OutcomeSkipped, nil
	}
	if !quote.FromStock {
		// 无货兜底：按 0 库存上架，单独记一条日志便于排查
		log.Printf("[Sync] %s @ %s 仅有无货报价（供应商 %s），按 0 库存上架", product.Barcode, rt.Shop.Domain, quote.Supplier)
	}

	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, &model.ListingPatch{
		Status: model.ListingStatusCreateProcessing,
	}); err != nil {
		return OutcomeFailed, err
	}

	result, err := s.gateway.CreateProduct(ctx, rt.Creds, buildProductPayload(product, quote))
	if err != nil {
		return s.recordCreateError(ctx, product, rt, fmt.Errorf("远端创建失败: %w", err))
	}

	// 创建成功后的附加步骤，任一失败都清理远端残留
	if err := s.finishRemoteCreate(ctx, rt, product, quote, result); err != nil {
		if delErr := s.gateway.DeleteProduct(ctx, rt.Creds, result.ProductID); delErr != nil {
			// 清理失败只记日志，不阻塞错误转移
			log.Printf("[Sync] 清理部分创建的远端商品失败 %s @ %s: %v", product.Barcode, rt.Shop.Domain, delErr)
		}
		return s.recordCreateError(ctx, product, rt, err)
	}

	patch := &model.ListingPatch{
		Status:           model.ListingStatusCreated,
		Supplier:         &quote.Supplier,
		Cost:             &quote.Cost,
		StockLevel:       &quote.StockLevel,
		SellingPrice:     &quote.SellingPrice,
		SKU:              &quote.SKU,
		MarginUsed:       &quote.MarginUsed,
		RoundingUsed:     &quote.RoundingUsed,
		RoundTo:          &quote.RoundTo,
		ShopifyProductID: &result.ProductID,
		ShopifyVariantID: &result.VariantID,
		Handle:           &result.Handle,
	}
	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, patch); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeSuccess, nil
}

// finishRemoteCreate 库存与集合归档，属创建流程的一部分
func (s *SyncService) finishRemoteCreate(ctx context.Context, rt *ShopRuntime, product *model.Product, quote *PriceQuote, result *shopify.ProductResult) error {
	if err := s.gateway.SetInventory(ctx, rt.Creds, rt.LocationID, result.InventoryItemID, quote.StockLevel); err != nil {
		return fmt.Errorf("设置库存失败: %w", err)
	}

	if product.Category != "" {
		collectionID, cached := rt.Collections.Get(product.Category)
		if !cached {
			id, err := s.gateway.EnsureCollection(ctx, rt.Creds, product.Category)
			if err != nil {
				return fmt.Errorf("集合归档失败: %w", err)
			}
			rt.Collections.Put(product.Category, id)
			collectionID = id
		}
		if err := s.gateway.AddToCollection(ctx, rt.Creds, result.ProductID, collectionID); err != nil {
			return fmt.Errorf("集合归档失败: %w", err)
		}
	}
	return nil
}

func (s *SyncService) recordCreateError(ctx context.Context, product *model.Product, rt *ShopRuntime, cause error) (SyncOutcome, error) {
	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, &model.ListingPatch{
		Status: model.ListingStatusCreateError,
		Error:  cause.Error(),
	}); err != nil {
		// 状态机写入失败属配置/程序错误，向上抛出
		return OutcomeFailed, err
	}
	return OutcomeFailed, cause
}

// ==================== 更新流程 ====================

// UpdateOnShop 同步价格与库存到已创建的 listing
// 远端无变化时直接收敛为 updated 并按跳过计数
func (s *SyncService) UpdateOnShop(ctx context.Context, rt *ShopRuntime, product *model.Product) (SyncOutcome, error) {
	listing := product.FindListing(rt.Shop.Domain)
	if listing == nil {
		return OutcomeSkipped, nil
	}
	if listing.ShopifyVariantID == nil || listing.ShopifyProductID == nil {
		// 缺失远端标识无法更新，记错并走升级链路
		return s.recordUpdateError(ctx, product, rt, errors.New("listing 缺少远端标识"))
	}

	quote, ok := QuoteForShop(product, rt.Shop)
	if !ok {
		log.Printf("[Sync] 跳过更新 %s @ %s: 无可用供应商", product.Barcode, rt.Shop.Domain)
		return OutcomeSkipped, nil
	}

	pricingPatch := func(status string) *model.ListingPatch {
		return &model.ListingPatch{
			Status:       status,
			Supplier:     &quote.Supplier,
			Cost:         &quote.Cost,
			StockLevel:   &quote.StockLevel,
			SellingPrice: &quote.SellingPrice,
			SKU:          &quote.SKU,
			MarginUsed:   &quote.MarginUsed,
			RoundingUsed: &quote.RoundingUsed,
			RoundTo:      &quote.RoundTo,
		}
	}

	if pricingUnchanged(listing, quote) {
		if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, pricingPatch(model.ListingStatusUpdated)); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeSkipped, nil
	}

	variantID := *listing.ShopifyVariantID
	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, &model.ListingPatch{
		Status: model.ListingStatusUpdateProcessing,
	}); err != nil {
		return OutcomeFailed, err
	}

	if err := s.gateway.UpdateVariant(ctx, rt.Creds, variantID, quote.SellingPrice.StringFixed(2), quote.SKU); err != nil {
		return s.recordUpdateError(ctx, product, rt, fmt.Errorf("远端变体更新失败: %w", err))
	}

	inventoryItemID, err := s.gateway.GetVariantInventoryItem(ctx, rt.Creds, variantID)
	if err != nil {
		return s.recordUpdateError(ctx, product, rt, fmt.Errorf("查询库存条目失败: %w", err))
	}
	if err := s.gateway.SetInventory(ctx, rt.Creds, rt.LocationID, inventoryItemID, quote.StockLevel); err != nil {
		return s.recordUpdateError(ctx, product, rt, fmt.Errorf("设置库存失败: %w", err))
	}

	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, pricingPatch(model.ListingStatusUpdated)); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeSuccess, nil
}

func (s *SyncService) recordUpdateError(ctx context.Context, product *model.Product, rt *ShopRuntime, cause error) (SyncOutcome, error) {
	if _, err := s.listingSvc.Upsert(ctx, product, rt.Shop.Domain, &model.ListingPatch{
		Status: model.ListingStatusUpdateError,
		Error:  cause.Error(),
	}); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeFailed, cause
}

// pricingUnchanged 上次落库的定价结果与本次仲裁是否一致
func pricingUnchanged(listing *model.Listing, quote *PriceQuote) bool {
	if listing.Supplier == nil || *listing.Supplier != quote.Supplier {
		return false
	}
	if !listing.SellingPrice.Valid || !listing.SellingPrice.Decimal.Equal(quote.SellingPrice) {
		return false
	}
	if listing.StockLevel == nil || *listing.StockLevel != quote.StockLevel {
		return false
	}
	if listing.SKU == nil || *listing.SKU != quote.SKU {
		return false
	}
	return true
}

// ==================== 商品载荷 ====================

// buildProductPayload 由补全资料与定价结果拼装远端创建载荷
func buildProductPayload(product *model.Product, quote *PriceQuote) *shopify.ProductPayload {
	payload := &shopify.ProductPayload{
		Title:          product.Title,
		BodyHTML:       product.Description,
		Vendor:         product.EffectiveBrand(),
		ImageURLs:      product.ImageURLs,
		SEOTitle:       product.AIData.GetString("seo_title"),
		SEODescription: product.AIData.GetString("seo_description"),
		Price:          quote.SellingPrice.StringFixed(2),
		Cost:           quote.Cost.StringFixed(2),
		SKU:            quote.SKU,
		Barcode:        product.Barcode,
	}

	if tags, ok := product.AIData["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				payload.Tags = append(payload.Tags, s)
			}
		}
	}
	return payload
}
