package service

import (
	"context"
	"log"
	"time"

	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
)

// ==================== ListingService 铺货状态机驱动 ====================

// DefaultProcessingTTL 卡在 *_processing 超过该时长视为僵死
// （进程被杀导致的残留），回收为对应的 *_error 交给退避机制接管
const DefaultProcessingTTL = 2 * time.Hour

// ListingService 铺货状态机服务
// 校验与合并是纯函数（model.MergeListing），本服务负责串联持久化
// 与内存镜像的回写
type ListingService struct {
	listingRepo repository.ListingRepository
}

// NewListingService 创建铺货状态机服务
func NewListingService(listingRepo repository.ListingRepository) *ListingService {
	return &ListingService{listingRepo: listingRepo}
}

// Upsert 驱动一次状态转移
// 校验失败（未知状态/缺少必填字段/非法字段）不产生任何写入
func (s *ListingService) Upsert(ctx context.Context, product *model.Product, shopDomain string, patch *model.ListingPatch) (*model.Listing, error) {
	existing := product.FindListing(shopDomain)

	merged, err := model.MergeListing(existing, patch, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	merged.ProductID = product.ID
	merged.ShopDomain = shopDomain

	if _, err := s.listingRepo.Upsert(ctx, merged); err != nil {
		return nil, err
	}

	// 回写内存镜像，后续判定不再读库
	if existing != nil {
		*existing = *merged
	} else {
		product.Listings = append(product.Listings, *merged)
	}
	return merged, nil
}

// IsReadyToCreate 创建幂等闸门
// 资料齐备 + 店铺资格通过 + 不存在阻止重复创建的 listing
func (s *ListingService) IsReadyToCreate(product *model.Product, shop *model.Shop) bool {
	if !product.IsEnriched() {
		return false
	}
	if ok, _ := ProductEligible(product, shop); !ok {
		return false
	}
	return !product.HasBlockingListing(shop.Domain)
}

// ReclaimStale 回收僵死的 *_processing 记录
// 转移为对应 *_error 并计一次失败，由正常退避/上限机制接管
func (s *ListingService) ReclaimStale(ctx context.Context, ttl time.Duration, now time.Time) (int, error) {
	if ttl <= 0 {
		ttl = DefaultProcessingTTL
	}
	stale, err := s.listingRepo.FindStaleProcessing(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range stale {
		l := &stale[i]
		status := model.ListingStatusCreateError
		if l.Status == model.ListingStatusUpdateProcessing {
			status = model.ListingStatusUpdateError
		}

		merged, err := model.MergeListing(l, &model.ListingPatch{
			Status: status,
			Error:  "processing timed out, reclaimed by scheduler",
		}, now)
		if err != nil {
			log.Printf("[ListingService] 回收僵死记录失败 product=%d shop=%s: %v", l.ProductID, l.ShopDomain, err)
			continue
		}
		merged.ProductID = l.ProductID
		merged.ShopDomain = l.ShopDomain

		if _, err := s.listingRepo.Upsert(ctx, merged); err != nil {
			log.Printf("[ListingService] 回收写入失败 product=%d shop=%s: %v", l.ProductID, l.ShopDomain, err)
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		log.Printf("[ListingService] 回收 %d 条僵死 processing 记录", reclaimed)
	}
	return reclaimed, nil
}
