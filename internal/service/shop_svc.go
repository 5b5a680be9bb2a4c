package service

import (
	"context"
	"fmt"
	"strings"

	"shopify_sync_v1_202609/internal/api/dto"
	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
)

// ==================== ShopService 店铺管理服务 ====================

// ShopService 店铺接入与设置管理
type ShopService struct {
	shopRepo    repository.ShopRepository
	listingRepo repository.ListingRepository
}

// NewShopService 创建店铺服务
func NewShopService(shopRepo repository.ShopRepository, listingRepo repository.ListingRepository) *ShopService {
	return &ShopService{
		shopRepo:    shopRepo,
		listingRepo: listingRepo,
	}
}

// CreateShop 接入新店铺
// 定价参数走模型默认值（margin 1.5 / rounding 0.99 / closest）
func (s *ShopService) CreateShop(ctx context.Context, req dto.ShopCreateReq) (*dto.ShopResp, error) {
	domain := strings.TrimSpace(strings.ToLower(req.Domain))
	if domain == "" {
		return nil, fmt.Errorf("店铺域名不能为空")
	}

	shop := &model.Shop{
		Domain:      domain,
		AccessToken: req.AccessToken,
		Scopes:      req.Scopes,
	}
	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, fmt.Errorf("创建店铺失败: %w", err)
	}

	resp := toShopResp(shop)
	return &resp, nil
}

// GetShopList 获取全部店铺
func (s *ShopService) GetShopList(ctx context.Context) (*dto.ShopListResp, error) {
	shops, err := s.shopRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ShopResp, 0, len(shops))
	for i := range shops {
		items = append(items, toShopResp(&shops[i]))
	}
	return &dto.ShopListResp{Total: len(items), Items: items}, nil
}

// GetShopDetail 按域名获取店铺详情
func (s *ShopService) GetShopDetail(ctx context.Context, domain string) (*dto.ShopResp, error) {
	shop, err := s.shopRepo.GetByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	resp := toShopResp(shop)
	return &resp, nil
}

// UpdateSettings 更新店铺定价与排除设置
// nil 指针字段保持原值；切片传空数组表示清空
func (s *ShopService) UpdateSettings(ctx context.Context, domain string, req dto.ShopSettingsReq) error {
	fields := map[string]interface{}{}

	if req.ProfitMargin != nil {
		if *req.ProfitMargin <= 0 {
			return fmt.Errorf("利润系数必须大于 0")
		}
		fields["profit_margin"] = *req.ProfitMargin
	}
	if req.Rounding != nil {
		if *req.Rounding < 0 || *req.Rounding >= 1 {
			return fmt.Errorf("尾数必须在 [0, 1) 区间")
		}
		fields["rounding"] = *req.Rounding
	}
	if req.RoundTo != nil {
		switch *req.RoundTo {
		case model.RoundToUp, model.RoundToDown, model.RoundToClosest:
			fields["round_to"] = *req.RoundTo
		default:
			return fmt.Errorf("无效的取整方向: %s", *req.RoundTo)
		}
	}
	if req.ExcludedSuppliers != nil {
		fields["excluded_suppliers"] = model.StringSlice(req.ExcludedSuppliers)
	}
	if req.ExcludedBrands != nil {
		fields["excluded_brands"] = model.StringSlice(req.ExcludedBrands)
	}

	if len(fields) == 0 {
		return nil
	}
	return s.shopRepo.UpdateSettings(ctx, domain, fields)
}

// FlagListingsForUpdate 将已上架记录标记为待更新
// 设置变更后由调用方触发，下一轮更新任务重算价格
func (s *ShopService) FlagListingsForUpdate(ctx context.Context, req dto.FlagUpdateReq) (int64, error) {
	return s.listingRepo.FlagForUpdate(ctx, req.ProductIDs, req.ShopDomains)
}

// GetShopStats 按上架状态统计店铺的 listing 数量
func (s *ShopService) GetShopStats(ctx context.Context, domain string) (*dto.ShopStatsResp, error) {
	if _, err := s.shopRepo.GetByDomain(ctx, domain); err != nil {
		return nil, err
	}
	counts, err := s.listingRepo.CountByShopAndStatus(ctx, domain)
	if err != nil {
		return nil, err
	}
	return &dto.ShopStatsResp{Domain: domain, Counts: counts}, nil
}

// toShopResp 模型转响应
func toShopResp(shop *model.Shop) dto.ShopResp {
	return dto.ShopResp{
		ID:                shop.ID,
		Domain:            shop.Domain,
		Ready:             shop.IsReadyForListing(),
		Scopes:            shop.Scopes,
		ProfitMargin:      shop.ProfitMargin,
		Rounding:          shop.Rounding,
		RoundTo:           shop.RoundTo,
		ExcludedSuppliers: shop.ExcludedSuppliers,
		ExcludedBrands:    shop.ExcludedBrands,
		Status:            shop.Status,
		LastSyncedAt:      shop.LastSyncedAt,
		CreatedAt:         shop.CreatedAt,
		UpdatedAt:         shop.UpdatedAt,
	}
}
