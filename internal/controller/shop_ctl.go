package controller

import (
	"errors"
	"net/http"

	"shopify_sync_v1_202609/internal/api/dto"
	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/internal/service"

	"github.com/gin-gonic/gin"
)

type ShopController struct {
	shopSvc *service.ShopService
}

func NewShopController(shopSvc *service.ShopService) *ShopController {
	return &ShopController{
		shopSvc: shopSvc,
	}
}

// CreateShop 接入新店铺
// POST /api/v1/shops
func (c *ShopController) CreateShop(ctx *gin.Context) {
	var req dto.ShopCreateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	resp, err := c.shopSvc.CreateShop(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// GetShopList 获取店铺列表
// GET /api/v1/shops
func (c *ShopController) GetShopList(ctx *gin.Context) {
	resp, err := c.shopSvc.GetShopList(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// GetShopDetail 获取店铺详情
// GET /api/v1/shops/:domain
func (c *ShopController) GetShopDetail(ctx *gin.Context) {
	domain := ctx.Param("domain")

	resp, err := c.shopSvc.GetShopDetail(ctx.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "店铺不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// UpdateSettings 更新店铺定价与排除设置
// PUT /api/v1/shops/:domain/settings
func (c *ShopController) UpdateSettings(ctx *gin.Context) {
	domain := ctx.Param("domain")

	var req dto.ShopSettingsReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
		return
	}

	if err := c.shopSvc.UpdateSettings(ctx.Request.Context(), domain, req); err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "店铺不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "设置已更新"})
}

// FlagForUpdate 标记已上架商品待更新
// 设置变更后调用，下一轮更新任务按新设置重算价格
// POST /api/v1/shops/:domain/flag-update
func (c *ShopController) FlagForUpdate(ctx *gin.Context) {
	domain := ctx.Param("domain")

	var req dto.FlagUpdateReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "参数错误: " + err.Error()})
			return
		}
	}
	req.ShopDomains = []string{domain}

	flagged, err := c.shopSvc.FlagListingsForUpdate(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, dto.FlagUpdateResp{Flagged: flagged})
}

// GetShopStats 按上架状态统计
// GET /api/v1/shops/:domain/stats
func (c *ShopController) GetShopStats(ctx *gin.Context) {
	domain := ctx.Param("domain")

	resp, err := c.shopSvc.GetShopStats(ctx.Request.Context(), domain)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "店铺不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
