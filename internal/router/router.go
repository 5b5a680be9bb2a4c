package router

import (
	"net/http"

	"shopify_sync_v1_202609/internal/controller"
	"shopify_sync_v1_202609/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	Shop *controller.ShopController
	Sync *controller.SyncController
}

// SetupRouter 创建引擎并注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API 路由组
	api := r.Group("/api/v1")
	{
		// shop 店铺管理
		shops := api.Group("/shops")
		{
			shops.POST("", ctls.Shop.CreateShop)
			shops.GET("", ctls.Shop.GetShopList)
			shops.GET("/:domain", ctls.Shop.GetShopDetail)
			shops.PUT("/:domain/settings", ctls.Shop.UpdateSettings)
			shops.GET("/:domain/stats", ctls.Shop.GetShopStats)

			// 设置变更后手动标记重算
			shops.POST("/:domain/flag-update",
				middleware.SyncRateLimit(middleware.SyncTypeUpdate, 0),
				ctls.Shop.FlagForUpdate,
			)
		}

		// sync 批量任务手动触发与状态查询
		sync := api.Group("/sync")
		{
			sync.GET("/status", ctls.Sync.GetStatus)
			sync.POST("/flag",
				middleware.SyncRateLimit(middleware.SyncTypeFlag, 0),
				ctls.Sync.TriggerFlag,
			)
			sync.POST("/create",
				middleware.SyncRateLimit(middleware.SyncTypeCreate, 0),
				ctls.Sync.TriggerCreate,
			)
			sync.POST("/update",
				middleware.SyncRateLimit(middleware.SyncTypeUpdate, 0),
				ctls.Sync.TriggerUpdate,
			)
		}
	}

	return r
}
