package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"shopify_sync_v1_202609/internal/controller"
	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/internal/router"
	"shopify_sync_v1_202609/internal/service"
	"shopify_sync_v1_202609/internal/task"
	"shopify_sync_v1_202609/pkg/database"
	"shopify_sync_v1_202609/pkg/shopify"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 0. 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r, deps)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	TaskManager *task.TaskManager
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Product repository.ProductRepository
	Shop    repository.ShopRepository
	Listing repository.ListingRepository
}

// Services 服务集合
type Services struct {
	Listing *service.ListingService
	Sync    *service.SyncService
	Shop    *service.ShopService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=shopify_sync port=5432 sslmode=disable")

	return database.InitDB(dsn,
		// Product
		&model.Product{}, &model.SupplierOffer{},
		// Shop
		&model.Shop{},
		// Listing
		&model.Listing{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Product: repository.NewProductRepository(db),
		Shop:    repository.NewShopRepository(db),
		Listing: repository.NewListingRepository(db),
	}

	// -------- Shopify 客户端 --------
	gateway := shopify.NewClient(getEnv("SHOPIFY_API_VERSION", shopify.DefaultAPIVersion))

	// -------- 业务服务 --------
	services := &Services{}
	services.Listing = service.NewListingService(repos.Listing)
	services.Sync = service.NewSyncService(gateway, services.Listing)
	services.Shop = service.NewShopService(repos.Shop, repos.Listing)

	// -------- 任务层 --------
	taskManager := task.NewTaskManager(
		task.NewFlagProductsTask(repos.Shop, repos.Product, services.Listing),
		task.NewCreateSyncTask(repos.Listing, repos.Shop, services.Listing, services.Sync),
		task.NewUpdateSyncTask(repos.Listing, repos.Shop, services.Listing, services.Sync),
		taskConfigFromEnv(),
	)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Shop: controller.NewShopController(services.Shop),
		Sync: controller.NewSyncController(taskManager),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		TaskManager: taskManager,
		Controllers: controllers,
	}
}

// taskConfigFromEnv 从环境变量读取任务配置
func taskConfigFromEnv() task.TaskManagerConfig {
	config := task.DefaultTaskManagerConfig()
	config.FlagEnabled = getEnvBool("TASK_FLAG_ENABLED", config.FlagEnabled)
	config.CreateEnabled = getEnvBool("TASK_CREATE_ENABLED", config.CreateEnabled)
	config.UpdateEnabled = getEnvBool("TASK_UPDATE_ENABLED", config.UpdateEnabled)

	if minutes := getEnvInt("TASK_PROCESSING_TTL_MINUTES", 0); minutes > 0 {
		config.ProcessingTTL = time.Duration(minutes) * time.Minute
	}
	return config
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	deps.TaskManager.StartAll()
	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, deps *Dependencies) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 先停定时任务，再优雅关闭 HTTP
	deps.TaskManager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
