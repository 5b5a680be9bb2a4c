package task

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"shopify_sync_v1_202609/internal/model"
	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/internal/service"
)

// ==================== FlagProductsTask 上架候选标记任务 ====================

// FlagProductsTask 把资料齐备且符合店铺资格的商品标记为 create_pending
// 只做标记不碰远端，创建由 CreateSyncTask 消费
type FlagProductsTask struct {
	shopRepo    repository.ShopRepository
	productRepo repository.ProductRepository
	listingSvc  *service.ListingService
	cron        *cron.Cron
}

// NewFlagProductsTask 创建标记任务
func NewFlagProductsTask(
	shopRepo repository.ShopRepository,
	productRepo repository.ProductRepository,
	listingSvc *service.ListingService,
) *FlagProductsTask {
	return &FlagProductsTask{
		shopRepo:    shopRepo,
		productRepo: productRepo,
		listingSvc:  listingSvc,
		cron:        cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务：每 6 小时扫一轮
func (t *FlagProductsTask) Start() {
	_, _ = t.cron.AddFunc("0 0 */6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := t.Run(ctx); err != nil {
			log.Printf("[FlagProductsTask] 定时运行失败: %v", err)
		}
	})
	t.cron.Start()
	log.Println("[FlagProductsTask] 已启动 (每6小时)")
}

// Stop 停止任务
func (t *FlagProductsTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[FlagProductsTask] 已停止")
}

// Run 扫描就绪店铺的合格商品并标记
// 单店铺/单商品失败只计数，不影响其余
func (t *FlagProductsTask) Run(ctx context.Context) (RunResult, error) {
	taskID := uuid.NewString()
	start := time.Now()

	log.Printf("[FlagProductsTask] 任务 %s 开始", taskID)

	shops, err := t.shopRepo.ListReady(ctx)
	if err != nil {
		return RunResult{TaskID: taskID}, err
	}
	products, err := t.productRepo.ListEnriched(ctx, 0)
	if err != nil {
		return RunResult{TaskID: taskID}, err
	}

	var result RunResult
	result.TaskID = taskID

	for si := range shops {
		shop := &shops[si]
		flagged := 0

		for pi := range products {
			product := &products[pi]

			// 已有 listing 的组合不重复标记（重试由调度器负责）
			if product.FindListing(shop.Domain) != nil {
				result.Skipped++
				continue
			}
			if !t.listingSvc.IsReadyToCreate(product, shop) {
				result.Skipped++
				continue
			}

			_, err := t.listingSvc.Upsert(ctx, product, shop.Domain, &model.ListingPatch{
				Status: model.ListingStatusCreatePending,
			})
			if err != nil {
				result.Failed++
				log.Printf("[FlagProductsTask] 标记失败 %s @ %s: %v", product.Barcode, shop.Domain, err)
				continue
			}
			flagged++
			result.Success++
		}

		if flagged > 0 {
			log.Printf("[FlagProductsTask] 店铺 %s 新标记 %d 个商品", shop.Domain, flagged)
		}
	}

	result.Duration = time.Since(start)
	log.Printf("[FlagProductsTask] 任务 %s 完成: 标记 %d, 失败 %d, 跳过 %d, 耗时 %s",
		taskID, result.Success, result.Failed, result.Skipped, result.Duration.Round(time.Millisecond))
	return result, nil
}
