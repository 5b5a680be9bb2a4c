package task

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"shopify_sync_v1_202609/internal/repository"
	"shopify_sync_v1_202609/internal/service"
)

// ==================== UpdateSyncTask 铺货更新任务 ====================

// UpdateSyncTask 周期性同步价格/库存变化到远端
// 队列来源：update_pending（立即到期）与 update_error（30 分钟起步退避）
type UpdateSyncTask struct {
	listingRepo repository.ListingRepository
	listingSvc  *service.ListingService
	runner      *syncRunner
	syncSvc     *service.SyncService
	cron        *cron.Cron

	processingTTL time.Duration
}

// NewUpdateSyncTask 创建任务实例
func NewUpdateSyncTask(
	listingRepo repository.ListingRepository,
	shopRepo repository.ShopRepository,
	listingSvc *service.ListingService,
	syncSvc *service.SyncService,
) *UpdateSyncTask {
	return &UpdateSyncTask{
		listingRepo:   listingRepo,
		listingSvc:    listingSvc,
		syncSvc:       syncSvc,
		runner:        &syncRunner{shopRepo: shopRepo, syncSvc: syncSvc},
		cron:          cron.New(cron.WithSeconds()),
		processingTTL: service.DefaultProcessingTTL,
	}
}

// SetProcessingTTL 调整僵死回收阈值
func (t *UpdateSyncTask) SetProcessingTTL(ttl time.Duration) {
	t.processingTTL = ttl
}

// Start 启动定时任务：每 30 分钟跑一轮更新
func (t *UpdateSyncTask) Start() {
	_, _ = t.cron.AddFunc("0 */30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
		defer cancel()
		if _, err := t.Run(ctx, RunOptions{}); err != nil {
			log.Printf("[UpdateSyncTask] 定时运行失败: %v", err)
		}
	})
	t.cron.Start()
	log.Println("[UpdateSyncTask] 已启动 (每30分钟)")
}

// Stop 停止任务
func (t *UpdateSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[UpdateSyncTask] 已停止")
}

// Run 执行一轮更新批量
func (t *UpdateSyncTask) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	taskID := uuid.NewString()
	start := time.Now()
	now := start.UTC()

	log.Printf("[UpdateSyncTask] 任务 %s 开始", taskID)

	if _, err := t.listingSvc.ReclaimStale(ctx, t.processingTTL, now); err != nil {
		log.Printf("[UpdateSyncTask] 僵死回收失败（继续执行）: %v", err)
	}

	due, err := t.listingRepo.FindDueUpdates(ctx, now, 0)
	if err != nil {
		return RunResult{TaskID: taskID}, err
	}
	log.Printf("[UpdateSyncTask] 到期更新 %d 条", len(due))

	result := t.runner.run(ctx, "update", due, opts, t.syncSvc.UpdateOnShop)
	result.TaskID = taskID
	result.Duration = time.Since(start)

	log.Printf("[UpdateSyncTask] 任务 %s 完成: 成功 %d, 失败 %d, 跳过 %d, 耗时 %s",
		taskID, result.Success, result.Failed, result.Skipped, result.Duration.Round(time.Millisecond))
	return result, nil
}
