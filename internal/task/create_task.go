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

// ==================== CreateSyncTask 铺货创建任务 ====================

// CreateSyncTask 周期性把到期的创建队列推上远端
// 队列来源：create_pending（立即到期）与 create_error（指数退避）
type CreateSyncTask struct {
	listingRepo repository.ListingRepository
	listingSvc  *service.ListingService
	runner      *syncRunner
	syncSvc     *service.SyncService
	cron        *cron.Cron

	processingTTL time.Duration
}

// NewCreateSyncTask 创建任务实例
func NewCreateSyncTask(
	listingRepo repository.ListingRepository,
	shopRepo repository.ShopRepository,
	listingSvc *service.ListingService,
	syncSvc *service.SyncService,
) *CreateSyncTask {
	return &CreateSyncTask{
		listingRepo:   listingRepo,
		listingSvc:    listingSvc,
		syncSvc:       syncSvc,
		runner:        &syncRunner{shopRepo: shopRepo, syncSvc: syncSvc},
		cron:          cron.New(cron.WithSeconds()),
		processingTTL: service.DefaultProcessingTTL,
	}
}

// SetProcessingTTL 调整僵死回收阈值
func (t *CreateSyncTask) SetProcessingTTL(ttl time.Duration) {
	t.processingTTL = ttl
}

// Start 启动定时任务：每小时第 15 分钟跑一轮创建
func (t *CreateSyncTask) Start() {
	_, _ = t.cron.AddFunc("0 15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		if _, err := t.Run(ctx, RunOptions{}); err != nil {
			log.Printf("[CreateSyncTask] 定时运行失败: %v", err)
		}
	})
	t.cron.Start()
	log.Println("[CreateSyncTask] 已启动 (每小时第15分钟)")
}

// Stop 停止任务
func (t *CreateSyncTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CreateSyncTask] 已停止")
}

// Run 执行一轮创建批量
// 返回错误仅限配置/查询问题；单品失败进入汇总计数
func (t *CreateSyncTask) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	taskID := uuid.NewString()
	start := time.Now()
	now := start.UTC()

	log.Printf("[CreateSyncTask] 任务 %s 开始", taskID)

	if _, err := t.listingSvc.ReclaimStale(ctx, t.processingTTL, now); err != nil {
		log.Printf("[CreateSyncTask] 僵死回收失败（继续执行）: %v", err)
	}

	due, err := t.listingRepo.FindDueCreations(ctx, now, 0)
	if err != nil {
		return RunResult{TaskID: taskID}, err
	}
	log.Printf("[CreateSyncTask] 到期创建 %d 条", len(due))

	result := t.runner.run(ctx, "create", due, opts, t.syncSvc.CreateOnShop)
	result.TaskID = taskID
	result.Duration = time.Since(start)

	log.Printf("[CreateSyncTask] 任务 %s 完成: 成功 %d, 失败 %d, 跳过 %d, 耗时 %s",
		taskID, result.Success, result.Failed, result.Skipped, result.Duration.Round(time.Millisecond))
	return result, nil
}
