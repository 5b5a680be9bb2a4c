package controller

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"shopify_sync_v1_202609/internal/api/dto"
	"shopify_sync_v1_202609/internal/task"

	"github.com/gin-gonic/gin"
)

// SyncController 批量同步控制器
// 除触发任务外，还维护各类任务最近一次运行的状态快照供查询
type SyncController struct {
	taskManager *task.TaskManager

	mu   sync.Mutex
	runs map[string]*runRecord
}

// runRecord 单类任务最近一次运行的状态
type runRecord struct {
	taskID     string
	state      string
	startedAt  time.Time
	finishedAt time.Time
	errMsg     string
	result     *task.RunResult
}

// NewSyncController 创建同步控制器
func NewSyncController(taskManager *task.TaskManager) *SyncController {
	return &SyncController{
		taskManager: taskManager,
		runs:        make(map[string]*runRecord),
	}
}

// ==================== Handler 实现 ====================

// TriggerFlag 手动触发候选标记
// 扫描较快且只写本地库，同步执行并返回汇总
func (c *SyncController) TriggerFlag(ctx *gin.Context) {
	c.markRunning("flag")
	result, err := c.taskManager.Flag().Run(ctx.Request.Context())
	if err != nil {
		c.markFailed("flag", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	c.markDone("flag", result)

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "候选标记完成",
		"data":    toSyncRunResp(result),
	})
}

// TriggerCreate 手动触发批量创建
// 涉及远端 API 调用，异步执行，立即返回任务受理
func (c *SyncController) TriggerCreate(ctx *gin.Context) {
	req, ok := bindRunReq(ctx)
	if !ok {
		return
	}

	c.markRunning("create")
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		result, err := c.taskManager.Create().Run(runCtx, toRunOptions(req))
		if err != nil {
			c.markFailed("create", err)
			log.Printf("[SyncController] 手动创建批量失败: %v", err)
			return
		}
		c.markDone("create", result)
		log.Printf("[SyncController] 手动创建批量完成 task=%s 成功=%d 失败=%d 跳过=%d",
			result.TaskID, result.Success, result.Failed, result.Skipped)
	}()

	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    202,
		"message": "创建批量已启动",
	})
}

// TriggerUpdate 手动触发批量更新
func (c *SyncController) TriggerUpdate(ctx *gin.Context) {
	req, ok := bindRunReq(ctx)
	if !ok {
		return
	}

	c.markRunning("update")
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		result, err := c.taskManager.Update().Run(runCtx, toRunOptions(req))
		if err != nil {
			c.markFailed("update", err)
			log.Printf("[SyncController] 手动更新批量失败: %v", err)
			return
		}
		c.markDone("update", result)
		log.Printf("[SyncController] 手动更新批量完成 task=%s 成功=%d 失败=%d 跳过=%d",
			result.TaskID, result.Success, result.Failed, result.Skipped)
	}()

	ctx.JSON(http.StatusAccepted, gin.H{
		"code":    202,
		"message": "更新批量已启动",
	})
}

// GetStatus 查询各类批量任务最近一次运行的状态
func (c *SyncController) GetStatus(ctx *gin.Context) {
	c.mu.Lock()
	resp := dto.SyncStatusResp{Runs: make(map[string]dto.SyncRunStatus, len(c.runs))}
	for kind, rec := range c.runs {
		status := dto.SyncRunStatus{
			TaskID:    rec.taskID,
			State:     rec.state,
			StartedAt: rec.startedAt.Format(time.RFC3339),
			Error:     rec.errMsg,
		}
		if !rec.finishedAt.IsZero() {
			status.FinishedAt = rec.finishedAt.Format(time.RFC3339)
		}
		if rec.result != nil {
			r := toSyncRunResp(*rec.result)
			status.Result = &r
		}
		resp.Runs[kind] = status
	}
	c.mu.Unlock()

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": resp,
	})
}

// ==================== 运行状态登记 ====================

func (c *SyncController) markRunning(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[kind] = &runRecord{state: "running", startedAt: time.Now()}
}

func (c *SyncController) markDone(kind string, result task.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.runs[kind]
	if !ok {
		rec = &runRecord{startedAt: time.Now()}
		c.runs[kind] = rec
	}
	rec.taskID = result.TaskID
	rec.state = "done"
	rec.finishedAt = time.Now()
	rec.result = &result
}

func (c *SyncController) markFailed(kind string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.runs[kind]
	if !ok {
		rec = &runRecord{startedAt: time.Now()}
		c.runs[kind] = rec
	}
	rec.state = "failed"
	rec.finishedAt = time.Now()
	rec.errMsg = err.Error()
}

// ==================== 工具函数 ====================

// bindRunReq 解析请求体，空 body 视为默认参数
func bindRunReq(ctx *gin.Context) (dto.SyncRunReq, bool) {
	var req dto.SyncRunReq
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
			return req, false
		}
	}
	return req, true
}

func toRunOptions(req dto.SyncRunReq) task.RunOptions {
	return task.RunOptions{
		Barcodes:    req.Barcodes,
		ShopDomains: req.ShopDomains,
		Limit:       req.Limit,
		Workers:     req.Workers,
		DryRun:      req.DryRun,
	}
}

func toSyncRunResp(result task.RunResult) dto.SyncRunResp {
	return dto.SyncRunResp{
		TaskID:     result.TaskID,
		Success:    result.Success,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		DurationMs: result.Duration.Milliseconds(),
	}
}
