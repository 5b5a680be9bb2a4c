package dto

// ================== Sync DTO ==================

// SyncRunReq 手动触发批量同步请求
// 所有过滤条件均可选：不传则处理全部到期工作项
type SyncRunReq struct {
	Barcodes    []string `json:"barcodes"`     // 仅处理指定条码
	ShopDomains []string `json:"shop_domains"` // 仅处理指定店铺
	Limit       int      `json:"limit"`        // 全局上限
	Workers     int      `json:"workers"`      // 并发店铺数
	DryRun      bool     `json:"dry_run"`      // 只统计不落地
}

// SyncRunResp 同步运行结果响应
type SyncRunResp struct {
	TaskID     string `json:"task_id"`
	Success    int    `json:"success"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	DurationMs int64  `json:"duration_ms"`
}

// SyncRunStatus 单类批量任务的最近一次运行状态
type SyncRunStatus struct {
	TaskID     string       `json:"task_id"`
	State      string       `json:"state"` // running / done / failed
	StartedAt  string       `json:"started_at"`
	FinishedAt string       `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
	Result     *SyncRunResp `json:"result,omitempty"`
}

// SyncStatusResp 各类批量任务的运行状态汇总
type SyncStatusResp struct {
	Runs map[string]SyncRunStatus `json:"runs"` // key: flag / create / update
}

// FlagUpdateReq 手动标记已上架商品待更新
type FlagUpdateReq struct {
	ProductIDs  []int64  `json:"product_ids"`  // 可选：仅标记指定商品
	ShopDomains []string `json:"shop_domains"` // 可选：仅标记指定店铺
}

// FlagUpdateResp 标记结果
type FlagUpdateResp struct {
	Flagged int64 `json:"flagged"`
}
