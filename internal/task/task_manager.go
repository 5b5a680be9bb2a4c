package task

import (
	"log"
	"time"
)

// ==================== TaskManager 批量任务管理器 ====================

// TaskManager 统一管理铺货相关的周期任务
// 管理范围：候选标记、创建批量、更新批量
type TaskManager struct {
	flagTask   *FlagProductsTask
	createTask *CreateSyncTask
	updateTask *UpdateSyncTask

	config TaskManagerConfig
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	FlagEnabled   bool
	CreateEnabled bool
	UpdateEnabled bool

	// 僵死 processing 回收阈值
	ProcessingTTL time.Duration
}

// DefaultTaskManagerConfig 默认配置：全部启用
func DefaultTaskManagerConfig() TaskManagerConfig {
	return TaskManagerConfig{
		FlagEnabled:   true,
		CreateEnabled: true,
		UpdateEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(
	flagTask *FlagProductsTask,
	createTask *CreateSyncTask,
	updateTask *UpdateSyncTask,
	config TaskManagerConfig,
) *TaskManager {
	if config.ProcessingTTL > 0 {
		createTask.SetProcessingTTL(config.ProcessingTTL)
		updateTask.SetProcessingTTL(config.ProcessingTTL)
	}
	return &TaskManager{
		flagTask:   flagTask,
		createTask: createTask,
		updateTask: updateTask,
		config:     config,
	}
}

// StartAll 启动全部启用的任务
func (m *TaskManager) StartAll() {
	if m.config.FlagEnabled {
		m.flagTask.Start()
	}
	if m.config.CreateEnabled {
		m.createTask.Start()
	}
	if m.config.UpdateEnabled {
		m.updateTask.Start()
	}
	log.Println("[TaskManager] 任务调度已启动")
}

// StopAll 停止全部任务
func (m *TaskManager) StopAll() {
	if m.config.FlagEnabled {
		m.flagTask.Stop()
	}
	if m.config.CreateEnabled {
		m.createTask.Stop()
	}
	if m.config.UpdateEnabled {
		m.updateTask.Stop()
	}
	log.Println("[TaskManager] 任务调度已停止")
}

// Flag 手动触发候选标记
func (m *TaskManager) Flag() *FlagProductsTask { return m.flagTask }

// Create 手动触发创建批量
func (m *TaskManager) Create() *CreateSyncTask { return m.createTask }

// Update 手动触发更新批量
func (m *TaskManager) Update() *UpdateSyncTask { return m.updateTask }
