package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// TaskType 标识流水线中一个任务所属的阶段。
type TaskType string

const (
	TaskTypeDataCollection TaskType = "data_collection"
	TaskTypeExtraction     TaskType = "extraction"
	TaskTypeSummarization  TaskType = "summarization"
	TaskTypeCategorization TaskType = "categorization"
)

// TaskStatus 定义了任务的几种可能状态。
// 状态单调推进: pending → assigned → completed | failed，任务被认领后不会回到 pending。
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusAssigned  TaskStatus = "assigned"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task 代表一个可调度的流水线工作单元。
//
// DependsOn 非空的任务只有在所有前置任务 status=completed 后才可被认领；
// AssignedAgentID 只在 pending→assigned 的原子转换中被设置一次。
type Task struct {
	TaskID          string     `bson:"task_id" json:"task_id"`                     // 任务唯一ID (UUID string)
	TaskType        TaskType   `bson:"task_type" json:"task_type"`                 // 任务类型，决定载荷的结构
	Status          TaskStatus `bson:"status" json:"status"`                       // 任务当前状态
	AssignedAgentID string     `bson:"assigned_agent_id" json:"assigned_agent_id"` // 认领该任务的 agent，空串表示未认领
	InputData       bson.M     `bson:"input_data" json:"input_data"`               // 任务输入载荷 (按 task_type 定型，见 payloads.go)
	OutputData      bson.M     `bson:"output_data" json:"output_data"`             // 任务输出载荷，完成或失败时写入
	DependsOn       []string   `bson:"depends_on" json:"depends_on"`               // 前置任务ID集合，可为空
	Priority        int        `bson:"priority" json:"priority"`                   // 调度优先级，数值越大越先执行
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`               // 任务创建时间
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`               // 最后一次状态变更时间
}

// Terminal 报告任务是否已进入终态。
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
